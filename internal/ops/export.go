package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/view"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: <exports_dir>/<name|all>-<timestamp>.jsonl
	Name string // optional, export only this view
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Views      int    `json:"views"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes views and all of their versions to a JSONL file: a header
// line, then one record per version.
func Export(ctx context.Context, env *Env, input ExportInput) (*ExportOutput, error) {
	var views []*view.View
	if input.Name != "" {
		v, err := LoadView(ctx, env, input.Name)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errors.NewViewNotFound(input.Name)
		}
		views = []*view.View{v}
	} else {
		var err error
		if views, err = ListViews(ctx, env); err != nil {
			return nil, err
		}
	}

	now := env.Root.Now()
	exportPath := input.Path
	if exportPath == "" {
		prefix := "all"
		if input.Name != "" {
			prefix = input.Name
		}
		exportPath = filepath.Join(env.ExportsDir, fmt.Sprintf("%s-%s.jsonl", prefix, now.Format("2006-01-02T150405")))
	}

	// Default paths are validated too.
	if err := ValidatePath(exportPath, PathCheckWrite, env.Config, env.ExportsDir); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to temp file first, then atomic rename to preserve existing file on failure
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	header := view.ExportRecord{
		VellumExport:  true,
		SchemaVersion: view.ExportSchemaVersion,
		ExportedAt:    now.Unix(),
	}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewInternal(err)
	}

	count := 0
	for _, v := range views {
		for _, ver := range v.Versions {
			if ctx.Err() != nil {
				return nil, errors.NewCancelled("export")
			}
			if err := enc.Encode(view.VersionToExportRecord(v, ver)); err != nil {
				return nil, errors.NewInternal(err)
			}
			count++
		}
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path must not be a symlink")
	}

	// On Windows, os.Rename fails if the destination exists; the existing
	// file is preserved rather than replaced non-atomically.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Views:      len(views),
		Count:      count,
		ExportedAt: header.ExportedAt,
	}, nil
}
