package ops

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/view"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any id collision, write nothing
	ImportModeSkip    ImportMode = "skip"    // keep existing versions
	ImportModeReplace ImportMode = "replace" // overwrite existing versions
)

// maxImportLine bounds one JSONL line (a version document plus fields).
const maxImportLine = 16 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one record that was not imported.
type ImportError struct {
	Line      int    `json:"line,omitempty"`
	View      string `json:"view,omitempty"`
	VersionID string `json:"version_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// importRecord is a validated export line ready to be written.
type importRecord struct {
	line int
	rec  view.ExportRecord
	data []byte
}

// Import restores versions from a JSONL export file, preserving version ids
// and creation times.
func Import(ctx context.Context, env *Env, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip, replace")
	}

	if err := ValidatePath(input.Path, PathCheckRead, env.Config, env.ExportsDir); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file, env.maxDocumentBytes())

	out := &ImportOutput{Errors: []ImportError{}}
	if input.Mode == ImportModeError {
		if len(parseErrors) > 0 {
			out.Errors = parseErrors
			return out, nil
		}
		collisions, err := findCollisions(env, records)
		if err != nil {
			return nil, err
		}
		if len(collisions) > 0 {
			out.Errors = collisions
			return out, nil
		}
	} else {
		out.Errors = append(out.Errors, parseErrors...)
		out.Skipped += len(parseErrors)
	}

	for _, group := range groupByView(records) {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}
		imported, skipped, err := importView(ctx, env, group, input.Mode)
		if err != nil {
			return nil, err
		}
		out.Imported += imported
		out.Skipped += skipped
	}
	return out, nil
}

// parseExportFile validates every line of an export file.
func parseExportFile(r io.Reader, maxBytes int) ([]importRecord, []ImportError) {
	var records []importRecord
	var parseErrors []ImportError
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec view.ExportRecord
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if rec.VellumExport {
			continue
		}

		bad := func(code, msg string) {
			parseErrors = append(parseErrors, ImportError{
				Line: lineNum, View: rec.View, VersionID: rec.ID, Code: code, Message: msg,
			})
		}
		if !view.ValidName(rec.View) {
			bad(string(errors.ErrInvalidName), fmt.Sprintf("invalid view name %q", rec.View))
			continue
		}
		if !view.ValidName(rec.ID) {
			bad(string(errors.ErrInvalidVersionID), fmt.Sprintf("invalid version id %q", rec.ID))
			continue
		}
		if rec.ActiveVersion != nil && !view.ValidName(*rec.ActiveVersion) {
			bad(string(errors.ErrInvalidVersionID), fmt.Sprintf("invalid active version %q", *rec.ActiveVersion))
			continue
		}
		key := rec.View + "/" + rec.ID
		if seen[key] {
			bad("DUPLICATE", "version appears more than once in the file")
			continue
		}
		data, _, err := view.EncodeDocument(rec.Content)
		if err != nil {
			bad(string(errors.ErrInvalidDocument), err.Error())
			continue
		}
		if len(data) > maxBytes {
			bad(string(errors.ErrDocumentTooLarge), fmt.Sprintf("document is %d bytes (max %d)", len(data), maxBytes))
			continue
		}
		seen[key] = true
		records = append(records, importRecord{line: lineNum, rec: rec, data: data})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}

// findCollisions reports every record whose id already exists in its view.
func findCollisions(env *Env, records []importRecord) ([]ImportError, error) {
	var collisions []ImportError
	metas := make(map[string]*view.Meta)
	for _, r := range records {
		meta, ok := metas[r.rec.View]
		if !ok {
			m, err := env.Root.ReadMeta(r.rec.View)
			if err != nil {
				return nil, err
			}
			meta, metas[r.rec.View] = m, m
		}
		exists, err := env.Root.VersionExists(r.rec.View, r.rec.ID)
		if err != nil {
			return nil, err
		}
		if exists || (meta != nil && meta.HasVersion(r.rec.ID)) {
			collisions = append(collisions, ImportError{
				Line:      r.line,
				View:      r.rec.View,
				VersionID: r.rec.ID,
				Code:      "ID_COLLISION",
				Message:   fmt.Sprintf("version %s already exists in view %s", r.rec.ID, r.rec.View),
			})
		}
	}
	return collisions, nil
}

// groupByView splits records per view, keeping first-appearance order.
func groupByView(records []importRecord) [][]importRecord {
	index := make(map[string]int)
	var groups [][]importRecord
	for _, r := range records {
		i, ok := index[r.rec.View]
		if !ok {
			i = len(groups)
			index[r.rec.View] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}

// importView writes one view's records under its lock.
func importView(ctx context.Context, env *Env, group []importRecord, mode ImportMode) (imported, skipped int, err error) {
	name := group[0].rec.View
	unlock, err := lockForWrite(env.Root, name)
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	now := env.Root.Now().UTC()
	meta, err := env.Root.ReadMeta(name)
	if err != nil {
		return 0, 0, err
	}
	created := meta == nil
	if created {
		meta = view.NewMeta(name, earliest(group, now))
	}

	var pin *string
	for _, r := range group {
		exists, err := env.Root.VersionExists(name, r.rec.ID)
		if err != nil {
			return imported, skipped, err
		}
		if (exists || meta.HasVersion(r.rec.ID)) && mode == ImportModeSkip {
			skipped++
			continue
		}

		if _, err := env.Root.WriteVersion(name, r.rec.ID, r.data); err != nil {
			return imported, skipped, err
		}
		prov := r.rec.ToProvenance()
		if prov.CreatedAt.IsZero() {
			prov.CreatedAt = now
		}
		meta.PutProvenance(prov)
		if r.rec.Description != "" {
			meta.Description = r.rec.Description
		}
		if r.rec.ActiveVersion != nil {
			pin = r.rec.ActiveVersion
		}
		imported++
	}

	if imported == 0 {
		if created {
			// Don't leave a directory behind for a view that received nothing.
			if files, err := env.Root.ReadVersionFiles(name); err == nil && len(files) == 0 {
				_ = env.Root.RemoveView(name)
			}
		}
		return 0, skipped, nil
	}

	// Pins are restored onto new views, or when the caller asked to replace.
	if pin != nil && (created || mode == ImportModeReplace) && meta.HasVersion(*pin) {
		p := *pin
		meta.ActiveVersion = &p
	}
	meta.UpdatedAt = now
	if err := env.Root.WriteMeta(meta); err != nil {
		return imported, skipped, err
	}

	record(ctx, env, view.Event{
		View:   name,
		Action: view.ActionImport,
		Detail: fmt.Sprintf("%d imported, %d skipped (mode %s)", imported, skipped, mode),
	})
	return imported, skipped, nil
}

func earliest(group []importRecord, fallback time.Time) time.Time {
	t := fallback
	for _, r := range group {
		if !r.rec.CreatedAt.IsZero() && r.rec.CreatedAt.Before(t) {
			t = r.rec.CreatedAt.UTC()
		}
	}
	return t
}
