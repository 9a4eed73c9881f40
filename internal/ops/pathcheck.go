package ops

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/vellum/internal/config"
	"github.com/hpungsan/vellum/internal/errors"
)

// PathCheckMode selects the checks for an import (read) or export (write) path.
type PathCheckMode int

const (
	PathCheckRead PathCheckMode = iota
	PathCheckWrite
)

// ExportExt is the only extension accepted for import and export files.
const ExportExt = ".jsonl"

// ValidatePath vets a user-supplied import or export path.
//
// The file must sit directly inside exportsDir or an absolute entry of
// cfg.AllowedPaths; nested directories are refused so only the final
// component is left for openFileNoFollow to guard. AllowUnsafePaths lifts the
// directory rule but never the symlink rule.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config, exportsDir string) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain '..'")
	}
	if filepath.Ext(path) != ExportExt {
		return errors.NewInvalidRequest(fmt.Sprintf("path must end in %s", ExportExt))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		dirs, err := allowedDirs(cfg, exportsDir)
		if err != nil {
			return err
		}
		parent := filepath.Dir(abs)
		if !slices.Contains(dirs, parent) {
			return errors.NewInvalidRequest(fmt.Sprintf("path must be directly inside one of %v", dirs))
		}
		if isSymlink(parent) {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if isSymlink(abs) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	if mode == PathCheckRead {
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	return nil
}

// allowedDirs lists the directories a transfer file may live in. Relative
// allowed_paths entries are ignored; a symlinked entry is matched by target.
func allowedDirs(cfg *config.Config, exportsDir string) ([]string, error) {
	var candidates []string
	if exportsDir != "" {
		candidates = append(candidates, exportsDir)
	}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path %q: %v", c, err))
		}
		if isSymlink(abs) {
			if abs, err = filepath.EvalSymlinks(abs); err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("unresolvable allowed path %q: %v", c, err))
			}
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&fs.ModeSymlink != 0
}

// containsTraversal reports a ".." element under either separator.
func containsTraversal(path string) bool {
	split := func(r rune) bool { return r == '/' || r == filepath.Separator }
	return slices.Contains(strings.FieldsFunc(path, split), "..")
}
