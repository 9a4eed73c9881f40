package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/view"
)

// VersionFile is one raw file from a view's versions directory.
type VersionFile struct {
	Stem    string
	Path    string
	ModTime time.Time
	Data    []byte
}

// EnsureView creates the directory tree of view name if missing and reports
// whether it had to be created.
func (r *Root) EnsureView(name string) (bool, error) {
	versions, err := r.VersionsPath(name)
	if err != nil {
		return false, err
	}
	dir := filepath.Dir(versions)
	_, statErr := os.Stat(dir)
	created := os.IsNotExist(statErr)
	if err := os.MkdirAll(versions, 0700); err != nil {
		return false, fmt.Errorf("create view %s: %w", name, err)
	}
	return created, nil
}

// ViewExists reports whether the directory of view name exists.
func (r *Root) ViewExists(name string) (bool, error) {
	dir, err := r.ViewDir(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat view %s: %w", name, err)
	}
	return info.IsDir(), nil
}

// ListViewNames returns the sorted names of root subdirectories that pass
// name validation.
func (r *Root) ListViewNames() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read store root %s: %w", r.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !view.ValidName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// ReadVersionFiles returns every *.json file in the versions directory of
// view name. A missing directory yields no files and no error. Files that
// vanish or cannot be read mid-scan are skipped.
func (r *Root) ReadVersionFiles(name string) ([]VersionFile, error) {
	dir, err := r.VersionsPath(name)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read versions %s: %w", dir, err)
	}

	files := make([]VersionFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || filepath.Ext(e.Name()) != VersionExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		files = append(files, VersionFile{
			Stem:    strings.TrimSuffix(e.Name(), VersionExt),
			Path:    path,
			ModTime: info.ModTime(),
			Data:    data,
		})
	}
	return files, nil
}

// ReadVersionFile reads version id of view name. A missing file yields
// (nil, nil).
func (r *Root) ReadVersionFile(name, id string) (*VersionFile, error) {
	path, err := r.VersionPath(name, id)
	if err != nil {
		return nil, err
	}
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat version %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read version %s: %w", path, err)
	}
	return &VersionFile{Stem: id, Path: path, ModTime: info.ModTime(), Data: data}, nil
}

// VersionExists reports whether version id of view name has a file.
func (r *Root) VersionExists(name, id string) (bool, error) {
	path, err := r.VersionPath(name, id)
	if err != nil {
		return false, err
	}
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat version %s: %w", path, err)
	}
	return true, nil
}

// WriteVersion atomically writes a version payload and returns its path.
func (r *Root) WriteVersion(name, id string, data []byte) (string, error) {
	path, err := r.VersionPath(name, id)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, data, 0600); err != nil {
		return "", fmt.Errorf("write version file %s: %w", path, err)
	}
	return path, nil
}

// RemoveVersionFile deletes a file by name from the versions directory of
// view name. filename is usually "<id>.json" but may carry a stem that is not
// a valid id. It reports whether a file was removed; a missing file is not
// an error.
func (r *Root) RemoveVersionFile(name, filename string) (bool, error) {
	dir, err := r.VersionsPath(name)
	if err != nil {
		return false, err
	}
	if filename != filepath.Base(filename) || filepath.Ext(filename) != VersionExt {
		return false, errors.NewPathEscape(filepath.Join(dir, filename), r.dir)
	}
	path, err := r.child(dir, filename)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("remove version file %s: %w", path, err)
	}
	return true, nil
}

// RemoveView deletes the whole directory tree of view name. A missing view
// is not an error.
func (r *Root) RemoveView(name string) error {
	dir, err := r.ViewDir(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove view %s: %w", dir, err)
	}
	return nil
}
