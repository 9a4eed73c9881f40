package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/view"
)

// On-disk names inside a view directory.
const (
	MetaFile    = "meta.json"
	VersionsDir = "versions"
	VersionExt  = ".json"
)

// Lock files live in <root>/.locks, outside any view tree, so removing a
// view never touches a file a writer holds open. The leading dot keeps the
// directory out of view listings.
const (
	LocksDir = ".locks"
	LockExt  = ".lock"
)

// ViewDir returns the directory of view name after validating the name and
// confirming the path stays inside the root.
func (r *Root) ViewDir(name string) (string, error) {
	if err := view.ValidateName(name); err != nil {
		return "", err
	}
	dir := filepath.Join(r.dir, name)
	if err := r.contain(dir); err != nil {
		return "", err
	}
	// A symlinked view directory could point anywhere.
	if info, err := os.Lstat(dir); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return "", errors.NewPathEscape(dir, r.dir)
	}
	return dir, nil
}

// MetaPath returns the metadata file path of view name.
func (r *Root) MetaPath(name string) (string, error) {
	dir, err := r.ViewDir(name)
	if err != nil {
		return "", err
	}
	return r.child(dir, MetaFile)
}

// VersionsPath returns the versions directory of view name.
func (r *Root) VersionsPath(name string) (string, error) {
	dir, err := r.ViewDir(name)
	if err != nil {
		return "", err
	}
	return r.child(dir, VersionsDir)
}

// VersionPath returns the file path of version id in view name.
func (r *Root) VersionPath(name, id string) (string, error) {
	if err := view.ValidateVersionID(id); err != nil {
		return "", err
	}
	dir, err := r.VersionsPath(name)
	if err != nil {
		return "", err
	}
	return r.child(dir, id+VersionExt)
}

func (r *Root) lockPath(name string) (string, error) {
	if err := view.ValidateName(name); err != nil {
		return "", err
	}
	return r.child(filepath.Join(r.dir, LocksDir), name+LockExt)
}

func (r *Root) child(dir, elem string) (string, error) {
	p := filepath.Join(dir, elem)
	if err := r.contain(p); err != nil {
		return "", err
	}
	return p, nil
}

// contain rejects any path that is not a strict descendant of the root.
func (r *Root) contain(p string) error {
	rel, err := filepath.Rel(r.dir, filepath.Clean(p))
	if err != nil {
		return errors.NewPathEscape(p, r.dir)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return errors.NewPathEscape(p, r.dir)
	}
	return nil
}
