package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LockView takes the exclusive lock of view name, blocking until it is
// available. The view directory must exist when the lock is granted;
// otherwise the returned error wraps fs.ErrNotExist. The returned func
// releases the lock.
//
// Lock files are never removed, so every writer of a view contends on the
// same inode even across deletes and re-creations of the view.
func (r *Root) LockView(name string) (func(), error) {
	path, err := r.lockPath(name)
	if err != nil {
		return nil, err
	}
	dir, err := r.ViewDir(name)
	if err != nil {
		return nil, err
	}
	if err := r.requireDir(dir); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", path, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	release := func() {
		_ = unlockFile(f)
		f.Close()
	}

	// The holder before us may have removed the view.
	if err := r.requireDir(dir); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

func (r *Root) requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("view %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("view %s: %w", dir, fs.ErrNotExist)
	}
	return nil
}
