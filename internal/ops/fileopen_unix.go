//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/vellum/internal/errors"
)

// noFollowFlags refuse a symlink as the final component and keep the fd out
// of child processes.
const noFollowFlags = syscall.O_NOFOLLOW | syscall.O_CLOEXEC

func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|noFollowFlags, uint32(perm))
	if err != nil {
		return nil, noFollowError(path, err)
	}
	return os.NewFile(uintptr(fd), path), nil
}

func openFileNoFollowRead(path string) (*os.File, error) {
	return openFileNoFollow(path, syscall.O_RDONLY, 0)
}

func noFollowError(path string, err error) error {
	switch {
	case stderrors.Is(err, syscall.ELOOP):
		return errors.NewInvalidRequest("refusing to open symlink: " + path)
	case stderrors.Is(err, syscall.ENOENT):
		return errors.NewFileNotFound(path)
	}
	return &os.PathError{Op: "open", Path: path, Err: err}
}
