package util

import (
	"errors"
	"io/fs"
	"syscall"
)

const (
	EBADF  = syscall.Errno(syscall.EBADF)
	ENOENT = syscall.Errno(syscall.ENOENT)
	EPERM  = syscall.Errno(syscall.EPERM)
)

// IsNotExist reports whether err, or any error it wraps, signals a missing
// file or blob.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
