package storage

import (
	"io"

	"github.com/nyaxt/gocs/util"
)

// File is a handle returned by Storage.Open. It is either readable or
// writable, depending on the mode it was opened with.
type File struct {
	name string
	key  string
	mode string

	r io.ReadCloser
	w io.WriteCloser
}

var _ = io.ReadWriteCloser(&File{})

func (f *File) Name() string { return f.name }
func (f *File) Key() string  { return f.key }

// Mode returns the normalized open mode, "r" or "w".
func (f *File) Mode() string { return f.mode }

func (f *File) Read(p []byte) (int, error) {
	if f.r == nil {
		return 0, util.EBADF
	}
	return f.r.Read(p)
}

func (f *File) Write(p []byte) (int, error) {
	if f.w == nil {
		return 0, util.EBADF
	}
	return f.w.Write(p)
}

// Close releases the read handle, or commits the written content.
func (f *File) Close() error {
	if f.w != nil {
		return f.w.Close()
	}
	return f.r.Close()
}
