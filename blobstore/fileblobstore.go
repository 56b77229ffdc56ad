package blobstore

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	fl "github.com/nyaxt/gocs/flags"
)

const fileBlobTmpDir = ".gocstmp"

// FileBlobStore stores each blob as a regular file under base. Blobpath
// segments separated by "/" become subdirectories. It is meant for local
// development and tests, standing in for a bucket.
type FileBlobStore struct {
	base  string
	flags int
}

var _ = Service(&FileBlobStore{})

func NewFileBlobStore(base string, flags int) (*FileBlobStore, error) {
	base = filepath.Clean(base)

	fi, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("Fstat base \"%s\" failed: %w", base, err)
	}
	if !fi.Mode().IsDir() {
		return nil, fmt.Errorf("Specified base \"%s\" is not a directory", base)
	}

	return &FileBlobStore{base, flags}, nil
}

func (f *FileBlobStore) realpath(blobpath string) string {
	return filepath.Join(f.base, filepath.FromSlash(path.Clean("/"+blobpath)))
}

type fileBlobWriter struct {
	fp       *os.File
	realpath string
	closed   bool
}

var _ = Aborter(&fileBlobWriter{})

func (w *fileBlobWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	return w.fp.Write(p)
}

func (w *fileBlobWriter) Close() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true

	if err := w.fp.Close(); err != nil {
		os.Remove(w.fp.Name())
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.realpath), 0755); err != nil {
		os.Remove(w.fp.Name())
		return err
	}
	if err := os.Rename(w.fp.Name(), w.realpath); err != nil {
		os.Remove(w.fp.Name())
		return err
	}
	return nil
}

func (w *fileBlobWriter) Abort() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true

	w.fp.Close()
	return os.Remove(w.fp.Name())
}

func (f *FileBlobStore) OpenWriter(ctx context.Context, blobpath string, opts *WriteOptions) (io.WriteCloser, error) {
	if !fl.IsWriteAllowed(f.flags) {
		return nil, EPERM
	}

	tmpdir := filepath.Join(f.base, fileBlobTmpDir)
	if err := os.MkdirAll(tmpdir, 0755); err != nil {
		return nil, err
	}
	fp, err := os.CreateTemp(tmpdir, "w")
	if err != nil {
		return nil, err
	}
	return &fileBlobWriter{fp: fp, realpath: f.realpath(blobpath)}, nil
}

func (f *FileBlobStore) OpenReader(ctx context.Context, blobpath string) (io.ReadCloser, error) {
	if !fl.IsReadAllowed(f.flags) {
		return nil, EPERM
	}

	fp, err := os.Open(f.realpath(blobpath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ENOENT
		}
		return nil, err
	}
	return fp, nil
}

func (f *FileBlobStore) Stat(ctx context.Context, blobpath string) (Attrs, error) {
	fi, err := os.Stat(f.realpath(blobpath))
	if err != nil {
		if os.IsNotExist(err) {
			return Attrs{}, ENOENT
		}
		return Attrs{}, err
	}
	if !fi.Mode().IsRegular() {
		return Attrs{}, ENOENT
	}

	return Attrs{
		Size:        fi.Size(),
		ContentType: mime.TypeByExtension(path.Ext(blobpath)),
		CreatedAt:   fi.ModTime(),
	}, nil
}

func (f *FileBlobStore) ListBlobs(ctx context.Context, prefix string) ([]string, error) {
	lead := ""
	if strings.HasPrefix(prefix, "/") {
		lead = "/"
	}

	tmpdir := filepath.Join(f.base, fileBlobTmpDir)
	ret := make([]string, 0)
	err := filepath.WalkDir(f.base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == tmpdir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(f.base, p)
		if err != nil {
			return err
		}
		bp := lead + filepath.ToSlash(rel)
		if strings.HasPrefix(bp, prefix) {
			ret = append(ret, bp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ret)
	return ret, nil
}

func (f *FileBlobStore) RemoveBlob(ctx context.Context, blobpath string) error {
	if !fl.IsWriteAllowed(f.flags) {
		return EPERM
	}

	rp := f.realpath(blobpath)
	if err := os.Remove(rp); err != nil {
		if os.IsNotExist(err) {
			return ENOENT
		}
		return err
	}

	// Drop now-empty parent dirs so they don't linger as phantom prefixes.
	for dir := filepath.Dir(rp); dir != f.base && strings.HasPrefix(dir, f.base); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			break
		}
		zap.S().Named("fileblobstore").Debugf("Removed empty dir %q", dir)
	}
	return nil
}

func (f *FileBlobStore) Flags() int {
	return f.flags
}

func (f *FileBlobStore) GetBase() string {
	return f.base
}

func (*FileBlobStore) ImplName() string { return "FileBlobStore" }
