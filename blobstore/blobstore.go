package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/nyaxt/gocs/util"
)

const (
	// ENOENT is returned (possibly wrapped) when a blob does not exist.
	// errors.Is(ENOENT, fs.ErrNotExist) holds.
	ENOENT = util.ENOENT
	EPERM  = util.EPERM
)

// ErrWriterClosed is returned by writers which were already closed or
// aborted. Callers finalizing an upload treat it as benign.
var ErrWriterClosed = errors.New("blob writer already closed")

type ACL string

const (
	ACLDefault    ACL = ""
	ACLPublicRead ACL = "public-read"
)

// WriteOptions are the object-level options applied when a blob is created.
type WriteOptions struct {
	ContentType  string
	CacheControl string
	ACL          ACL
}

// Attrs is the metadata of a blob as reported by the backend at the time of
// the Stat call.
type Attrs struct {
	Size         int64
	ContentType  string
	CacheControl string
	CreatedAt    time.Time
}

type BlobStore interface {
	OpenWriter(ctx context.Context, blobpath string, opts *WriteOptions) (io.WriteCloser, error)
	OpenReader(ctx context.Context, blobpath string) (io.ReadCloser, error)
}

type BlobStater interface {
	Stat(ctx context.Context, blobpath string) (Attrs, error)
}

type BlobLister interface {
	// ListBlobs returns every blobpath starting with prefix, recursively.
	ListBlobs(ctx context.Context, prefix string) ([]string, error)
}

type BlobRemover interface {
	RemoveBlob(ctx context.Context, blobpath string) error
}

// Service is the full blob service contract consumed by storage and upload.
type Service interface {
	BlobStore
	BlobStater
	BlobLister
	BlobRemover
}

// Aborter is implemented by writers which can discard the pending content
// without committing it to the backend.
type Aborter interface {
	Abort() error
}

func IsNotExist(err error) bool {
	return util.IsNotExist(err)
}

// IsGone reports whether err signals that the blob or its handle has already
// been removed or closed. Any other I/O failure returns false.
func IsGone(err error) bool {
	if err == nil {
		return false
	}
	return IsNotExist(err) ||
		errors.Is(err, ErrWriterClosed) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}
