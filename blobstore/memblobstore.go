package blobstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nyaxt/gocs/flags"
)

type memBlob struct {
	content []byte
	attrs   Attrs
}

// MemBlobStore keeps blobs in memory. Writes become visible on writer Close,
// which mirrors the object stores it stands in for.
type MemBlobStore struct {
	mu    sync.Mutex
	blobs map[string]*memBlob
	flags int

	// Now is used to stamp Attrs.CreatedAt. Defaults to time.Now.
	Now func() time.Time
}

var _ = Service(&MemBlobStore{})

func NewMemBlobStore() *MemBlobStore {
	return NewMemBlobStoreWithFlags(flags.O_RDWRCREATE)
}

func NewMemBlobStoreWithFlags(f int) *MemBlobStore {
	return &MemBlobStore{
		blobs: make(map[string]*memBlob),
		flags: f,
		Now:   time.Now,
	}
}

type memBlobWriter struct {
	bs       *MemBlobStore
	blobpath string
	opts     WriteOptions
	buf      bytes.Buffer
	closed   bool
}

var _ = Aborter(&memBlobWriter{})

func (w *memBlobWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	return w.buf.Write(p)
}

func (w *memBlobWriter) Close() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true

	content := make([]byte, w.buf.Len())
	copy(content, w.buf.Bytes())

	bs := w.bs
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.blobs[w.blobpath] = &memBlob{
		content: content,
		attrs: Attrs{
			Size:         int64(len(content)),
			ContentType:  w.opts.ContentType,
			CacheControl: w.opts.CacheControl,
			CreatedAt:    bs.Now(),
		},
	}
	return nil
}

func (w *memBlobWriter) Abort() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true
	w.buf.Reset()
	return nil
}

func (bs *MemBlobStore) OpenWriter(ctx context.Context, blobpath string, opts *WriteOptions) (io.WriteCloser, error) {
	if !flags.IsWriteAllowed(bs.flags) {
		return nil, EPERM
	}
	w := &memBlobWriter{bs: bs, blobpath: blobpath}
	if opts != nil {
		w.opts = *opts
	}
	return w, nil
}

func (bs *MemBlobStore) OpenReader(ctx context.Context, blobpath string) (io.ReadCloser, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b, ok := bs.blobs[blobpath]
	if !ok {
		return nil, ENOENT
	}
	return io.NopCloser(bytes.NewReader(b.content)), nil
}

func (bs *MemBlobStore) Stat(ctx context.Context, blobpath string) (Attrs, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b, ok := bs.blobs[blobpath]
	if !ok {
		return Attrs{}, ENOENT
	}
	return b.attrs, nil
}

func (bs *MemBlobStore) ListBlobs(ctx context.Context, prefix string) ([]string, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	ret := make([]string, 0)
	for bp := range bs.blobs {
		if strings.HasPrefix(bp, prefix) {
			ret = append(ret, bp)
		}
	}
	sort.Strings(ret)
	return ret, nil
}

func (bs *MemBlobStore) RemoveBlob(ctx context.Context, blobpath string) error {
	if !flags.IsWriteAllowed(bs.flags) {
		return EPERM
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()

	if _, ok := bs.blobs[blobpath]; !ok {
		return ENOENT
	}
	delete(bs.blobs, blobpath)
	return nil
}

// Content returns a copy of the blob content, or nil if it doesn't exist.
func (bs *MemBlobStore) Content(blobpath string) []byte {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b, ok := bs.blobs[blobpath]
	if !ok {
		return nil
	}
	ret := make([]byte, len(b.content))
	copy(ret, b.content)
	return ret
}

func (bs *MemBlobStore) Flags() int { return bs.flags }

func (*MemBlobStore) ImplName() string { return "MemBlobStore" }
