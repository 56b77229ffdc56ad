// Package storage presents path based file storage (open, save, delete,
// exists, listdir, url and stat queries) on top of a flat blob service.
//
// Logical names are joined to the configured location to form blob keys.
// Directories are never stored; ListDir infers them from common key
// prefixes. Storage keeps no mutable state and is safe for concurrent use.
// Concurrent saves to the same name are plain overwrites: last writer wins.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/nyaxt/gocs/blobstore"
	oprometheus "github.com/nyaxt/gocs/prometheus"
	"github.com/nyaxt/gocs/util"
)

const (
	DefaultChunkSize   = 64 * 1024
	defaultContentType = "application/octet-stream"
)

var (
	ErrNotImplemented = errors.New("storage: operation not supported by the blob service")
	ErrInvalidMode    = errors.New("storage: invalid open mode")
	ErrInvalidName    = errors.New("storage: name escapes the storage location")
)

const promSubsystem = "storage"

var (
	issuedOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: oprometheus.Namespace,
			Subsystem: promSubsystem,
			Name:      "issued_ops",
			Help:      "Number of Storage operations issued, partitioned by operation type",
		},
		[]string{"optype"})
	issuedOpen    = issuedOps.WithLabelValues("open")
	issuedSave    = issuedOps.WithLabelValues("save")
	issuedDelete  = issuedOps.WithLabelValues("delete")
	issuedStat    = issuedOps.WithLabelValues("stat")
	issuedListDir = issuedOps.WithLabelValues("listdir")

	savedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: oprometheus.Namespace,
			Subsystem: promSubsystem,
			Name:      "saved_bytes",
			Help:      "Number of content bytes copied to the blob service by Save",
		})
	ignoredSourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: oprometheus.Namespace,
			Subsystem: promSubsystem,
			Name:      "ignored_source_errors",
			Help:      "Number of content source open/close failures ignored under the BestEffort policy",
		},
		[]string{"phase"})
)

func slog() *zap.SugaredLogger { return zap.S().Named("storage") }

type Config struct {
	// Location is the key prefix all logical names are stored under.
	Location string

	// BaseURL is the public URL of Location. Used when URLResolver is nil.
	BaseURL string

	// CacheControl is set on every blob written through Open or Save.
	CacheControl string

	URLResolver URLResolver

	// SourcePolicy decides what Save does when the content source fails to
	// open or close.
	SourcePolicy SourcePolicy

	// ChunkSize is the size of each sequential write issued by Save.
	// Defaults to DefaultChunkSize.
	ChunkSize int
}

type Storage struct {
	bs           blobstore.Service
	location     string
	cacheControl string
	resolver     URLResolver
	policy       SourcePolicy
	chunkSize    int
}

func New(bs blobstore.Service, cfg Config) (*Storage, error) {
	if bs == nil {
		return nil, fmt.Errorf("storage: nil blob service")
	}
	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("storage: invalid ChunkSize %d", cfg.ChunkSize)
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.URLResolver == nil {
		cfg.URLResolver = PublicURLResolver{BaseURL: cfg.BaseURL}
	}

	location := ""
	if cfg.Location != "" {
		location = path.Clean(cfg.Location)
	}

	return &Storage{
		bs:           bs,
		location:     location,
		cacheControl: cfg.CacheControl,
		resolver:     cfg.URLResolver,
		policy:       cfg.SourcePolicy,
		chunkSize:    cfg.ChunkSize,
	}, nil
}

func (s *Storage) Location() string { return s.location }

// BlobKey returns the normalized blob key for the logical name.
func (s *Storage) BlobKey(name string) (string, error) {
	key := util.JoinKey(s.location, name)
	if !util.IsKeyUnder(s.location, key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return key, nil
}

// GuessContentType looks up the MIME type by the name's extension.
func GuessContentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}

func (s *Storage) writeOptions(name string) *blobstore.WriteOptions {
	return &blobstore.WriteOptions{
		ContentType:  GuessContentType(name),
		CacheControl: s.cacheControl,
		ACL:          blobstore.ACLPublicRead,
	}
}

// Open returns a handle on the blob of name. "r" and "rb" open for read and
// fail with blobstore.ENOENT if the blob doesn't exist. "w" and "wb" open
// for write; the blob is created or replaced on Close.
func (s *Storage) Open(ctx context.Context, name, mode string) (*File, error) {
	issuedOpen.Inc()

	key, err := s.BlobKey(name)
	if err != nil {
		return nil, err
	}

	switch mode {
	case "r", "rb":
		r, err := s.bs.OpenReader(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", name, err)
		}
		return &File{name: name, key: key, mode: "r", r: r}, nil

	case "w", "wb":
		w, err := s.bs.OpenWriter(ctx, key, s.writeOptions(name))
		if err != nil {
			return nil, fmt.Errorf("open %q for write: %w", name, err)
		}
		return &File{name: name, key: key, mode: "w", w: w}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// Save writes content to the blob of name and returns name unchanged. An
// existing blob is overwritten.
//
// A content implementing io.Closer is closed once the copy ends, even when
// the copy failed. Closing a kept upload.StagedFile removes its staging
// blob, so a failed Save cannot be retried from the same StagedFile.
func (s *Storage) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	issuedSave.Inc()

	if content == nil {
		return "", fmt.Errorf("save %q: nil content", name)
	}
	key, err := s.BlobKey(name)
	if err != nil {
		return "", err
	}

	w, err := s.bs.OpenWriter(ctx, key, s.writeOptions(name))
	if err != nil {
		return "", fmt.Errorf("save %q: %w", name, err)
	}

	if err := s.openSource(content); err != nil {
		abortOrClose(w)
		return "", fmt.Errorf("save %q: %w", name, err)
	}
	n, cerr := copyChunks(w, content, s.chunkSize)
	serr := s.closeSource(content)

	if cerr != nil {
		abortOrClose(w)
		return "", fmt.Errorf("save %q: copy failed after %d bytes: %w", name, n, cerr)
	}
	if serr != nil {
		abortOrClose(w)
		return "", fmt.Errorf("save %q: %w", name, serr)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("save %q: close: %w", name, err)
	}

	savedBytes.Add(float64(n))
	slog().Debugf("Saved %q as %q: %d bytes", name, key, n)
	return name, nil
}

func copyChunks(dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	buf := make([]byte, chunkSize)
	var total int64
	for {
		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// abortOrClose discards w if the backend supports it, so a failed save
// leaves the previous blob in place.
func abortOrClose(w io.WriteCloser) {
	var err error
	if a, ok := w.(blobstore.Aborter); ok {
		err = a.Abort()
	} else {
		err = w.Close()
	}
	if err != nil && !blobstore.IsGone(err) {
		slog().Warnf("Failed to discard partially written blob: %v", err)
	}
}

// Delete removes the blob of name. Deleting a missing blob succeeds.
func (s *Storage) Delete(ctx context.Context, name string) error {
	issuedDelete.Inc()

	key, err := s.BlobKey(name)
	if err != nil {
		return err
	}
	if err := s.bs.RemoveBlob(ctx, key); err != nil {
		if blobstore.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("delete %q: %w", name, err)
	}
	return nil
}

// Stat queries the blob service for the current attributes of name. The
// result is never cached.
func (s *Storage) Stat(ctx context.Context, name string) (blobstore.Attrs, error) {
	issuedStat.Inc()

	key, err := s.BlobKey(name)
	if err != nil {
		return blobstore.Attrs{}, err
	}
	attrs, err := s.bs.Stat(ctx, key)
	if err != nil {
		return blobstore.Attrs{}, fmt.Errorf("stat %q: %w", name, err)
	}
	return attrs, nil
}

func (s *Storage) Exists(ctx context.Context, name string) (bool, error) {
	if _, err := s.Stat(ctx, name); err != nil {
		if blobstore.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Storage) Size(ctx context.Context, name string) (int64, error) {
	attrs, err := s.Stat(ctx, name)
	if err != nil {
		return -1, err
	}
	return attrs.Size, nil
}

func (s *Storage) CreatedTime(ctx context.Context, name string) (time.Time, error) {
	attrs, err := s.Stat(ctx, name)
	if err != nil {
		return time.Time{}, err
	}
	return attrs.CreatedAt, nil
}

// ModifiedTime is the same as CreatedTime. The blob service keeps no
// separate modification timestamp.
func (s *Storage) ModifiedTime(ctx context.Context, name string) (time.Time, error) {
	return s.CreatedTime(ctx, name)
}

// AccessedTime always fails with ErrNotImplemented.
func (s *Storage) AccessedTime(ctx context.Context, name string) (time.Time, error) {
	return time.Time{}, ErrNotImplemented
}

// URL returns the URL the blob of name is served at.
func (s *Storage) URL(name string) (string, error) {
	key, err := s.BlobKey(name)
	if err != nil {
		return "", err
	}
	return s.resolver.URL(key, name)
}
