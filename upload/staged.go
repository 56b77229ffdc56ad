// Package upload stages incoming uploads in a temporary blob until the
// receiver decides to keep or discard them.
//
// A StagedFile moves through three states: Receiving, where bytes are
// appended to a write handle on a freshly allocated temporary key, and one of
// FinalizedDiscarded or FinalizedKept. A kept file is reopened for read over
// the same key and can be handed to storage.Storage.Save as its content.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/nyaxt/gocs/blobstore"
	oprometheus "github.com/nyaxt/gocs/prometheus"
	"github.com/nyaxt/gocs/util"
)

const (
	DefaultMaxAttempts = 16

	stagingSuffix   = ".upload"
	randomSuffixLen = 7
)

var (
	ErrTempKeyExhausted = errors.New("upload: no free staging key left")
	ErrInvalidState     = errors.New("upload: operation invalid in current state")
	ErrInvalidName      = errors.New("upload: name escapes the staging root")
)

const promSubsystem = "upload"

var (
	begunUploads = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: oprometheus.Namespace,
			Subsystem: promSubsystem,
			Name:      "begun",
			Help:      "Number of staged uploads begun",
		})
	completedUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: oprometheus.Namespace,
			Subsystem: promSubsystem,
			Name:      "completed",
			Help:      "Number of staged uploads finalized, partitioned by result",
		},
		[]string{"result"})
	keyCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: oprometheus.Namespace,
			Subsystem: promSubsystem,
			Name:      "key_collisions",
			Help:      "Number of staging key candidates rejected because a blob already existed",
		})
	receivedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: oprometheus.Namespace,
			Subsystem: promSubsystem,
			Name:      "received_bytes",
			Help:      "Number of bytes appended to staged uploads",
		})
)

func slog() *zap.SugaredLogger { return zap.S().Named("upload") }

type State int

const (
	Receiving State = iota
	FinalizedDiscarded
	FinalizedKept
)

func (s State) String() string {
	switch s {
	case Receiving:
		return "Receiving"
	case FinalizedDiscarded:
		return "FinalizedDiscarded"
	case FinalizedKept:
		return "FinalizedKept"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Config struct {
	// StagingRoot is the key prefix temporary blobs are allocated under.
	StagingRoot string

	// MaxAttempts bounds the number of staging key candidates tried.
	// Defaults to DefaultMaxAttempts.
	MaxAttempts int
}

// StagedFile is an upload in flight. It is owned by a single upload flow
// and is not safe for concurrent use.
type StagedFile struct {
	bs blobstore.Service

	name        string
	key         string
	contentType string
	charset     string

	state   State
	size    int64
	written int64

	w io.WriteCloser
	r io.ReadCloser
}

var _ = io.ReadWriteCloser(&StagedFile{})

func blobExists(ctx context.Context, bs blobstore.BlobStater, key string) (bool, error) {
	if _, err := bs.Stat(ctx, key); err != nil {
		if blobstore.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// allocateKey returns a staging key for name which no blob occupies. The
// first candidate is "<root>/<name>.upload". Each following candidate
// appends a fresh random suffix to it.
func allocateKey(ctx context.Context, bs blobstore.BlobStater, root, name string, maxAttempts int) (string, error) {
	base := util.JoinKey(root, name+stagingSuffix)
	if !util.IsKeyUnder(util.JoinKey(root, ""), base) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	candidate := base
	for i := 0; i < maxAttempts; i++ {
		exists, err := blobExists(ctx, bs, candidate)
		if err != nil {
			return "", fmt.Errorf("Failed to check staging key %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		keyCollisions.Inc()
		slog().Debugf("Staging key %q taken, retrying", candidate)
		candidate = base + util.RandomString(randomSuffixLen)
	}
	return "", fmt.Errorf("%w: %d candidates for %q", ErrTempKeyExhausted, maxAttempts, base)
}

// Begin allocates a staging key for name and opens it for write.
func Begin(ctx context.Context, bs blobstore.Service, cfg Config, name, contentType, charset string) (*StagedFile, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	key, err := allocateKey(ctx, bs, cfg.StagingRoot, name, maxAttempts)
	if err != nil {
		return nil, err
	}
	w, err := bs.OpenWriter(ctx, key, &blobstore.WriteOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("Failed to open staging blob %q: %w", key, err)
	}

	begunUploads.Inc()
	slog().Debugf("Staging upload %q at %q", name, key)
	return &StagedFile{
		bs:          bs,
		name:        name,
		key:         key,
		contentType: contentType,
		charset:     charset,
		state:       Receiving,
		w:           w,
	}, nil
}

func (f *StagedFile) Name() string        { return f.name }
func (f *StagedFile) Key() string         { return f.key }
func (f *StagedFile) ContentType() string { return f.contentType }
func (f *StagedFile) Charset() string     { return f.charset }
func (f *StagedFile) State() State        { return f.state }

// Size is the declared size, set by Complete.
func (f *StagedFile) Size() int64 { return f.size }

// Written is the number of bytes appended so far.
func (f *StagedFile) Written() int64 { return f.written }

func (f *StagedFile) Append(p []byte) (int, error) {
	if f.state != Receiving {
		return 0, fmt.Errorf("%w: append in %v", ErrInvalidState, f.state)
	}
	n, err := f.w.Write(p)
	f.written += int64(n)
	receivedBytes.Add(float64(n))
	return n, err
}

func (f *StagedFile) Write(p []byte) (int, error) { return f.Append(p) }

// closeWriter closes the write handle, tolerating the handle or its blob
// being gone already. If discard is set, the content is aborted where the
// backend allows it.
func (f *StagedFile) closeWriter(discard bool) error {
	w := f.w
	f.w = nil

	var err error
	if a, ok := w.(blobstore.Aborter); ok && discard {
		err = a.Abort()
	} else {
		err = w.Close()
	}
	if err != nil {
		if blobstore.IsGone(err) {
			slog().Debugf("Ignoring close of gone staging writer %q: %v", f.key, err)
			return nil
		}
		return err
	}
	return nil
}

func (f *StagedFile) removeBlob(ctx context.Context) error {
	if err := f.bs.RemoveBlob(ctx, f.key); err != nil && !blobstore.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *StagedFile) discard(ctx context.Context) error {
	var errs []error

	_, abortable := f.w.(blobstore.Aborter)
	if abortable {
		if err := f.removeBlob(ctx); err != nil {
			errs = append(errs, fmt.Errorf("remove staging blob: %w", err))
		}
		if err := f.closeWriter(true); err != nil {
			errs = append(errs, fmt.Errorf("abort staging writer: %w", err))
		}
	} else {
		// Closing commits the content, so the blob is removed afterwards.
		if err := f.closeWriter(true); err != nil {
			errs = append(errs, fmt.Errorf("close staging writer: %w", err))
		}
		if err := f.removeBlob(ctx); err != nil {
			errs = append(errs, fmt.Errorf("remove staging blob: %w", err))
		}
	}
	f.state = FinalizedDiscarded
	completedUploads.WithLabelValues("discarded").Inc()
	return util.ToErrors(errs)
}

// abandonKept discards a staging blob whose keep failed after the writer
// was closed.
func (f *StagedFile) abandonKept(ctx context.Context, step string) {
	f.state = FinalizedDiscarded
	completedUploads.WithLabelValues("discarded").Inc()
	if err := f.removeBlob(ctx); err != nil {
		slog().Warnf("Failed to remove staging blob %q after failed %s: %v", f.key, step, err)
	}
}

func (f *StagedFile) keep(ctx context.Context) error {
	if err := f.closeWriter(false); err != nil {
		f.abandonKept(ctx, "close")
		return fmt.Errorf("close staging writer: %w", err)
	}

	r, err := f.bs.OpenReader(ctx, f.key)
	if err != nil {
		f.abandonKept(ctx, "reopen")
		return fmt.Errorf("reopen staging blob %q: %w", f.key, err)
	}
	f.r = r
	f.state = FinalizedKept
	completedUploads.WithLabelValues("kept").Inc()
	slog().Debugf("Staged upload %q complete: %s at %q", f.name, humanize.IBytes(uint64(f.size)), f.key)
	return nil
}

// Complete records size as the declared size and finalizes the upload. With
// keep the staged bytes become readable through Read, otherwise the staging
// blob is removed.
func (f *StagedFile) Complete(ctx context.Context, size int64, keep bool) error {
	if f.state != Receiving {
		return fmt.Errorf("%w: complete in %v", ErrInvalidState, f.state)
	}
	f.size = size
	if size != f.written {
		slog().Warnf("Staged upload %q declared size %d differs from %d bytes received", f.name, size, f.written)
	}

	if keep {
		return f.keep(ctx)
	}
	return f.discard(ctx)
}

func (f *StagedFile) Read(p []byte) (int, error) {
	if f.state != FinalizedKept || f.r == nil {
		return 0, fmt.Errorf("%w: read in %v", ErrInvalidState, f.state)
	}
	return f.r.Read(p)
}

// Close discards a Receiving upload. On a kept upload it closes the read
// handle and removes the staging blob. Closing a discarded upload is a no-op.
func (f *StagedFile) Close() error {
	switch f.state {
	case Receiving:
		return f.Complete(context.Background(), f.written, false)

	case FinalizedKept:
		r := f.r
		f.r = nil
		f.state = FinalizedDiscarded

		var errs []error
		if err := r.Close(); err != nil && !blobstore.IsGone(err) {
			errs = append(errs, fmt.Errorf("close staging reader: %w", err))
		}
		if err := f.removeBlob(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("remove staging blob: %w", err))
		}
		return util.ToErrors(errs)

	default:
		return nil
	}
}
