package testutils

import (
	"context"
	"io"

	"github.com/nyaxt/gocs/blobstore"
)

// FaultBlobStore forwards to BE, letting tests intercept individual calls.
// A nil hook forwards unchanged.
type FaultBlobStore struct {
	BE blobstore.Service

	OnOpenWriter  func(blobpath string, opts *blobstore.WriteOptions)
	WrapWriter    func(orig io.WriteCloser) (io.WriteCloser, error)
	OpenReaderErr func(blobpath string) error
	StatErr       func(blobpath string) error
	RemoveErr     func(blobpath string) error
	ListErr       error

	NumStat int
}

var _ = blobstore.Service(&FaultBlobStore{})

func (bs *FaultBlobStore) OpenWriter(ctx context.Context, blobpath string, opts *blobstore.WriteOptions) (io.WriteCloser, error) {
	if bs.OnOpenWriter != nil {
		bs.OnOpenWriter(blobpath, opts)
	}
	orig, err := bs.BE.OpenWriter(ctx, blobpath, opts)
	if err != nil {
		return nil, err
	}
	if bs.WrapWriter == nil {
		return orig, nil
	}
	return bs.WrapWriter(orig)
}

func (bs *FaultBlobStore) OpenReader(ctx context.Context, blobpath string) (io.ReadCloser, error) {
	if bs.OpenReaderErr != nil {
		if err := bs.OpenReaderErr(blobpath); err != nil {
			return nil, err
		}
	}
	return bs.BE.OpenReader(ctx, blobpath)
}

func (bs *FaultBlobStore) Stat(ctx context.Context, blobpath string) (blobstore.Attrs, error) {
	bs.NumStat++
	if bs.StatErr != nil {
		if err := bs.StatErr(blobpath); err != nil {
			return blobstore.Attrs{}, err
		}
	}
	return bs.BE.Stat(ctx, blobpath)
}

func (bs *FaultBlobStore) ListBlobs(ctx context.Context, prefix string) ([]string, error) {
	if bs.ListErr != nil {
		return nil, bs.ListErr
	}
	return bs.BE.ListBlobs(ctx, prefix)
}

func (bs *FaultBlobStore) RemoveBlob(ctx context.Context, blobpath string) error {
	if bs.RemoveErr != nil {
		if err := bs.RemoveErr(blobpath); err != nil {
			return err
		}
	}
	return bs.BE.RemoveBlob(ctx, blobpath)
}

// CloseErrWriter wraps a writer so that Close closes the wrapped writer and then
// reports Err regardless.
type CloseErrWriter struct {
	io.WriteCloser
	Err error
}

func (w CloseErrWriter) Close() error {
	w.WriteCloser.Close()
	return w.Err
}
