// Package minio implements blobstore.Service on S3 compatible servers through
// minio-go. It is also the usual way to run gocs against a local emulator.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nyaxt/gocs/blobstore"
	oflags "github.com/nyaxt/gocs/flags"
)

var errAborted = errors.New("minio: upload aborted")

type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Secure          bool
	Region          string
}

type MinioBlobStore struct {
	client *minio.Client
	bucket string
	flags  int
}

var _ = blobstore.Service(&MinioBlobStore{})

func New(client *minio.Client, bucket string, flags int) *MinioBlobStore {
	return &MinioBlobStore{client: client, bucket: bucket, flags: flags}
}

func NewFromConfig(cfg Config, bucket string, flags int) (*MinioBlobStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to create minio client for %q: %w", cfg.Endpoint, err)
	}
	return New(client, bucket, flags), nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func translateErr(err error) error {
	if err != nil && isNotFound(err) {
		return blobstore.ENOENT
	}
	return err
}

func putObjectOptions(opts *blobstore.WriteOptions) minio.PutObjectOptions {
	po := minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	}
	if opts.ACL != blobstore.ACLDefault {
		po.UserMetadata = map[string]string{"x-amz-acl": string(opts.ACL)}
	}
	return po
}

type writer struct {
	pw     *io.PipeWriter
	done   chan error
	cancel context.CancelFunc
	closed bool
}

var _ = blobstore.Aborter(&writer{})

func (bs *MinioBlobStore) OpenWriter(ctx context.Context, blobpath string, opts *blobstore.WriteOptions) (io.WriteCloser, error) {
	if !oflags.IsWriteAllowed(bs.flags) {
		return nil, blobstore.EPERM
	}
	if opts == nil {
		opts = &blobstore.WriteOptions{}
	}

	pr, pw := io.Pipe()
	wctx, cancel := context.WithCancel(ctx)
	w := &writer{pw: pw, done: make(chan error, 1), cancel: cancel}

	// Streams until the pipe is closed; size -1 makes minio-go use multipart.
	go func() {
		_, err := bs.client.PutObject(wctx, bs.bucket, blobpath, pr, -1, putObjectOptions(opts))
		pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, blobstore.ErrWriterClosed
	}
	return w.pw.Write(p)
}

func (w *writer) Close() error {
	if w.closed {
		return blobstore.ErrWriterClosed
	}
	w.closed = true
	defer w.cancel()

	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

func (w *writer) Abort() error {
	if w.closed {
		return blobstore.ErrWriterClosed
	}
	w.closed = true

	w.pw.CloseWithError(errAborted)
	w.cancel()
	<-w.done
	return nil
}

func (bs *MinioBlobStore) OpenReader(ctx context.Context, blobpath string) (io.ReadCloser, error) {
	if !oflags.IsReadAllowed(bs.flags) {
		return nil, blobstore.EPERM
	}

	// GetObject is lazy; stat first so a missing key fails here.
	if _, err := bs.client.StatObject(ctx, bs.bucket, blobpath, minio.StatObjectOptions{}); err != nil {
		return nil, translateErr(err)
	}
	obj, err := bs.client.GetObject(ctx, bs.bucket, blobpath, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateErr(err)
	}
	return obj, nil
}

func (bs *MinioBlobStore) Stat(ctx context.Context, blobpath string) (blobstore.Attrs, error) {
	info, err := bs.client.StatObject(ctx, bs.bucket, blobpath, minio.StatObjectOptions{})
	if err != nil {
		return blobstore.Attrs{}, translateErr(err)
	}
	return blobstore.Attrs{
		Size:         info.Size,
		ContentType:  info.ContentType,
		CacheControl: info.Metadata.Get("Cache-Control"),
		CreatedAt:    info.LastModified,
	}, nil
}

func (bs *MinioBlobStore) ListBlobs(ctx context.Context, prefix string) ([]string, error) {
	ret := make([]string, 0)
	for obj := range bs.client.ListObjects(ctx, bs.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		ret = append(ret, obj.Key)
	}
	return ret, nil
}

// RemoveBlob deletes the object. S3 reports success for missing keys, so
// ENOENT is never returned here.
func (bs *MinioBlobStore) RemoveBlob(ctx context.Context, blobpath string) error {
	if !oflags.IsWriteAllowed(bs.flags) {
		return blobstore.EPERM
	}
	return translateErr(bs.client.RemoveObject(ctx, bs.bucket, blobpath, minio.RemoveObjectOptions{}))
}

func (bs *MinioBlobStore) Flags() int { return bs.flags }

func (*MinioBlobStore) ImplName() string { return "MinioBlobStore" }
