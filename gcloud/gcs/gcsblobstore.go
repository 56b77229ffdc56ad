package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/nyaxt/gocs/blobstore"
	oflags "github.com/nyaxt/gocs/flags"
	gutil "github.com/nyaxt/gocs/gcloud/util"
	oprometheus "github.com/nyaxt/gocs/prometheus"
)

const promSubsystem = "gcs"

var (
	issuedOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: oprometheus.Namespace,
			Subsystem: promSubsystem,
			Name:      "issued_ops",
			Help:      "Number of GCS API operations issued, partitioned by operation type",
		},
		[]string{"optype"})
	issuedOpenWriter = issuedOps.WithLabelValues("openWriter")
	issuedOpenReader = issuedOps.WithLabelValues("openReader")
	issuedStat       = issuedOps.WithLabelValues("stat")
	issuedListBlobs  = issuedOps.WithLabelValues("listBlobs")
	issuedRemoveBlob = issuedOps.WithLabelValues("removeBlob")
)

// predefinedACLs maps the backend neutral ACL names to GCS predefined ACLs.
var predefinedACLs = map[blobstore.ACL]string{
	blobstore.ACLDefault:    "",
	blobstore.ACLPublicRead: "publicRead",
}

type GCSBlobStore struct {
	projectName string
	bucketName  string
	flags       int
	client      *storage.Client
}

var _ = blobstore.Service(&GCSBlobStore{})

func NewGCSBlobStore(ctx context.Context, projectName string, bucketName string, tsrc oauth2.TokenSource, flags int) (*GCSBlobStore, error) {
	opts := []option.ClientOption{}
	if tsrc != nil {
		opts = append(opts, option.WithTokenSource(tsrc))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("Failed to create GCS client: %w", err)
	}

	zap.S().Named("gcs").Debugf("GCSBlobStore project %q bucket %q flags %s", projectName, bucketName, oflags.FlagsToString(flags))
	return &GCSBlobStore{
		projectName: projectName,
		bucketName:  bucketName,
		flags:       flags,
		client:      client,
	}, nil
}

func (bs *GCSBlobStore) object(blobpath string) *storage.ObjectHandle {
	return bs.client.Bucket(bs.bucketName).Object(blobpath)
}

func translateErr(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return blobstore.ENOENT
	}
	return err
}

type Writer struct {
	gcsw   *storage.Writer
	cancel context.CancelFunc
	closed bool
}

var _ = blobstore.Aborter(&Writer{})

func (bs *GCSBlobStore) OpenWriter(ctx context.Context, blobpath string, opts *blobstore.WriteOptions) (io.WriteCloser, error) {
	if !oflags.IsWriteAllowed(bs.flags) {
		return nil, blobstore.EPERM
	}
	if opts == nil {
		opts = &blobstore.WriteOptions{}
	}
	acl, ok := predefinedACLs[opts.ACL]
	if !ok {
		return nil, fmt.Errorf("Unsupported ACL %q", opts.ACL)
	}

	issuedOpenWriter.Inc()

	wctx, cancel := context.WithCancel(ctx)
	gcsw := bs.object(blobpath).NewWriter(wctx)
	gcsw.ContentType = opts.ContentType
	if gcsw.ContentType == "" {
		gcsw.ContentType = "application/octet-stream"
	}
	gcsw.CacheControl = opts.CacheControl
	gcsw.PredefinedACL = acl
	return &Writer{gcsw: gcsw, cancel: cancel}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, blobstore.ErrWriterClosed
	}
	return w.gcsw.Write(p)
}

func (w *Writer) Close() error {
	if w.closed {
		return blobstore.ErrWriterClosed
	}
	w.closed = true
	defer w.cancel()

	return translateErr(w.gcsw.Close())
}

// Abort cancels the upload. The object is not created.
func (w *Writer) Abort() error {
	if w.closed {
		return blobstore.ErrWriterClosed
	}
	w.closed = true

	w.cancel()
	if err := w.gcsw.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (bs *GCSBlobStore) OpenReader(ctx context.Context, blobpath string) (io.ReadCloser, error) {
	if !oflags.IsReadAllowed(bs.flags) {
		return nil, blobstore.EPERM
	}

	issuedOpenReader.Inc()

	var rc *storage.Reader
	err := gutil.RetryIfNeeded(ctx, "gcs.NewReader", func() (err error) {
		rc, err = bs.object(blobpath).NewReader(ctx)
		return
	})
	if err != nil {
		return nil, translateErr(err)
	}
	return rc, nil
}

func (bs *GCSBlobStore) Stat(ctx context.Context, blobpath string) (blobstore.Attrs, error) {
	issuedStat.Inc()

	var attrs *storage.ObjectAttrs
	err := gutil.RetryIfNeeded(ctx, "gcs.Attrs", func() (err error) {
		attrs, err = bs.object(blobpath).Attrs(ctx)
		return
	})
	if err != nil {
		return blobstore.Attrs{}, translateErr(err)
	}
	return blobstore.Attrs{
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		CacheControl: attrs.CacheControl,
		CreatedAt:    attrs.Created,
	}, nil
}

func (bs *GCSBlobStore) ListBlobs(ctx context.Context, prefix string) ([]string, error) {
	issuedListBlobs.Inc()

	ret := make([]string, 0)
	it := bs.client.Bucket(bs.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		ret = append(ret, attrs.Name)
	}
	return ret, nil
}

func (bs *GCSBlobStore) RemoveBlob(ctx context.Context, blobpath string) error {
	if !oflags.IsWriteAllowed(bs.flags) {
		return blobstore.EPERM
	}

	issuedRemoveBlob.Inc()
	return translateErr(gutil.RetryIfNeeded(ctx, "gcs.Delete", func() error {
		return bs.object(blobpath).Delete(ctx)
	}))
}

func (bs *GCSBlobStore) Flags() int {
	return bs.flags
}

func (bs *GCSBlobStore) Close() error {
	return bs.client.Close()
}

func (*GCSBlobStore) ImplName() string { return "GCSBlobStore" }
