// Package awss3 implements blobstore.Service on Amazon S3 using aws-sdk-go-v2.
package awss3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/nyaxt/gocs/blobstore"
	oflags "github.com/nyaxt/gocs/flags"
	"github.com/nyaxt/gocs/version"
)

var errAborted = errors.New("s3: upload aborted")

// Client is the subset of *s3.Client used by S3BlobStore.
type Client interface {
	manager.UploadAPIClient
	s3.HeadObjectAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var cannedACLs = map[blobstore.ACL]types.ObjectCannedACL{
	blobstore.ACLDefault:    "",
	blobstore.ACLPublicRead: types.ObjectCannedACLPublicRead,
}

type S3BlobStore struct {
	client Client
	bucket string
	flags  int
}

var _ = blobstore.Service(&S3BlobStore{})

func New(client Client, bucket string, flags int) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket, flags: flags}
}

type Config struct {
	Region string

	// Endpoint switches to path-style addressing against an S3 compatible
	// server.
	Endpoint string

	// AccessKeyID and SecretAccessKey override the default credential chain.
	AccessKeyID     string
	SecretAccessKey string
}

func NewFromConfig(ctx context.Context, c Config, bucket string, flags int) (*S3BlobStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	if c.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("Failed to load AWS config: %w", err)
	}
	cfg.APIOptions = append(cfg.APIOptions, addUserAgent)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, bucket, flags), nil
}

func addUserAgent(stack *middleware.Stack) error {
	return stack.Build.Add(middleware.BuildMiddlewareFunc("gocsUserAgent", func(
		ctx context.Context, in middleware.BuildInput, next middleware.BuildHandler,
	) (middleware.BuildOutput, middleware.Metadata, error) {
		if req, ok := in.Request.(*smithyhttp.Request); ok {
			ua := req.Header.Get("User-Agent")
			if ua != "" {
				ua += " "
			}
			req.Header.Set("User-Agent", ua+"gocs/"+version.BuildVersion)
		}
		return next.HandleBuild(ctx, in)
	}), middleware.After)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	// S3 compatible servers don't always produce the typed errors.
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func translateErr(err error) error {
	if err != nil && isNotFound(err) {
		return blobstore.ENOENT
	}
	return err
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

type writer struct {
	pw     *io.PipeWriter
	done   chan error
	cancel context.CancelFunc
	closed bool
}

var _ = blobstore.Aborter(&writer{})

func (bs *S3BlobStore) OpenWriter(ctx context.Context, blobpath string, opts *blobstore.WriteOptions) (io.WriteCloser, error) {
	if !oflags.IsWriteAllowed(bs.flags) {
		return nil, blobstore.EPERM
	}
	if opts == nil {
		opts = &blobstore.WriteOptions{}
	}
	acl, ok := cannedACLs[opts.ACL]
	if !ok {
		return nil, fmt.Errorf("Unsupported ACL %q", opts.ACL)
	}

	input := &s3.PutObjectInput{
		Bucket:       aws.String(bs.bucket),
		Key:          aws.String(blobpath),
		ContentType:  optionalString(opts.ContentType),
		CacheControl: optionalString(opts.CacheControl),
		ACL:          acl,
	}

	pr, pw := io.Pipe()
	input.Body = pr
	wctx, cancel := context.WithCancel(ctx)
	w := &writer{pw: pw, done: make(chan error, 1), cancel: cancel}

	uploader := manager.NewUploader(bs.client)
	go func() {
		_, err := uploader.Upload(wctx, input)
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

func (bs *S3BlobStore) OpenReader(ctx context.Context, blobpath string) (io.ReadCloser, error) {
	if !oflags.IsReadAllowed(bs.flags) {
		return nil, blobstore.EPERM
	}

	out, err := bs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bs.bucket),
		Key:    aws.String(blobpath),
	})
	if err != nil {
		return nil, translateErr(err)
	}
	return out.Body, nil
}

func (bs *S3BlobStore) Stat(ctx context.Context, blobpath string) (blobstore.Attrs, error) {
	head, err := bs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bs.bucket),
		Key:    aws.String(blobpath),
	})
	if err != nil {
		return blobstore.Attrs{}, translateErr(err)
	}

	// S3 keeps no creation time; LastModified is the time of the last PUT.
	return blobstore.Attrs{
		Size:         aws.ToInt64(head.ContentLength),
		ContentType:  aws.ToString(head.ContentType),
		CacheControl: aws.ToString(head.CacheControl),
		CreatedAt:    aws.ToTime(head.LastModified),
	}, nil
}

func (bs *S3BlobStore) ListBlobs(ctx context.Context, prefix string) ([]string, error) {
	ret := make([]string, 0)
	paginator := s3.NewListObjectsV2Paginator(bs.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bs.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				ret = append(ret, *obj.Key)
			}
		}
	}
	return ret, nil
}

// RemoveBlob deletes the object. S3 reports success for missing keys, so
// ENOENT is never returned here.
func (bs *S3BlobStore) RemoveBlob(ctx context.Context, blobpath string) error {
	if !oflags.IsWriteAllowed(bs.flags) {
		return blobstore.EPERM
	}
	_, err := bs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bs.bucket),
		Key:    aws.String(blobpath),
	})
	return translateErr(err)
}

func (bs *S3BlobStore) Flags() int { return bs.flags }

func (*S3BlobStore) ImplName() string { return "S3BlobStore" }
