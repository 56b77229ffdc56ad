package facade

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/nyaxt/gocs/awss3"
	"github.com/nyaxt/gocs/blobstore"
	oflags "github.com/nyaxt/gocs/flags"
	"github.com/nyaxt/gocs/gcloud/auth"
	"github.com/nyaxt/gocs/gcloud/gcs"
	"github.com/nyaxt/gocs/minio"
	"github.com/nyaxt/gocs/util"
)

// NewBlobService instantiates the blob service backend selected by
// cfg.Backend.
func NewBlobService(ctx context.Context, cfg *Config) (blobstore.Service, error) {
	flags := oflags.O_RDWRCREATE
	if cfg.ReadOnly {
		flags = oflags.O_RDONLY
	}

	bs, err := newBlobService(ctx, cfg, flags)
	if err != nil {
		return nil, err
	}
	zap.S().Named("facade").Debugf("Blob service: %s flags %s", util.TryGetImplName(bs), oflags.FlagsToString(flags))
	return bs, nil
}

func newBlobService(ctx context.Context, cfg *Config, flags int) (blobstore.Service, error) {
	switch cfg.Backend {
	case BackendGCS:
		tsrc, err := auth.GetGCloudTokenSource(ctx, cfg.CredentialsFilePath)
		if err != nil {
			return nil, fmt.Errorf("Failed to init GCloudClientSource: %w", err)
		}
		bs, err := gcs.NewGCSBlobStore(ctx, cfg.ProjectName, cfg.BucketName, tsrc, flags)
		if err != nil {
			return nil, fmt.Errorf("Failed to init GCSBlobStore: %w", err)
		}
		return bs, nil

	case BackendMinio:
		bs, err := minio.NewFromConfig(cfg.Minio, cfg.BucketName, flags)
		if err != nil {
			return nil, fmt.Errorf("Failed to init MinioBlobStore: %w", err)
		}
		return bs, nil

	case BackendS3:
		bs, err := awss3.NewFromConfig(ctx, cfg.S3, cfg.BucketName, flags)
		if err != nil {
			return nil, fmt.Errorf("Failed to init S3BlobStore: %w", err)
		}
		return bs, nil

	case BackendFile:
		if err := os.MkdirAll(cfg.FileBlobStoreDir, 0700); err != nil {
			return nil, fmt.Errorf("Failed to create FileBlobStoreDir %q: %w", cfg.FileBlobStoreDir, err)
		}
		bs, err := blobstore.NewFileBlobStore(cfg.FileBlobStoreDir, flags)
		if err != nil {
			return nil, fmt.Errorf("Failed to init FileBlobStore: %w", err)
		}
		return bs, nil

	case BackendMem:
		return blobstore.NewMemBlobStoreWithFlags(flags), nil

	default:
		return nil, fmt.Errorf("Unknown backend %q", cfg.Backend)
	}
}
