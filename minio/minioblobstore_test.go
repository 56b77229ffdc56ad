package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyaxt/gocs/blobstore"
	"github.com/nyaxt/gocs/flags"
)

func TestTranslateErr(t *testing.T) {
	assert.Equal(t, blobstore.ENOENT, translateErr(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.Equal(t, blobstore.ENOENT, translateErr(minio.ErrorResponse{Code: "NotFound"}))

	denied := minio.ErrorResponse{Code: "AccessDenied"}
	assert.Equal(t, error(denied), translateErr(denied))
	assert.NoError(t, translateErr(nil))
}

func TestPutObjectOptions(t *testing.T) {
	po := putObjectOptions(&blobstore.WriteOptions{
		ContentType:  "image/png",
		CacheControl: "public, max-age=3600",
		ACL:          blobstore.ACLPublicRead,
	})
	assert.Equal(t, "image/png", po.ContentType)
	assert.Equal(t, "public, max-age=3600", po.CacheControl)
	assert.Equal(t, "public-read", po.UserMetadata["x-amz-acl"])

	po = putObjectOptions(&blobstore.WriteOptions{})
	assert.Nil(t, po.UserMetadata)
}

func TestMinioBlobStore_ReadOnly(t *testing.T) {
	bs := New(nil, "bucket", flags.O_RDONLY)
	_, err := bs.OpenWriter(context.Background(), "x", nil)
	assert.Equal(t, blobstore.EPERM, err)
	assert.Equal(t, blobstore.EPERM, bs.RemoveBlob(context.Background(), "x"))
}

// TestMinioBlobStore_Integration requires a running MinIO instance at
// $GOCS_TEST_MINIO_ENDPOINT.
func TestMinioBlobStore_Integration(t *testing.T) {
	endpoint := os.Getenv("GOCS_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("GOCS_TEST_MINIO_ENDPOINT not set")
	}
	bucket := "gocs-test"

	bs, err := NewFromConfig(Config{
		Endpoint:        endpoint,
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	}, bucket, flags.O_RDWRCREATE)
	require.NoError(t, err)

	ctx := context.Background()
	if _, err := bs.client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	exists, err := bs.client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, bs.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	data := []byte("hello minio world")
	w, err := bs.OpenWriter(ctx, "root/sub/test.txt", &blobstore.WriteOptions{ContentType: "text/plain"})
	require.NoError(t, err)
	_, err = io.Copy(w, bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	attrs, err := bs.Stat(ctx, "root/sub/test.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), attrs.Size)
	assert.Equal(t, "text/plain", attrs.ContentType)

	r, err := bs.OpenReader(ctx, "root/sub/test.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, data, got)

	bps, err := bs.ListBlobs(ctx, "root/")
	require.NoError(t, err)
	assert.Contains(t, bps, "root/sub/test.txt")

	require.NoError(t, bs.RemoveBlob(ctx, "root/sub/test.txt"))
	_, err = bs.Stat(ctx, "root/sub/test.txt")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = bs.OpenReader(ctx, "root/sub/test.txt")
	assert.True(t, blobstore.IsNotExist(err))

	w, err = bs.OpenWriter(ctx, "root/aborted", nil)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.(blobstore.Aborter).Abort())
	_, err = bs.Stat(ctx, "root/aborted")
	assert.True(t, blobstore.IsNotExist(err))
}
