package blobstore_test

import (
	"context"
	"errors"
	"os"
	"path"
	"reflect"
	"testing"

	"github.com/nyaxt/gocs/blobstore"
	"github.com/nyaxt/gocs/flags"
	tu "github.com/nyaxt/gocs/testutils"
)

func TestFileBlobStore_ListBlobs(t *testing.T) {
	tu.EnsureLogger()
	bs := tu.TestFileBlobStoreOfName("filebstest")

	for _, bp := range []string{"root/hoge", "root/fuga/piyo.txt", "other/foo"} {
		if err := tu.WriteBlob(bs, bp, tu.HelloWorld); err != nil {
			t.Errorf("Failed to write to bs: %v", err)
			return
		}
	}
	if err := os.Mkdir(path.Join(bs.GetBase(), "root", "emptydir"), 0755); err != nil {
		t.Errorf("Failed to mkdir dummy dir: %v", err)
		return
	}

	blobs, err := bs.ListBlobs(context.Background(), "root/")
	if err != nil {
		t.Errorf("ListBlobs failed: %v", err)
		return
	}
	if !reflect.DeepEqual(blobs, []string{"root/fuga/piyo.txt", "root/hoge"}) {
		t.Errorf("ListBlobs wrong result: %v", blobs)
	}

	blobs, err = bs.ListBlobs(context.Background(), "/root/")
	if err != nil {
		t.Errorf("ListBlobs failed: %v", err)
		return
	}
	if !reflect.DeepEqual(blobs, []string{"/root/fuga/piyo.txt", "/root/hoge"}) {
		t.Errorf("ListBlobs with leading slash wrong result: %v", blobs)
	}
}

func TestFileBlobStore_WriteIsVisibleOnClose(t *testing.T) {
	bs := tu.TestFileBlobStore()
	ctx := context.Background()

	w, err := bs.OpenWriter(ctx, "a/b.html", nil)
	if err != nil {
		t.Errorf("OpenWriter failed: %v", err)
		return
	}
	if _, err := w.Write(tu.HelloWorld); err != nil {
		t.Errorf("Write failed: %v", err)
		return
	}
	if _, err := bs.Stat(ctx, "a/b.html"); !blobstore.IsNotExist(err) {
		t.Errorf("Blob should not be visible before Close. err: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
		return
	}

	attrs, err := bs.Stat(ctx, "a/b.html")
	if err != nil {
		t.Errorf("Stat failed: %v", err)
		return
	}
	if attrs.Size != int64(len(tu.HelloWorld)) {
		t.Errorf("Unexpected size: %d", attrs.Size)
	}
	if attrs.ContentType != "text/html; charset=utf-8" {
		t.Errorf("Unexpected content type: %q", attrs.ContentType)
	}
	if err := tu.AssertBlobContent(bs, "a/b.html", tu.HelloWorld); err != nil {
		t.Errorf("%v", err)
	}
	if err := w.Close(); !errors.Is(err, blobstore.ErrWriterClosed) {
		t.Errorf("Second Close should fail with ErrWriterClosed, got %v", err)
	}
}

func TestFileBlobStore_Abort(t *testing.T) {
	bs := tu.TestFileBlobStore()
	ctx := context.Background()

	w, err := bs.OpenWriter(ctx, "aborted", nil)
	if err != nil {
		t.Errorf("OpenWriter failed: %v", err)
		return
	}
	w.Write(tu.HelloWorld)
	if err := w.(blobstore.Aborter).Abort(); err != nil {
		t.Errorf("Abort failed: %v", err)
		return
	}
	if _, err := bs.Stat(ctx, "aborted"); !blobstore.IsNotExist(err) {
		t.Errorf("Aborted blob should not exist. err: %v", err)
	}
	bps, err := bs.ListBlobs(ctx, "")
	if err != nil {
		t.Errorf("ListBlobs failed: %v", err)
		return
	}
	if len(bps) != 0 {
		t.Errorf("Aborted write left blobs behind: %v", bps)
	}
}

func TestFileBlobStore_RemoveBlob(t *testing.T) {
	bs := tu.TestFileBlobStore()
	ctx := context.Background()

	if err := tu.WriteBlob(bs, "dir/sub/x", tu.HelloWorld); err != nil {
		t.Errorf("%v", err)
		return
	}
	if err := bs.RemoveBlob(ctx, "dir/sub/x"); err != nil {
		t.Errorf("RemoveBlob failed: %v", err)
		return
	}
	if _, err := os.Stat(path.Join(bs.GetBase(), "dir")); !os.IsNotExist(err) {
		t.Errorf("Empty parent dir should have been removed. err: %v", err)
	}
	if err := bs.RemoveBlob(ctx, "dir/sub/x"); !blobstore.IsNotExist(err) {
		t.Errorf("Second RemoveBlob should return ENOENT, got %v", err)
	}
}

func TestFileBlobStore_ReadOnly(t *testing.T) {
	rw := tu.TestFileBlobStore()
	bs, err := blobstore.NewFileBlobStore(rw.GetBase(), flags.O_RDONLY)
	if err != nil {
		t.Errorf("NewFileBlobStore failed: %v", err)
		return
	}
	if _, err := bs.OpenWriter(context.Background(), "x", nil); err != blobstore.EPERM {
		t.Errorf("OpenWriter on readonly store should fail with EPERM, got %v", err)
	}
	if err := bs.RemoveBlob(context.Background(), "x"); err != blobstore.EPERM {
		t.Errorf("RemoveBlob on readonly store should fail with EPERM, got %v", err)
	}
}

func TestFileBlobStore_ListBlobsNestedTmpDirName(t *testing.T) {
	tu.EnsureLogger()
	bs := tu.TestFileBlobStoreOfName("filebsnestedtmp")

	if err := tu.WriteBlob(bs, "a/.gocstmp/b.html", tu.HelloWorld); err != nil {
		t.Errorf("Failed to write to bs: %v", err)
		return
	}

	bps, err := bs.ListBlobs(context.Background(), "a/")
	if err != nil {
		t.Errorf("ListBlobs failed: %v", err)
		return
	}
	if !reflect.DeepEqual(bps, []string{"a/.gocstmp/b.html"}) {
		t.Errorf("Unexpected blobs %v", bps)
	}
}
