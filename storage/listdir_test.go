package storage_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nyaxt/gocs/blobstore"
	"github.com/nyaxt/gocs/storage"
	tu "github.com/nyaxt/gocs/testutils"
)

func fillBlobs(t *testing.T, bs blobstore.BlobStore, blobpaths ...string) {
	t.Helper()
	for _, bp := range blobpaths {
		if err := tu.WriteBlob(bs, bp, tu.HelloWorld); err != nil {
			t.Fatalf("%v", err)
		}
	}
}

func TestListDir(t *testing.T) {
	bs := blobstore.NewMemBlobStore()
	fillBlobs(t, bs, "root/a.txt", "root/sub/b.txt", "root/sub/c.txt", "rootx/d.txt")
	ctx := context.Background()

	for _, tc := range []struct {
		location string
		path     string
	}{
		{"", "root"},
		{"", "/root/"},
		{"root", ""},
		{"root", "."},
	} {
		s := newTestStorage(t, bs, storage.Config{Location: tc.location})
		dirs, files, err := s.ListDir(ctx, tc.path)
		if err != nil {
			t.Errorf("ListDir(%q, %q) failed: %v", tc.location, tc.path, err)
			continue
		}
		if !reflect.DeepEqual(files, []string{"a.txt"}) {
			t.Errorf("ListDir(%q, %q): unexpected files %v", tc.location, tc.path, files)
		}
		if !reflect.DeepEqual(dirs, []string{"sub"}) {
			t.Errorf("ListDir(%q, %q): unexpected dirs %v", tc.location, tc.path, dirs)
		}
	}
}

func TestListDir_SingleLevel(t *testing.T) {
	bs := blobstore.NewMemBlobStore()
	fillBlobs(t, bs,
		"media/a/x/1.png",
		"media/a/y.png",
		"media/b/2.png",
		"media/top.png",
	)
	s := newTestStorage(t, bs, storage.Config{Location: "media"})
	ctx := context.Background()

	dirs, files, err := s.ListDir(ctx, "a")
	if err != nil {
		t.Errorf("ListDir failed: %v", err)
		return
	}
	if !reflect.DeepEqual(dirs, []string{"x"}) || !reflect.DeepEqual(files, []string{"y.png"}) {
		t.Errorf("Unexpected listing dirs %v files %v", dirs, files)
	}

	dirs, files, err = s.ListDir(ctx, "empty")
	if err != nil {
		t.Errorf("ListDir failed: %v", err)
		return
	}
	if len(dirs) != 0 || len(files) != 0 {
		t.Errorf("Expected empty listing, got dirs %v files %v", dirs, files)
	}
}

func TestListDir_Error(t *testing.T) {
	boom := errors.New("list failed")
	bs := &tu.FaultBlobStore{BE: blobstore.NewMemBlobStore(), ListErr: boom}
	s := newTestStorage(t, bs, storage.Config{Location: "root"})

	if _, _, err := s.ListDir(context.Background(), ""); !errors.Is(err, boom) {
		t.Errorf("Expected list error to propagate, got %v", err)
	}
}
