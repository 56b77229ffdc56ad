package testutils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/nyaxt/gocs/blobstore"
	"github.com/nyaxt/gocs/flags"
)

var HelloWorld = []byte("Hello, world!\n")

func TestFileBlobStore() *blobstore.FileBlobStore {
	return TestFileBlobStoreOfName("")
}

func TestFileBlobStoreOfName(name string) *blobstore.FileBlobStore {
	tempdir, err := os.MkdirTemp("", fmt.Sprintf("blobstoretest%s", name))
	if err != nil {
		log.Fatalf("failed to create tmpdir: %v", err)
	}
	fbs, err := blobstore.NewFileBlobStore(tempdir, flags.O_RDWRCREATE)
	if err != nil {
		log.Fatalf("failed to create blobstore: %v", err)
	}
	return fbs
}

// RandomContent returns size bytes of a repeating, position dependent pattern.
func RandomContent(size int) []byte {
	p := make([]byte, size)
	for i := range p {
		p[i] = byte(i*7 + i/251)
	}
	return p
}

func WriteBlob(bs blobstore.BlobStore, blobpath string, content []byte) error {
	w, err := bs.OpenWriter(context.Background(), blobpath, nil)
	if err != nil {
		return fmt.Errorf("Failed to open writer: %v", err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("Failed to blob write: %v", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Failed to close writer: %v", err)
	}
	return nil
}

func AssertBlobContent(bs blobstore.BlobStore, blobpath string, expected []byte) error {
	r, err := bs.OpenReader(context.Background(), blobpath)
	if err != nil {
		return fmt.Errorf("Failed to open reader: %v", err)
	}
	actual, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("Failed to read blob: %v", err)
	}
	if err := r.Close(); err != nil {
		return fmt.Errorf("Failed to close reader: %v", err)
	}

	if !bytes.Equal(actual, expected) {
		return fmt.Errorf("Blob %q content mismatch. len expected %d, got %d", blobpath, len(expected), len(actual))
	}
	return nil
}
