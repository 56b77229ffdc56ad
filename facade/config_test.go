package facade_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nyaxt/gocs/facade"
	"github.com/nyaxt/gocs/storage"
	tu "github.com/nyaxt/gocs/testutils"
)

func init() { tu.EnsureLogger() }

func TestNewConfigFromToml_Defaults(t *testing.T) {
	cfg, err := facade.NewConfigFromToml([]byte(`
backend = "mem"
location = "media"
base_url = "https://cdn.example.com/media"
`), "/etc/gocs")
	if err != nil {
		t.Errorf("NewConfigFromToml failed: %v", err)
		return
	}
	if cfg.Backend != facade.BackendMem || cfg.Location != "media" {
		t.Errorf("Unexpected cfg %+v", cfg)
	}
	if cfg.URLMode != facade.URLModePublic || cfg.ChunkSize != storage.DefaultChunkSize {
		t.Errorf("Defaults not applied: %+v", cfg)
	}
	if cfg.FileBlobStoreDir != "/etc/gocs/blobs" {
		t.Errorf("Unexpected FileBlobStoreDir %q", cfg.FileBlobStoreDir)
	}
	if cfg.DevServer.ListenAddr != ":8001" {
		t.Errorf("Unexpected DevServer.ListenAddr %q", cfg.DevServer.ListenAddr)
	}
}

func TestNewConfigFromToml_Backends(t *testing.T) {
	cfg, err := facade.NewConfigFromToml([]byte(`
backend = "minio"
bucket_name = "media"

[minio]
endpoint = "localhost:9000"
access_key_id = "minioadmin"
secret_access_key = "minioadmin"
`), "/tmp")
	if err != nil {
		t.Errorf("NewConfigFromToml failed: %v", err)
		return
	}
	if cfg.Minio.Endpoint != "localhost:9000" || cfg.Minio.AccessKeyID != "minioadmin" {
		t.Errorf("Unexpected minio cfg %+v", cfg.Minio)
	}

	cfg, err = facade.NewConfigFromToml([]byte(`
backend = "s3"
bucket_name = "media"

[s3]
region = "ap-northeast-1"
`), "/tmp")
	if err != nil {
		t.Errorf("NewConfigFromToml failed: %v", err)
		return
	}
	if cfg.S3.Region != "ap-northeast-1" {
		t.Errorf("Unexpected s3 cfg %+v", cfg.S3)
	}
}

func TestNewConfigFromToml_Invalid(t *testing.T) {
	for _, src := range []string{
		`backend = "gcs"`,
		`backend = "gcs"
project_name = "p"`,
		`backend = "minio"
bucket_name = "b"`,
		`backend = "s3"`,
		`backend = "ftp"`,
		`backend = "mem"
url_mode = "magic"`,
		`backend = "mem"
source_policy = "lenient"`,
		`backend = "mem"
chunk_size = -1`,
		`backend = "mem"
url_mode = "dev"
location = "/media"`,
		`backend = `,
	} {
		if _, err := facade.NewConfigFromToml([]byte(src), "/tmp"); err == nil {
			t.Errorf("Expected error for config %q", src)
		}
	}
}

func TestNewConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := facade.NewConfig(dir); err == nil {
		t.Errorf("Expected error on missing config.toml")
	}

	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
backend = "file"
file_blob_store_dir = "$GOCSDIR/store"
location = "media"
url_mode = "dev"
`), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	cfg, err := facade.NewConfig(dir)
	if err != nil {
		t.Errorf("NewConfig failed: %v", err)
		return
	}
	if cfg.FileBlobStoreDir != filepath.Join(dir, "store") {
		t.Errorf("Unexpected FileBlobStoreDir %q", cfg.FileBlobStoreDir)
	}

	g, err := facade.NewGocs(context.Background(), cfg)
	if err != nil {
		t.Errorf("NewGocs failed: %v", err)
		return
	}
	defer g.Close()

	u, err := g.Storage.URL("a.png")
	if err != nil {
		t.Errorf("URL failed: %v", err)
		return
	}
	if expected := storage.DefaultDevURL + storage.DevServingKey("media/a.png") + "?display=inline"; u != expected {
		t.Errorf("Expected %q, got %q", expected, u)
	}
}
