package facade

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/naoina/toml"

	"github.com/nyaxt/gocs/awss3"
	"github.com/nyaxt/gocs/minio"
	"github.com/nyaxt/gocs/storage"
	"github.com/nyaxt/gocs/util"
)

const (
	BackendGCS   = "gcs"
	BackendMinio = "minio"
	BackendS3    = "s3"
	BackendFile  = "file"
	BackendMem   = "mem"

	URLModePublic = "public"
	URLModeDev    = "dev"
)

type Config struct {
	Backend  string
	ReadOnly bool

	// Storage
	Location     string
	BaseURL      string
	CacheControl string
	URLMode      string
	DevURL       string
	SourcePolicy string
	ChunkSize    int

	// Staged uploads
	StagingRoot string
	MaxAttempts int

	// gcs
	ProjectName         string
	BucketName          string
	CredentialsFilePath string

	// file
	FileBlobStoreDir string

	Minio minio.Config
	S3    awss3.Config

	DevServer DevServerConfig
}

type DevServerConfig struct {
	ListenAddr string

	// Basic auth is required on blob requests when BasicAuthUser is set.
	BasicAuthUser     string
	BasicAuthPassword string
}

func DefaultConfigDir() string {
	if dir := os.Getenv("GOCSDIR"); dir != "" {
		return dir
	}
	return path.Join(os.Getenv("HOME"), ".gocs")
}

func defaultConfig(configdir string) *Config {
	return &Config{
		Backend:          BackendGCS,
		CacheControl:     "public, max-age=3600",
		URLMode:          URLModePublic,
		DevURL:           storage.DefaultDevURL,
		ChunkSize:        storage.DefaultChunkSize,
		StagingRoot:      "tmp",
		FileBlobStoreDir: path.Join(configdir, "blobs"),
		DevServer: DevServerConfig{
			ListenAddr: ":8001",
		},
	}
}

// NewConfig reads config.toml in configdir.
func NewConfig(configdir string) (*Config, error) {
	if err := util.IsDir(configdir); err != nil {
		return nil, fmt.Errorf("configdir %q is not a dir: %v", configdir, err)
	}
	os.Setenv("GOCSDIR", configdir)

	tomlpath := path.Join(configdir, "config.toml")
	buf, err := os.ReadFile(tomlpath)
	if err != nil {
		return nil, fmt.Errorf("Failed to read config file: %v", err)
	}
	return NewConfigFromToml(buf, configdir)
}

func NewConfigFromToml(buf []byte, configdir string) (*Config, error) {
	cfg := defaultConfig(configdir)
	if err := toml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("Failed to parse config file: %v", err)
	}
	cfg.CredentialsFilePath = os.ExpandEnv(cfg.CredentialsFilePath)
	cfg.FileBlobStoreDir = os.ExpandEnv(cfg.FileBlobStoreDir)
	cfg.DevServer.BasicAuthPassword = os.ExpandEnv(cfg.DevServer.BasicAuthPassword)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.Backend {
	case BackendGCS:
		if cfg.ProjectName == "" {
			return fmt.Errorf("Config Error: ProjectName must be given.")
		}
		if cfg.BucketName == "" {
			return fmt.Errorf("Config Error: BucketName must be given.")
		}
	case BackendMinio:
		if cfg.Minio.Endpoint == "" {
			return fmt.Errorf("Config Error: Minio.Endpoint must be given.")
		}
		if cfg.BucketName == "" {
			return fmt.Errorf("Config Error: BucketName must be given.")
		}
	case BackendS3:
		if cfg.BucketName == "" {
			return fmt.Errorf("Config Error: BucketName must be given.")
		}
	case BackendFile:
		if cfg.FileBlobStoreDir == "" {
			return fmt.Errorf("Config Error: FileBlobStoreDir must be given.")
		}
	case BackendMem:
	default:
		return fmt.Errorf("Config Error: Unknown Backend %q.", cfg.Backend)
	}

	switch cfg.URLMode {
	case URLModePublic, URLModeDev:
	default:
		return fmt.Errorf("Config Error: Unknown URLMode %q.", cfg.URLMode)
	}
	if cfg.URLMode == URLModeDev && strings.HasPrefix(cfg.Location, "/") {
		return fmt.Errorf("Config Error: Location must be relative when URLMode is dev.")
	}
	if _, err := storage.ParseSourcePolicy(cfg.SourcePolicy); err != nil {
		return fmt.Errorf("Config Error: %v", err)
	}
	if cfg.ChunkSize < 0 {
		return fmt.Errorf("Config Error: ChunkSize must not be negative.")
	}
	if cfg.MaxAttempts < 0 {
		return fmt.Errorf("Config Error: MaxAttempts must not be negative.")
	}
	return nil
}

func (cfg *Config) StorageConfig() storage.Config {
	var resolver storage.URLResolver = storage.PublicURLResolver{BaseURL: cfg.BaseURL}
	if cfg.URLMode == URLModeDev {
		resolver = storage.DevURLResolver{DevURL: cfg.DevURL}
	}
	policy, _ := storage.ParseSourcePolicy(cfg.SourcePolicy)

	return storage.Config{
		Location:     cfg.Location,
		BaseURL:      cfg.BaseURL,
		CacheControl: cfg.CacheControl,
		URLResolver:  resolver,
		SourcePolicy: policy,
		ChunkSize:    cfg.ChunkSize,
	}
}
