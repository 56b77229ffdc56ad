// Package facade wires the configured blob service backend into the storage
// and upload layers.
package facade

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/nyaxt/gocs/blobstore"
	"github.com/nyaxt/gocs/storage"
	"github.com/nyaxt/gocs/upload"
)

type Gocs struct {
	Config *Config

	BS      blobstore.Service
	Storage *storage.Storage
}

func NewGocs(ctx context.Context, cfg *Config) (*Gocs, error) {
	bs, err := NewBlobService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewGocsWithBlobService(cfg, bs)
}

func NewGocsWithBlobService(cfg *Config, bs blobstore.Service) (*Gocs, error) {
	s, err := storage.New(bs, cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("Failed to init storage: %w", err)
	}
	zap.S().Named("facade").Debugf("Storage location %q url mode %s", s.Location(), cfg.URLMode)

	return &Gocs{Config: cfg, BS: bs, Storage: s}, nil
}

func (g *Gocs) UploadConfig() upload.Config {
	return upload.Config{
		StagingRoot: g.Config.StagingRoot,
		MaxAttempts: g.Config.MaxAttempts,
	}
}

func (g *Gocs) NewUploadHandler() *upload.Handler {
	return upload.NewHandler(g.BS, g.UploadConfig())
}

func (g *Gocs) Close() error {
	if c, ok := g.BS.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
