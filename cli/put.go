package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	humanize "github.com/dustin/go-humanize"

	"github.com/nyaxt/gocs/facade"
	"github.com/nyaxt/gocs/storage"
	"github.com/nyaxt/gocs/upload"
)

// Put saves the local file at localpath as name.
func Put(ctx context.Context, g *facade.Gocs, localpath, name string) error {
	if _, err := g.Storage.Save(ctx, name, storage.NewFileContent(localpath)); err != nil {
		return err
	}
	slog().Infof("Local %s -> %s", localpath, name)
	return nil
}

type UploadOptions struct {
	ChunkSize int
	Discard   bool
}

// Upload feeds the local file at localpath through a staged upload in
// ChunkSize pieces, then saves the kept upload as name. With Discard the
// upload is thrown away once received.
func Upload(ctx context.Context, g *facade.Gocs, localpath, name string, opts UploadOptions) error {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultUploadChunkSize
	}

	src, err := os.Open(localpath)
	if err != nil {
		return fmt.Errorf("Failed to open source file %q: %w", localpath, err)
	}
	defer src.Close()

	h := g.NewUploadHandler()
	if err := h.NewFile(ctx, name, storage.GuessContentType(name), ""); err != nil {
		return err
	}

	var total int64
	buf := make([]byte, chunkSize)
	for {
		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			if err := h.ReceiveDataChunk(buf[:n]); err != nil {
				h.Abort(ctx)
				return fmt.Errorf("Failed to stage chunk: %w", err)
			}
			total += int64(n)
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			h.Abort(ctx)
			return fmt.Errorf("Failed to read source file %q: %w", localpath, rerr)
		}
	}

	if opts.Discard {
		f := h.File()
		if err := f.Complete(ctx, total, false); err != nil {
			return err
		}
		slog().Infof("Staged %s at %s and discarded", humanize.IBytes(uint64(total)), f.Key())
		return nil
	}

	f, err := h.FileComplete(ctx, total)
	if err != nil {
		return err
	}
	// Save closes f, which removes the staging blob.
	if _, err := g.Storage.Save(ctx, name, f); err != nil {
		if f.State() == upload.FinalizedKept {
			f.Close()
		}
		return err
	}
	slog().Infof("Local %s -> %s (%s, staged at %s)", localpath, name, humanize.IBytes(uint64(f.Size())), f.Key())
	return nil
}
