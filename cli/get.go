package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nyaxt/gocs/facade"
)

// Get copies the content of name to w.
func Get(ctx context.Context, w io.Writer, g *facade.Gocs, name string) error {
	r, err := g.Storage.Open(ctx, name, "rb")
	if err != nil {
		return err
	}
	defer r.Close()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("Failed to read %q: %w", name, err)
	}
	return nil
}

// GetToFile copies the content of name to the local file at localpath.
func GetToFile(ctx context.Context, g *facade.Gocs, name, localpath string) error {
	w, err := os.OpenFile(localpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("Failed to open dest file: %w", err)
	}
	if err := Get(ctx, w, g, name); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Failed to close dest file: %w", err)
	}
	slog().Infof("%s -> Local %s", name, localpath)
	return nil
}
