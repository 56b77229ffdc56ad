package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nyaxt/gocs/facade"
	"github.com/nyaxt/gocs/storage"
)

// Stat prints the attributes of name.
func Stat(ctx context.Context, w io.Writer, g *facade.Gocs, name string, human bool) error {
	attrs, err := g.Storage.Stat(ctx, name)
	if err != nil {
		return err
	}
	modified, err := g.Storage.ModifiedTime(ctx, name)
	if err != nil {
		return err
	}
	accessed := "-"
	if at, err := g.Storage.AccessedTime(ctx, name); err == nil {
		accessed = formatDate(at)
	} else if !errors.Is(err, storage.ErrNotImplemented) {
		return err
	}
	key, err := g.Storage.BlobKey(name)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Name:          %s\n", name)
	fmt.Fprintf(w, "Key:           %s\n", key)
	fmt.Fprintf(w, "Size:          %s\n", formatSize(attrs.Size, human))
	fmt.Fprintf(w, "Content-Type:  %s\n", attrs.ContentType)
	fmt.Fprintf(w, "Cache-Control: %s\n", attrs.CacheControl)
	fmt.Fprintf(w, "Created:       %s\n", formatDate(attrs.CreatedAt))
	fmt.Fprintf(w, "Modified:      %s\n", formatDate(modified))
	fmt.Fprintf(w, "Accessed:      %s\n", accessed)
	return nil
}
