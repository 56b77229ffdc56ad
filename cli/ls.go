package cli

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/nyaxt/gocs/facade"
)

type LsOptions struct {
	Long  bool
	Human bool
}

// Ls lists the directory p. Directories come first, suffixed with "/".
func Ls(ctx context.Context, w io.Writer, g *facade.Gocs, p string, opts LsOptions) error {
	dirs, files, err := g.Storage.ListDir(ctx, p)
	if err != nil {
		return err
	}

	for _, d := range dirs {
		if opts.Long {
			fmt.Fprintf(w, "d %10s %s %s/\n", "-", "-", d)
		} else {
			fmt.Fprintf(w, "%s/\n", d)
		}
	}
	for _, f := range files {
		if !opts.Long {
			fmt.Fprintf(w, "%s\n", f)
			continue
		}
		attrs, err := g.Storage.Stat(ctx, path.Join(p, f))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "- %10s %s %s\n",
			formatSize(attrs.Size, opts.Human),
			formatDate(attrs.CreatedAt),
			f)
	}
	return nil
}
