package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/nyaxt/gocs/facade"
)

func URL(ctx context.Context, w io.Writer, g *facade.Gocs, names []string) error {
	for _, name := range names {
		u, err := g.Storage.URL(name)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, u)
	}
	return nil
}
