package cli

import (
	"context"
	"fmt"

	"github.com/nyaxt/gocs/facade"
	"github.com/nyaxt/gocs/util"
)

// Rm deletes every name, continuing past failures. Missing names are not an
// error.
func Rm(ctx context.Context, g *facade.Gocs, names []string) error {
	var errs []error
	for _, name := range names {
		if err := g.Storage.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("rm %q: %w", name, err))
			continue
		}
		slog().Debugf("Removed %s", name)
	}
	return util.ToErrors(errs)
}
