// Package cli implements the gocs subcommands on top of facade.Gocs.
package cli

import (
	"strconv"
	"time"

	humanize "github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const DefaultUploadChunkSize = 64 * 1024

func slog() *zap.SugaredLogger { return zap.S().Named("cli") }

func formatSize(n int64, h bool) string {
	if !h {
		return strconv.FormatInt(n, 10)
	}
	return humanize.IBytes(uint64(n))
}

func formatDate(t time.Time) string {
	return t.Local().Format("Jan _2 15:04 2006")
}
