package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nyaxt/gocs/blobstore"
)

const shutdownTimeout = 5 * time.Second

// Serve listens on listenAddr and serves bs until ctx is cancelled.
func Serve(ctx context.Context, listenAddr string, bs blobstore.Service, opts ...Option) error {
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("Failed to listen %q: %w", listenAddr, err)
	}
	return ServeListener(ctx, lis, bs, opts...)
}

func ServeListener(ctx context.Context, lis net.Listener, bs blobstore.Service, opts ...Option) error {
	httpServer := &http.Server{
		Handler:           NewHandler(bs, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	joinC := make(chan struct{})
	go func() {
		defer close(joinC)
		<-ctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(sctx); err != nil {
			slog().Warnf("Shutdown failed: %v", err)
		}
	}()

	slog().Infof("Serving blobs at http://%s%s/", lis.Addr(), BlobPath)
	if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-joinC
	return nil
}
