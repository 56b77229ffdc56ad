package upload

import (
	"context"
	"fmt"

	"github.com/nyaxt/gocs/blobstore"
)

// Handler receives a single file of a request through the staged upload
// buffer: NewFile, any number of ReceiveDataChunk calls, then FileComplete
// or Abort.
type Handler struct {
	bs  blobstore.Service
	cfg Config

	file *StagedFile
}

func NewHandler(bs blobstore.Service, cfg Config) *Handler {
	return &Handler{bs: bs, cfg: cfg}
}

func (h *Handler) NewFile(ctx context.Context, name, contentType, charset string) error {
	if h.file != nil && h.file.State() == Receiving {
		return fmt.Errorf("%w: %q still receiving", ErrInvalidState, h.file.Name())
	}
	f, err := Begin(ctx, h.bs, h.cfg, name, contentType, charset)
	if err != nil {
		return err
	}
	h.file = f
	return nil
}

func (h *Handler) ReceiveDataChunk(p []byte) error {
	if h.file == nil {
		return fmt.Errorf("%w: no file begun", ErrInvalidState)
	}
	_, err := h.file.Append(p)
	return err
}

// FileComplete finalizes the current file, keeping its content, and returns
// it ready for read.
func (h *Handler) FileComplete(ctx context.Context, size int64) (*StagedFile, error) {
	if h.file == nil {
		return nil, fmt.Errorf("%w: no file begun", ErrInvalidState)
	}
	if err := h.file.Complete(ctx, size, true); err != nil {
		return nil, err
	}
	return h.file, nil
}

// Abort discards the current file if it is still receiving.
func (h *Handler) Abort(ctx context.Context) error {
	if h.file == nil || h.file.State() != Receiving {
		return nil
	}
	return h.file.Complete(ctx, h.file.Written(), false)
}

func (h *Handler) File() *StagedFile { return h.file }
