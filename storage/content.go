package storage

import (
	"fmt"
	"io"
	"os"
)

// SourcePolicy controls how Save treats failures of the content source's own
// Open and Close.
type SourcePolicy int

const (
	// BestEffort logs and counts open/close failures of the content source and
	// carries on. Some sources are handed over already open, so a failing
	// Open is expected and the copy is still attempted.
	BestEffort SourcePolicy = iota

	// Strict fails the Save on any content source open/close failure.
	Strict
)

func (p SourcePolicy) String() string {
	switch p {
	case BestEffort:
		return "besteffort"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("SourcePolicy(%d)", int(p))
	}
}

func ParseSourcePolicy(s string) (SourcePolicy, error) {
	switch s {
	case "", "besteffort":
		return BestEffort, nil
	case "strict":
		return Strict, nil
	default:
		return BestEffort, fmt.Errorf("Unknown source policy %q", s)
	}
}

// Opener is implemented by content sources which need to be opened before
// their bytes can be read. Save calls Open before copying and Close (if
// implemented) afterwards.
type Opener interface {
	Open() error
}

func (s *Storage) openSource(content io.Reader) error {
	o, ok := content.(Opener)
	if !ok {
		return nil
	}
	if err := o.Open(); err != nil {
		if s.policy == Strict {
			return fmt.Errorf("content source open: %w", err)
		}
		ignoredSourceErrors.WithLabelValues("open").Inc()
		slog().Debugf("Ignoring content source open failure: %v", err)
	}
	return nil
}

func (s *Storage) closeSource(content io.Reader) error {
	c, ok := content.(io.Closer)
	if !ok {
		return nil
	}
	if err := c.Close(); err != nil {
		if s.policy == Strict {
			return fmt.Errorf("content source close: %w", err)
		}
		ignoredSourceErrors.WithLabelValues("close").Inc()
		slog().Debugf("Ignoring content source close failure: %v", err)
	}
	return nil
}

// FileContent is a content source backed by a local file. It is opened
// lazily by Save.
type FileContent struct {
	Path string
	fp   *os.File
}

var _ Opener = &FileContent{}

func NewFileContent(path string) *FileContent {
	return &FileContent{Path: path}
}

func (c *FileContent) Open() error {
	if c.fp != nil {
		return fmt.Errorf("%q is already open", c.Path)
	}
	fp, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	c.fp = fp
	return nil
}

func (c *FileContent) Read(p []byte) (int, error) {
	if c.fp == nil {
		return 0, os.ErrClosed
	}
	return c.fp.Read(p)
}

func (c *FileContent) Close() error {
	if c.fp == nil {
		return os.ErrClosed
	}
	err := c.fp.Close()
	c.fp = nil
	return err
}
