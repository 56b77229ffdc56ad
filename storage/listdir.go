package storage

import (
	"context"
	"fmt"
	"strings"
)

// ListDir lists the immediate children of the directory p. Files are the
// blobs directly under p, dirs are the distinct first path segments of the
// deeper ones, both in the order the blob service listed them.
func (s *Storage) ListDir(ctx context.Context, p string) (dirs []string, files []string, err error) {
	issuedListDir.Inc()

	root, err := s.BlobKey(p)
	if err != nil {
		return nil, nil, err
	}
	prefix := root
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	bps, err := s.bs.ListBlobs(ctx, prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("listdir %q: %w", p, err)
	}

	dirs, files = []string{}, []string{}
	seen := make(map[string]struct{})
	for _, bp := range bps {
		if !strings.HasPrefix(bp, prefix) {
			continue
		}
		rel := bp[len(prefix):]
		if rel == "" {
			continue
		}

		i := strings.IndexByte(rel, '/')
		if i < 0 {
			files = append(files, rel)
			continue
		}
		d := rel[:i]
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}
	return dirs, files, nil
}
