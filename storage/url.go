package storage

import (
	"encoding/base64"
	"errors"
	"strings"
)

const (
	DefaultDevURL = "http://localhost:8001/blobstore/blob/"

	devServingKeyPrefix = "encoded_gs_file:"
)

var ErrNoBaseURL = errors.New("storage: no base URL configured")

// URLResolver maps a blob to the URL it is served at. key is the normalized
// blob key, name the logical name it was derived from.
type URLResolver interface {
	URL(key, name string) (string, error)
}

// PublicURLResolver serves blobs from BaseURL, e.g. the public bucket URL.
type PublicURLResolver struct {
	BaseURL string
}

func (r PublicURLResolver) URL(key, name string) (string, error) {
	if r.BaseURL == "" {
		return "", ErrNoBaseURL
	}
	return strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(name, "/"), nil
}

// DevURLResolver serves blobs through a local development blob server, which
// addresses objects by an encoded serving key instead of their name.
type DevURLResolver struct {
	// DevURL defaults to DefaultDevURL.
	DevURL string
}

// DevServingKey translates a blob key into the development server's key.
func DevServingKey(key string) string {
	gsPath := "/gs/" + strings.TrimLeft(key, "/")
	return devServingKeyPrefix + base64.URLEncoding.EncodeToString([]byte(gsPath))
}

func (r DevURLResolver) URL(key, name string) (string, error) {
	base := r.DevURL
	if base == "" {
		base = DefaultDevURL
	}
	return base + DevServingKey(key) + "?display=inline", nil
}
