// Package devserver serves blobs at the URL layout produced by
// storage.DevURLResolver, so development setups can display stored files
// without a public bucket.
package devserver

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nyaxt/gocs/basicauth"
	"github.com/nyaxt/gocs/blobstore"
	oprometheus "github.com/nyaxt/gocs/prometheus"
)

const (
	BlobPath = "/blobstore/blob"

	servingKeyPrefix = "encoded_gs_file:"
	gsPrefix         = "/gs/"
)

var ErrMalformedServingKey = errors.New("devserver: malformed serving key")

const promSubsystem = "devserver"

var (
	servedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: oprometheus.Namespace,
			Subsystem: promSubsystem,
			Name:      "served_requests",
			Help:      "Number of blob requests served, partitioned by status code",
		},
		[]string{"code"})
	servedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: oprometheus.Namespace,
			Subsystem: promSubsystem,
			Name:      "served_bytes",
			Help:      "Number of blob content bytes sent",
		})
)

func slog() *zap.SugaredLogger { return zap.S().Named("devserver") }

// ParseServingKey returns the blob key encoded in servingKey.
func ParseServingKey(servingKey string) (string, error) {
	enc := strings.TrimPrefix(servingKey, servingKeyPrefix)
	if enc == servingKey {
		return "", fmt.Errorf("%w: missing %q prefix", ErrMalformedServingKey, servingKeyPrefix)
	}
	dec, err := base64.URLEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedServingKey, err)
	}
	gsPath := string(dec)
	if !strings.HasPrefix(gsPath, gsPrefix) || len(gsPath) == len(gsPrefix) {
		return "", fmt.Errorf("%w: %q is not a /gs/ path", ErrMalformedServingKey, gsPath)
	}
	return strings.TrimPrefix(gsPath, gsPrefix), nil
}

type blobHandler struct {
	bs blobstore.Service
}

func (h *blobHandler) error(w http.ResponseWriter, msg string, code int) {
	servedRequests.WithLabelValues(strconv.Itoa(code)).Inc()
	http.Error(w, msg, code)
}

func (h *blobHandler) serveBlob(w http.ResponseWriter, r *http.Request) {
	key, err := ParseServingKey(chi.URLParam(r, "servingKey"))
	if err != nil {
		slog().Debugf("serveBlob: %v", err)
		h.error(w, "Error parsing serving key", http.StatusBadRequest)
		return
	}

	attrs, err := h.bs.Stat(r.Context(), key)
	if err != nil {
		if blobstore.IsNotExist(err) {
			h.error(w, "Blob not found", http.StatusNotFound)
			return
		}
		slog().Warnf("serveBlob(%q): Stat failed: %v", key, err)
		h.error(w, "Failed to stat blob", http.StatusInternalServerError)
		return
	}

	disposition := "attachment"
	if r.URL.Query().Get("display") == "inline" {
		disposition = "inline"
	}
	ctype := attrs.ContentType
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	hdr := w.Header()
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("Content-Disposition", disposition+"; filename*=UTF-8''"+url.PathEscape(path.Base(key)))
	hdr.Set("Content-Type", ctype)
	hdr.Set("Content-Length", strconv.FormatInt(attrs.Size, 10))
	if attrs.CacheControl != "" {
		hdr.Set("Cache-Control", attrs.CacheControl)
	}
	if !attrs.CreatedAt.IsZero() {
		hdr.Set("Last-Modified", attrs.CreatedAt.UTC().Format(http.TimeFormat))
	}

	if r.Method == http.MethodHead {
		servedRequests.WithLabelValues("200").Inc()
		w.WriteHeader(http.StatusOK)
		return
	}

	rc, err := h.bs.OpenReader(r.Context(), key)
	if err != nil {
		hdr.Del("Content-Length")
		if blobstore.IsNotExist(err) {
			h.error(w, "Blob not found", http.StatusNotFound)
			return
		}
		slog().Warnf("serveBlob(%q): OpenReader failed: %v", key, err)
		h.error(w, "Failed to open blob", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	servedRequests.WithLabelValues("200").Inc()
	w.WriteHeader(http.StatusOK)
	n, err := io.Copy(w, rc)
	servedBytes.Add(float64(n))
	if err != nil {
		slog().Infof("serveBlob(%q): copy aborted after %d bytes: %v", key, n, err)
	}
}

func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog().Debugf("%s %s %s (%v)", r.RemoteAddr, r.Method, r.URL.RequestURI(), time.Since(start))
	})
}

// NewHandler returns the http.Handler serving blobs of bs under BlobPath.
type options struct {
	auth basicauth.Credentials
}

type Option func(*options)

// WithBasicAuth requires c on blob requests. /healthz stays open.
func WithBasicAuth(c basicauth.Credentials) Option {
	return func(o *options) { o.auth = c }
}

func NewHandler(bs blobstore.Service, opts ...Option) http.Handler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	h := &blobHandler{bs: bs}

	r := chi.NewRouter()
	r.Use(accessLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:         300,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
	})
	r.Group(func(r chi.Router) {
		r.Use(basicauth.Middleware("gocs", o.auth))
		r.Handle("/metrics", promhttp.Handler())
		r.Get(BlobPath+"/{servingKey}", h.serveBlob)
		r.Head(BlobPath+"/{servingKey}", h.serveBlob)
	})
	return r
}
