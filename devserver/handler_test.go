package devserver_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nyaxt/gocs/basicauth"
	"github.com/nyaxt/gocs/blobstore"
	"github.com/nyaxt/gocs/devserver"
	"github.com/nyaxt/gocs/storage"
	tu "github.com/nyaxt/gocs/testutils"
)

func init() { tu.EnsureLogger() }

func TestParseServingKey(t *testing.T) {
	key, err := devserver.ParseServingKey(storage.DevServingKey("media/img/a.png"))
	if err != nil {
		t.Errorf("ParseServingKey failed: %v", err)
	}
	if key != "media/img/a.png" {
		t.Errorf("Unexpected key %q", key)
	}

	for _, sk := range []string{
		"media/img/a.png",
		"encoded_gs_file:!!!",
		"encoded_gs_file:" + "L3g=",     // "/x"
		"encoded_gs_file:" + "L2dzLw==", // "/gs/"
	} {
		if _, err := devserver.ParseServingKey(sk); !errors.Is(err, devserver.ErrMalformedServingKey) {
			t.Errorf("%q: expected ErrMalformedServingKey, got %v", sk, err)
		}
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.Storage) {
	t.Helper()
	bs := blobstore.NewMemBlobStore()
	srv := httptest.NewServer(devserver.NewHandler(bs))
	s, err := storage.New(bs, storage.Config{
		Location:     "media",
		CacheControl: "public, max-age=60",
		URLResolver:  storage.DevURLResolver{DevURL: srv.URL + devserver.BlobPath + "/"},
	})
	if err != nil {
		srv.Close()
		t.Fatalf("storage.New failed: %v", err)
	}
	return srv, s
}

func TestHandler_ServeBlob(t *testing.T) {
	srv, s := newTestServer(t)
	defer srv.Close()
	ctx := context.Background()

	if _, err := s.Save(ctx, "img/a.png", bytes.NewReader(tu.HelloWorld)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	u, err := s.URL("img/a.png")
	if err != nil {
		t.Fatalf("URL failed: %v", err)
	}

	resp, err := http.Get(u)
	if err != nil {
		t.Errorf("GET failed: %v", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Unexpected status %d: %s", resp.StatusCode, body)
		return
	}
	if string(body) != string(tu.HelloWorld) {
		t.Errorf("Unexpected body %q", body)
	}
	for k, v := range map[string]string{
		"Content-Type":        "image/png",
		"Cache-Control":       "public, max-age=60",
		"Content-Disposition": "inline; filename*=UTF-8''a.png",
	} {
		if got := resp.Header.Get(k); got != v {
			t.Errorf("Header %s: expected %q, got %q", k, v, got)
		}
	}

	resp, err = http.Head(u)
	if err != nil {
		t.Errorf("HEAD failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.ContentLength != int64(len(tu.HelloWorld)) {
		t.Errorf("HEAD: status %d length %d", resp.StatusCode, resp.ContentLength)
	}
}

func TestHandler_Errors(t *testing.T) {
	srv, s := newTestServer(t)
	defer srv.Close()

	u, _ := s.URL("missing.png")
	resp, err := http.Get(u)
	if err != nil {
		t.Errorf("GET failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + devserver.BlobPath + "/not-a-serving-key")
	if err != nil {
		t.Errorf("GET failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestHandler_CORS(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Errorf("GET failed: %v", err)
		return
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Unexpected Access-Control-Allow-Origin %q", got)
	}
}

func TestServeListener_Shutdown(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	errC := make(chan error, 1)
	go func() {
		errC <- devserver.ServeListener(ctx, lis, blobstore.NewMemBlobStore())
	}()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + lis.Addr().String() + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Errorf("healthz failed: %v", err)
	} else {
		resp.Body.Close()
	}

	cancel()
	select {
	case err := <-errC:
		if err != nil {
			t.Errorf("ServeListener returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Errorf("ServeListener did not return after cancel")
	}
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Errorf("GET failed: %v", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Unexpected status %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "gocs_devserver_served_bytes") {
		t.Errorf("served_bytes metric missing from /metrics")
	}
}

func TestHandler_BasicAuth(t *testing.T) {
	bs := blobstore.NewMemBlobStore()
	if err := tu.WriteBlob(bs, "media/a.html", tu.HelloWorld); err != nil {
		t.Fatalf("%v", err)
	}
	srv := httptest.NewServer(devserver.NewHandler(bs,
		devserver.WithBasicAuth(basicauth.Credentials{User: "dev", Password: "secret"})))
	defer srv.Close()

	blobURL := srv.URL + devserver.BlobPath + "/" + storage.DevServingKey("media/a.html")
	for _, tc := range []struct {
		url      string
		auth     bool
		expected int
	}{
		{blobURL, false, http.StatusUnauthorized},
		{blobURL, true, http.StatusOK},
		{srv.URL + "/metrics", false, http.StatusUnauthorized},
		{srv.URL + "/healthz", false, http.StatusOK},
	} {
		req, _ := http.NewRequest(http.MethodGet, tc.url, nil)
		if tc.auth {
			req.SetBasicAuth("dev", "secret")
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Errorf("GET %s failed: %v", tc.url, err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode != tc.expected {
			t.Errorf("GET %s auth %v: expected %d, got %d", tc.url, tc.auth, tc.expected, resp.StatusCode)
		}
	}
}
