package oembed

import (
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestResolver(endpoint string) *Resolver {
	return NewResolver(&config.ResolverConfig{
		Endpoint: endpoint,
		Timeout:  2 * time.Second,
	}, testLogger)
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://www.tiktok.com/@bob/video/123" {
			t.Errorf("unexpected url param: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Space facts","author_name":"bob","author_url":"https://www.tiktok.com/@bob"}`))
	}))
	defer srv.Close()

	meta, err := newTestResolver(srv.URL).Resolve(context.Background(), "https://www.tiktok.com/@bob/video/123")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if meta.Title != "Space facts" || meta.AuthorName != "bob" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestResolveGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(`{"title":"zipped","author_name":"ann"}`))
		gz.Close()
	}))
	defer srv.Close()

	meta, err := newTestResolver(srv.URL).Resolve(context.Background(), "https://www.tiktok.com/@ann/video/9")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if meta.Title != "zipped" {
		t.Errorf("expected decompressed title, got %+v", meta)
	}
}

func TestResolveNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestResolver(srv.URL).Resolve(context.Background(), "https://www.tiktok.com/@x/video/1")
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	var re *types.ResolveError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResolveError, got %T", err)
	}
	if re.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", re.StatusCode)
	}
}

func TestResolveBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	if _, err := newTestResolver(srv.URL).Resolve(context.Background(), "https://www.tiktok.com/@x/video/1"); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
