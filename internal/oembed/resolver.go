// Package oembed resolves canonical title/author metadata for a video URL
// from the site's oEmbed endpoint. It is independent of the browser
// session; its failure never aborts extraction.
package oembed

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Metadata is the oEmbed payload subset the extractor consumes.
type Metadata struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Resolver fetches oEmbed metadata over HTTP.
type Resolver struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewResolver creates a Resolver against the configured endpoint.
func NewResolver(cfg *config.ResolverConfig, logger *slog.Logger) *Resolver {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // We handle decompression ourselves (including brotli)
	}

	return &Resolver{
		endpoint: cfg.Endpoint,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger.With("component", "oembed_resolver"),
	}
}

// Resolve fetches metadata for the given canonical video URL. A nil
// Metadata with a non-nil error means "no data"; callers degrade
// field-by-field.
func (r *Resolver) Resolve(ctx context.Context, videoURL string) (*Metadata, error) {
	reqURL := r.endpoint + "?url=" + url.QueryEscape(videoURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &types.ResolveError{URL: videoURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &types.ResolveError{URL: videoURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.ResolveError{URL: videoURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("non-2xx response")}
	}

	body, err := decompress(resp)
	if err != nil {
		return nil, &types.ResolveError{URL: videoURL, StatusCode: resp.StatusCode, Err: err}
	}

	var meta Metadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, &types.ResolveError{URL: videoURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode oembed: %w", err)}
	}

	r.logger.Debug("metadata resolved",
		"url", videoURL,
		"author", meta.AuthorName,
		"duration", time.Since(start),
	)
	return &meta, nil
}

// decompress reads the response body, honoring Content-Encoding.
func decompress(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch resp.Header.Get("Content-Encoding") {
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fr := flate.NewReader(resp.Body)
		defer fr.Close()
		reader = fr
	}

	return io.ReadAll(io.LimitReader(reader, 1<<20))
}
