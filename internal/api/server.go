// Package api exposes the scrape engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cliphawk/cliphawk/internal/annotate"
	"github.com/cliphawk/cliphawk/internal/cache"
	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/scrape"
	"github.com/cliphawk/cliphawk/internal/types"
)

// Runner is the interface the API uses to execute scrapes. *scrape.Engine
// satisfies it.
type Runner interface {
	Run(ctx context.Context, search string, maxCount int) (*scrape.Result, error)
}

// ScrapeRequest is the POST /api/scrape body. GET requests carry the same
// fields as query parameters.
type ScrapeRequest struct {
	Search                        string `json:"search"`
	Keyword                       string `json:"keyword"`
	MaxCount                      int    `json:"maxCount"`
	ShowVideoOnlyWithMatchKeyword bool   `json:"showVideoOnlyWithMatchKeyword"`
	ForceRefresh                  bool   `json:"forceRefresh"`
}

// ScrapeData is the data payload of a scrape response.
type ScrapeData struct {
	Keyword   string              `json:"keyword"`
	Query     string              `json:"query"`
	FromCache bool                `json:"fromCache"`
	Metrics   *scrape.RunMetrics  `json:"metrics"`
	Items     []types.VideoRecord `json:"items"`
}

type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server serves the scrape API on a ServeMux.
type Server struct {
	mux    *http.ServeMux
	runner Runner
	cache  *cache.Cache
	cfg    *config.Config
	logger *slog.Logger
}

// NewServer creates a Server around a runner and a result cache.
func NewServer(runner Runner, store *cache.Cache, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		runner: runner,
		cache:  store,
		cfg:    cfg,
		logger: logger.With("component", "api_server"),
	}
	s.registerRoutes()
	return s
}

// Handler returns the route tree, for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe blocks serving the API until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: s.mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("API server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/scrape", s.handleScrape)
	s.mux.HandleFunc("GET /api/scrape", s.handleScrape)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("DELETE /api/cache", s.handleCachePurge)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, envelope{
		Message: "ok",
		Data:    map[string]string{"version": config.Version},
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, envelope{
		Message: "cache stats",
		Data: map[string]any{
			"entries":    s.cache.Len(),
			"maxEntries": s.cfg.Cache.MaxEntries,
			"ttl":        s.cfg.Cache.TTL.String(),
		},
	})
}

func (s *Server) handleCachePurge(w http.ResponseWriter, r *http.Request) {
	s.cache.Purge()
	s.jsonResponse(w, http.StatusOK, envelope{Message: "cache purged"})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	req, err := decodeScrapeRequest(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}

	key := cache.Key(req.Search, req.MaxCount)

	if !req.ForceRefresh {
		if entry, ok := s.cache.Get(key); ok {
			s.logger.Info("serving cached result", "key", key)
			s.respondItems(w, req, entry.Items, nil, true)
			return
		}
	}

	res, err := s.runner.Run(r.Context(), req.Search, req.MaxCount)
	if err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}

	s.cache.Set(key, &cache.Entry{Items: res.Items, Metrics: res.Metrics})
	s.respondItems(w, req, res.Items, res.Metrics, false)
}

// respondItems annotates at read time so cached raw results serve any
// keyword.
func (s *Server) respondItems(w http.ResponseWriter, req *ScrapeRequest, items []types.VideoRecord, metrics *scrape.RunMetrics, fromCache bool) {
	annotated := annotate.Annotate(items, req.Keyword)
	if req.ShowVideoOnlyWithMatchKeyword {
		annotated = annotate.Filter(annotated, true)
	}

	s.jsonResponse(w, http.StatusOK, envelope{
		Message: "scrape completed",
		Data: ScrapeData{
			Keyword:   req.Keyword,
			Query:     req.Search,
			FromCache: fromCache,
			Metrics:   metrics,
			Items:     annotated,
		},
	})
}

func decodeScrapeRequest(r *http.Request) (*ScrapeRequest, error) {
	req := &ScrapeRequest{MaxCount: 10}

	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req.Search = q.Get("search")
		req.Keyword = q.Get("keyword")
		if v := q.Get("maxCount"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, &types.InputError{Field: "maxCount", Reason: "not a number"}
			}
			req.MaxCount = n
		}
		req.ShowVideoOnlyWithMatchKeyword = q.Get("showVideoOnlyWithMatchKeyword") == "true"
		req.ForceRefresh = q.Get("forceRefresh") == "true"
	} else {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			return nil, &types.InputError{Field: "body", Reason: "malformed JSON"}
		}
		if req.MaxCount == 0 {
			req.MaxCount = 10
		}
	}

	if req.Search == "" {
		return nil, &types.InputError{Field: "search", Reason: "required"}
	}
	if req.Keyword == "" {
		return nil, &types.InputError{Field: "keyword", Reason: "required"}
	}
	if req.MaxCount < 1 {
		return nil, &types.InputError{Field: "maxCount", Reason: "must be positive"}
	}
	return req, nil
}

// statusFor maps run failures onto response codes: bad input is the
// caller's fault, captcha timeouts are retryable, everything else is an
// upstream failure.
func statusFor(err error) int {
	var inputErr *types.InputError
	switch {
	case errors.As(err, &inputErr),
		errors.Is(err, types.ErrEmptySearch),
		errors.Is(err, types.ErrForeignDomain):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrCaptchaTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("request failed", "status", status, "error", err)
	s.jsonResponse(w, status, envelope{Message: "scrape failed", Error: err.Error()})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
