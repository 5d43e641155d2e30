// Package handler exposes the search service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
)

// Searcher is the part of searcher.Service the handler needs.
type Searcher interface {
	Query(ctx context.Context, query string, page int) (searcher.Response, error)
	Manifest() index.Manifest
	Reload(ctx context.Context) error
}

// Cache is the query cache as seen by the admin endpoints.
type Cache interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) error
}

type Handler struct {
	search Searcher
	cache  Cache
	logger *slog.Logger
}

// New returns a handler. cache may be nil when caching is disabled.
func New(search Searcher, cache Cache) *Handler {
	return &Handler{
		search: search,
		cache:  cache,
		logger: slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index", h.Index)
	mux.HandleFunc("POST /api/v1/index/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search answers GET /api/v1/search?q=<query>&page=<n>.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	resp, err := h.search.Query(r.Context(), query, page)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("search failed", "query", query, "error", err)
			h.writeError(w, status, "search failed")
			return
		}
		h.writeError(w, status, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Index describes the loaded index build.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.search.Manifest())
}

// Reload re-reads the index directory.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.search.Reload(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("index reload failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "index reload failed")
		return
	}
	h.writeJSON(w, http.StatusOK, h.search.Manifest())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
