package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

type SearchExecutor interface {
	Search(ctx context.Context, req executor.Request) (*executor.SearchResult, error)
	ClearCache(ctx context.Context) error
}

// CacheStatsSource reports cumulative cache hits and misses.
type CacheStatsSource interface {
	Stats() (hits, misses int64)
}

type Handler struct {
	executor     SearchExecutor
	cache        CacheStatsSource
	defaultLang  string
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New builds the search handler. cacheStats may be nil when caching is
// disabled.
func New(exec SearchExecutor, cacheStats CacheStatsSource, defaultLang string, defaultLimit, maxResults int) *Handler {
	return &Handler{
		executor:     exec,
		cache:        cacheStats,
		defaultLang:  defaultLang,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?q=&lang=&mode=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	params := r.URL.Query()

	query := params.Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.defaultLimit
	if limitStr := params.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if h.maxResults > 0 && limit > h.maxResults {
		limit = h.maxResults
	}

	lang := params.Get("lang")
	if lang == "" {
		lang = h.defaultLang
	}

	result, err := h.executor.Search(ctx, executor.Request{
		Query:    query,
		Language: lang,
		Mode:     params.Get("mode"),
		Limit:    limit,
	})
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("search execution failed", "query", query, "error", err)
			h.writeError(w, status, "search failed")
			return
		}
		log.Warn("search rejected", "query", query, "error", err)
		h.writeError(w, status, err.Error())
		return
	}

	log.Info("search completed",
		"query", query,
		"mode", result.Mode,
		"total_hits", result.TotalHits,
		"cached", result.Cached,
		"took_ms", result.TookMs,
	)
	h.writeJSON(w, http.StatusOK, result)
}

// CacheStats handles GET /api/v1/cache/stats.
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

// CacheClear handles POST /api/v1/cache/clear. Cached boolean results are
// never invalidated by ingestion, so this is the only way to drop them.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.executor.ClearCache(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("cache clear failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache clear failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
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
