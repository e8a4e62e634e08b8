// Package handler serves the search HTTP API used by the serve command.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer/postings"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/flatindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/metrics"
)

var errCacheDisabled = apperrors.New(apperrors.ErrNotConfigured, http.StatusServiceUnavailable, "caching is disabled")

// Searcher resolves AND queries. *query.Engine satisfies it.
type Searcher interface {
	Search(terms []string) (postings.Set, error)
}

// KeyCounter reports the number of terms in the store.
type KeyCounter interface {
	Summarize() (int, error)
}

type SearchResponse struct {
	Query     string   `json:"query"`
	Terms     []string `json:"terms"`
	TotalHits int      `json:"total_hits"`
	Results   []string `json:"results"`
	CacheHit  bool     `json:"cache_hit"`
}

type Handler struct {
	searcher   Searcher
	keys       KeyCounter
	cache      *cache.QueryCache
	metrics    *metrics.Metrics
	maxResults int
	logger     *slog.Logger
}

// New builds the handler. queryCache and m may be nil.
func New(searcher Searcher, keys KeyCounter, queryCache *cache.QueryCache, m *metrics.Metrics, maxResults int) *Handler {
	return &Handler{
		searcher:   searcher,
		keys:       keys,
		cache:      queryCache,
		metrics:    m,
		maxResults: maxResults,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Routes registers the API endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	terms := strings.Fields(query)

	compute := func() ([]string, error) {
		set, err := h.searcher.Search(terms)
		if err != nil {
			return nil, err
		}
		return set.Sorted(), nil
	}

	var (
		docs     []string
		cacheHit bool
		err      error
	)
	if h.cache != nil {
		docs, cacheHit, err = h.cache.GetOrCompute(ctx, terms, compute)
	} else {
		docs, err = compute()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", apperrors.ErrTimeout, ctxErr)
	}
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.observe("error", cacheHit, start)
		h.writeError(w, err)
		return
	}

	resp := SearchResponse{
		Query:     query,
		Terms:     terms,
		TotalHits: len(docs),
		Results:   docs,
		CacheHit:  cacheHit,
	}
	if h.maxResults > 0 && len(resp.Results) > h.maxResults {
		resp.Results = resp.Results[:h.maxResults]
	}
	if resp.Results == nil {
		resp.Results = []string{}
	}

	resultType := "hits"
	if resp.TotalHits == 0 {
		resultType = "empty"
	}
	h.observe(resultType, cacheHit, start)
	log.Info("search completed",
		"query", query,
		"total_hits", resp.TotalHits,
		"returned", len(resp.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.Summarize()
	if err != nil {
		h.logger.Error("summarize failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"keys": keys})
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
		h.writeError(w, errCacheDisabled)
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) observe(resultType string, cacheHit bool, start time.Time) {
	if h.metrics == nil {
		return
	}
	status := "miss"
	if h.cache == nil {
		status = "disabled"
	} else if cacheHit {
		status = "hit"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError responds with the status mapped from err. Only AppError
// messages reach the client; anything else is reported by status text.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
