// Package search exposes the query engine over HTTP, wiring in the result
// cache, metrics, and the stats collector.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/searchcore/kbsearch/internal/cache"
	"github.com/searchcore/kbsearch/internal/engine"
	"github.com/searchcore/kbsearch/internal/metadata"
	"github.com/searchcore/kbsearch/internal/stats"
	apperrors "github.com/searchcore/kbsearch/pkg/errors"
	"github.com/searchcore/kbsearch/pkg/logger"
	"github.com/searchcore/kbsearch/pkg/metrics"
)

// Searcher is the engine surface the handler needs; narrowed for tests.
type Searcher interface {
	Search(ctx context.Context, req engine.Request) ([]engine.SearchResult, error)
	DefaultTopK() int
}

// Response is the JSON body returned by the search endpoint.
type Response struct {
	Query   string                `json:"query"`
	Results []engine.SearchResult `json:"results"`
}

type Handler struct {
	searcher   Searcher
	cache      *cache.QueryCache
	collector  *stats.Collector
	metrics    *metrics.Metrics
	maxResults int
	logger     *slog.Logger
}

func New(searcher Searcher, queryCache *cache.QueryCache, collector *stats.Collector, m *metrics.Metrics, maxResults int) *Handler {
	return &Handler{
		searcher:   searcher,
		cache:      queryCache,
		collector:  collector,
		metrics:    m,
		maxResults: maxResults,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?q=...&limit=...&mode=...&filter=key:value.
// A missing limit uses the engine default; limit <= 0 is rejected rather
// than clamped; limits above the configured maximum are capped.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.searcher.DefaultTopK()
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	var filterSet *metadata.FilterSet
	if filterParams := r.URL.Query()["filter"]; len(filterParams) > 0 {
		filters := make([]metadata.Filter, 0, len(filterParams))
		for _, param := range filterParams {
			f, err := metadata.ParseFilterParam(param)
			if err != nil {
				h.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			filters = append(filters, f)
		}
		filterSet = &metadata.FilterSet{Filters: filters}
	}

	req := engine.Request{
		Query:  query,
		TopK:   limit,
		Mode:   engine.MatchMode(r.URL.Query().Get("mode")),
		Filter: filterSet,
	}

	var results []engine.SearchResult
	var err error
	cacheHit := false

	if h.cache != nil {
		results, cacheHit, err = h.cache.GetOrCompute(ctx, req, func() ([]engine.SearchResult, error) {
			return h.searcher.Search(ctx, req)
		})
	} else {
		results, err = h.searcher.Search(ctx, req)
	}

	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("search execution failed", "query", query, "error", err)
		h.recordQuery("error", cacheHit, start, 0)
		if statusCode == http.StatusBadRequest {
			h.writeError(w, statusCode, err.Error())
		} else {
			h.writeError(w, statusCode, "search failed")
		}
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	resultType := "ok"
	if len(results) == 0 {
		resultType = "zero_result"
	}
	h.recordQuery(resultType, cacheHit, start, len(results))

	log.Info("search completed",
		"query", query,
		"returned", len(results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		eventType := stats.EventSearch
		if len(results) == 0 {
			eventType = stats.EventZeroResult
		}
		h.collector.Track(stats.SearchEvent{
			Type:      eventType,
			Query:     query,
			Returned:  len(results),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestIDFromContext(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, Response{Query: query, Results: results})
}

func (h *Handler) recordQuery(resultType string, cacheHit bool, start time.Time, returned int) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	// Hit/miss counters only make sense when a cache is configured;
	// counting every uncached request as a miss would zero the hit rate.
	cacheStatus := "none"
	if h.cache != nil {
		if cacheHit {
			cacheStatus = "hit"
			h.metrics.CacheHitsTotal.Inc()
		} else {
			cacheStatus = "miss"
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	h.metrics.SearchResultsCount.Observe(float64(returned))
}

// Document handles GET /api/v1/documents/{id}, returning the stored record.
func (h *Handler) Document(getter func(id string) (any, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		doc, ok := getter(id)
		if !ok {
			h.writeError(w, http.StatusNotFound, fmt.Sprintf("document %q not found", id))
			return
		}
		h.writeJSON(w, http.StatusOK, doc)
	}
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
		h.logger.Error("cache invalidation failed", "error", err)
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
