package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/searchcore/kbsearch/internal/engine"
	"github.com/searchcore/kbsearch/internal/stats"
	apperrors "github.com/searchcore/kbsearch/pkg/errors"
	"github.com/searchcore/kbsearch/pkg/metrics"
)

// fakeSearcher records the last request and returns canned results.
type fakeSearcher struct {
	lastReq engine.Request
	results []engine.SearchResult
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, req engine.Request) ([]engine.SearchResult, error) {
	f.lastReq = req
	return f.results, f.err
}

func (f *fakeSearcher) DefaultTopK() int { return 10 }

func newTestHandler(searcher Searcher) *Handler {
	return New(searcher, nil, nil, nil, 100)
}

func TestSearchHandlerOK(t *testing.T) {
	fake := &fakeSearcher{results: []engine.SearchResult{
		{DocID: "doc1", Score: 1.8, Rank: 1},
		{DocID: "doc2", Score: 0.4, Rank: 2},
	}}
	h := newTestHandler(fake)

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest("GET", "/api/v1/search?q=python+programming", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Query != "python programming" {
		t.Errorf("echoed query = %q", resp.Query)
	}
	if len(resp.Results) != 2 || resp.Results[0].DocID != "doc1" {
		t.Errorf("results = %+v", resp.Results)
	}
	if fake.lastReq.TopK != 10 {
		t.Errorf("absent limit should use engine default, got %d", fake.lastReq.TopK)
	}
}

func TestSearchHandlerMissingQuery(t *testing.T) {
	h := newTestHandler(&fakeSearcher{})
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest("GET", "/api/v1/search", nil))
	if rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchHandlerLimit(t *testing.T) {
	tests := []struct {
		name       string
		limitParam string
		wantStatus int
		wantTopK   int
	}{
		{"explicit limit", "5", 200, 5},
		{"capped at max", "5000", 200, 100},
		{"zero rejected", "0", 400, 0},
		{"negative rejected", "-3", 400, 0},
		{"non-numeric rejected", "ten", 400, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSearcher{results: []engine.SearchResult{}}
			h := newTestHandler(fake)
			rec := httptest.NewRecorder()
			h.Search(rec, httptest.NewRequest("GET", "/api/v1/search?q=x&limit="+tt.limitParam, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == 200 && fake.lastReq.TopK != tt.wantTopK {
				t.Errorf("TopK = %d, want %d", fake.lastReq.TopK, tt.wantTopK)
			}
		})
	}
}

func TestSearchHandlerFilters(t *testing.T) {
	fake := &fakeSearcher{results: []engine.SearchResult{}}
	h := newTestHandler(fake)

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest("GET", "/api/v1/search?q=x&filter=category:programming&filter=lang:go", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if fake.lastReq.Filter == nil || len(fake.lastReq.Filter.Filters) != 2 {
		t.Fatalf("filter set = %+v, want 2 filters", fake.lastReq.Filter)
	}
	if fake.lastReq.Filter.Filters[0].Key != "category" {
		t.Errorf("first filter key = %q", fake.lastReq.Filter.Filters[0].Key)
	}

	rec = httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest("GET", "/api/v1/search?q=x&filter=malformed", nil))
	if rec.Code != 400 {
		t.Errorf("malformed filter status = %d, want 400", rec.Code)
	}
}

func TestSearchHandlerMode(t *testing.T) {
	fake := &fakeSearcher{results: []engine.SearchResult{}}
	h := newTestHandler(fake)
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest("GET", "/api/v1/search?q=x&mode=all", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if fake.lastReq.Mode != engine.MatchAll {
		t.Errorf("mode = %q, want all", fake.lastReq.Mode)
	}
}

func TestSearchHandlerEngineError(t *testing.T) {
	fake := &fakeSearcher{err: apperrors.Newf(apperrors.ErrInvalidArgument, 400, "bad request")}
	h := newTestHandler(fake)
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest("GET", "/api/v1/search?q=x", nil))
	if rec.Code != 400 {
		t.Errorf("status = %d, want 400 for invalid argument", rec.Code)
	}
}

func TestDocumentHandler(t *testing.T) {
	h := newTestHandler(&fakeSearcher{})

	mux := httptestMux(h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/documents/doc1", nil))
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/documents/ghost", nil))
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404 for unknown document", rec.Code)
	}
}

func TestCacheEndpointsDisabled(t *testing.T) {
	h := newTestHandler(&fakeSearcher{})

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest("GET", "/api/v1/cache/stats", nil))
	if rec.Code != 200 {
		t.Errorf("CacheStats status = %d, want 200 with disabled marker", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest("POST", "/api/v1/cache/invalidate", nil))
	if rec.Code != 503 {
		t.Errorf("CacheInvalidate status = %d, want 503 when cache is disabled", rec.Code)
	}
}

func TestSearchHandlerTracksZeroResultEvents(t *testing.T) {
	agg := stats.NewAggregator()
	collector := stats.NewCollector(agg, nil, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	collector.Start(ctx)

	empty := New(&fakeSearcher{results: []engine.SearchResult{}}, nil, collector, nil, 100)
	rec := httptest.NewRecorder()
	empty.Search(rec, httptest.NewRequest("GET", "/api/v1/search?q=nothingmatches", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}

	matching := New(&fakeSearcher{results: []engine.SearchResult{
		{DocID: "doc1", Score: 1.2, Rank: 1},
	}}, nil, collector, nil, 100)
	rec = httptest.NewRecorder()
	matching.Search(rec, httptest.NewRequest("GET", "/api/v1/search?q=python", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}

	collector.Close()

	got := agg.Stats()
	if got.TotalSearches != 2 {
		t.Fatalf("TotalSearches = %d, want 2", got.TotalSearches)
	}
	if got.ZeroResultCount != 1 {
		t.Errorf("ZeroResultCount = %d, want 1", got.ZeroResultCount)
	}
	if len(got.ZeroResultQueries) != 1 || got.ZeroResultQueries[0].Query != "nothingmatches" {
		t.Errorf("ZeroResultQueries = %+v, want only nothingmatches", got.ZeroResultQueries)
	}
}

func TestSearchHandlerCacheCountersSkippedWithoutCache(t *testing.T) {
	m := metrics.New()
	h := New(&fakeSearcher{results: []engine.SearchResult{}}, nil, nil, m, 100)

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest("GET", "/api/v1/search?q=x", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}

	// With no cache configured neither counter moves; the query itself is
	// still counted.
	if got := testutil.ToFloat64(m.CacheMissesTotal); got != 0 {
		t.Errorf("CacheMissesTotal = %f with caching disabled, want 0", got)
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 0 {
		t.Errorf("CacheHitsTotal = %f with caching disabled, want 0", got)
	}
	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")); got != 1 {
		t.Errorf("SearchQueriesTotal{zero_result} = %f, want 1", got)
	}
}

// httptestMux wires the document route so PathValue resolves.
func httptestMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document(func(id string) (any, bool) {
		if id == "doc1" {
			return map[string]string{"id": id}, true
		}
		return nil, false
	}))
	return mux
}
