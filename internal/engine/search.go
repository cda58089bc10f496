package engine

import (
	"context"

	"github.com/searchcore/kbsearch/internal/bm25"
	"github.com/searchcore/kbsearch/internal/index"
	"github.com/searchcore/kbsearch/internal/metadata"
	apperrors "github.com/searchcore/kbsearch/pkg/errors"
)

// Request describes a single search call.
type Request struct {
	// Query is the raw query text, tokenized with the same pipeline used
	// at index time.
	Query string
	// TopK bounds the result list and must be > 0. Callers wanting the
	// engine's configured default pass DefaultTopK() explicitly; the
	// engine never clamps an invalid value.
	TopK int
	// Mode overrides the engine's candidate-selection mode when non-empty.
	Mode MatchMode
	// Filter restricts candidates to documents whose metadata matches; nil
	// means no filtering.
	Filter *metadata.FilterSet
}

// SearchResult is one ranked hit. Rank is the 1-based position in the
// result list.
type SearchResult struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// Search tokenizes the query, selects candidates from the union (or, in
// MatchAll mode, intersection) of per-term postings, drops candidates
// failing the metadata filter, BM25-scores the rest, and returns the top K
// ordered by score descending with DocID ascending as the deterministic
// tie-break.
//
// An empty query yields an empty result list, not an error and not "all
// documents". Documents matching zero query terms are never scored.
func (e *Engine) Search(ctx context.Context, req Request) ([]SearchResult, error) {
	if req.TopK <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, 400, "top_k must be > 0, got %d", req.TopK)
	}
	topK := req.TopK
	mode := req.Mode
	if mode == "" {
		mode = e.mode
	}

	queryTerms := e.terms(req.Query)
	if len(queryTerms) == 0 {
		return []SearchResult{}, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	// An empty index short-circuits before any avgdl arithmetic.
	if e.idx.DocCount() == 0 {
		return []SearchResult{}, nil
	}

	termWeights := make(map[string]int, len(queryTerms))
	for _, term := range queryTerms {
		termWeights[term]++
	}
	postingsPerTerm := make(map[string]index.PostingList, len(termWeights))
	docFreqs := make(map[string]int, len(termWeights))
	for term := range termWeights {
		if postings := e.idx.PostingsFor(term); len(postings) > 0 {
			postingsPerTerm[term] = postings
			docFreqs[term] = len(postings)
		}
	}

	var candidates map[string]struct{}
	switch mode {
	case MatchAll:
		// Every query term must have matched, including those with no
		// postings at all.
		if len(postingsPerTerm) < len(termWeights) {
			return []SearchResult{}, nil
		}
		candidates = intersectPostings(postingsPerTerm)
	default:
		candidates = unionPostings(postingsPerTerm)
	}

	// Filtering before scoring: cheaper when the predicate is selective.
	// docFreqs keeps the corpus-wide df so narrowing the candidate set
	// here cannot change any surviving document's score.
	if !req.Filter.Empty() {
		for docID := range candidates {
			doc, ok := e.store.Get(docID)
			if !ok || !req.Filter.Matches(doc.Metadata) {
				delete(candidates, docID)
			}
		}
	}

	filteredPostings := make(map[string]index.PostingList, len(postingsPerTerm))
	for term, postings := range postingsPerTerm {
		filtered := make(index.PostingList, 0, len(postings))
		for _, p := range postings {
			if _, ok := candidates[p.DocID]; ok {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) > 0 {
			filteredPostings[term] = filtered
		}
	}

	stats := bm25.CorpusStats{
		TotalDocs:    e.idx.DocCount(),
		AvgDocLength: e.idx.AvgDocLen(),
	}
	ranked := bm25.Rank(filteredPostings, termWeights, docFreqs, e.params, stats, e.idx.DocLen, topK)

	results := make([]SearchResult, len(ranked))
	for i, doc := range ranked {
		results[i] = SearchResult{
			DocID: doc.DocID,
			Score: doc.Score,
			Rank:  i + 1,
		}
	}
	e.logger.Debug("query executed",
		"query", req.Query,
		"terms", queryTerms,
		"candidates", len(candidates),
		"results", len(results),
	)
	return results, nil
}

func intersectPostings(postingsPerTerm map[string]index.PostingList) map[string]struct{} {
	if len(postingsPerTerm) == 0 {
		return make(map[string]struct{})
	}
	var shortestTerm string
	shortestLen := int(^uint(0) >> 1)
	for term, postings := range postingsPerTerm {
		if len(postings) < shortestLen {
			shortestLen = len(postings)
			shortestTerm = term
		}
	}
	candidates := make(map[string]struct{}, shortestLen)
	for _, p := range postingsPerTerm[shortestTerm] {
		candidates[p.DocID] = struct{}{}
	}
	for term, postings := range postingsPerTerm {
		if term == shortestTerm {
			continue
		}
		docSet := make(map[string]struct{}, len(postings))
		for _, p := range postings {
			docSet[p.DocID] = struct{}{}
		}
		for docID := range candidates {
			if _, exists := docSet[docID]; !exists {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

func unionPostings(postingsPerTerm map[string]index.PostingList) map[string]struct{} {
	result := make(map[string]struct{})
	for _, postings := range postingsPerTerm {
		for _, p := range postings {
			result[p.DocID] = struct{}{}
		}
	}
	return result
}
