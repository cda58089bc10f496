// Package engine orchestrates the document store, tokenizer, inverted index,
// and BM25 scorer behind a single ingestion and query API.
//
// Concurrency follows a readers-writer discipline: any number of Search
// calls may run concurrently, while AddDocument/RemoveDocument take the
// write lock because they mutate the shared posting maps and the corpus
// counters Search reads.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/searchcore/kbsearch/internal/bm25"
	"github.com/searchcore/kbsearch/internal/docstore"
	"github.com/searchcore/kbsearch/internal/index"
	"github.com/searchcore/kbsearch/internal/tokenizer"
	"github.com/searchcore/kbsearch/pkg/config"
	apperrors "github.com/searchcore/kbsearch/pkg/errors"
)

// MatchMode selects how the candidate set is formed from per-term postings.
type MatchMode string

const (
	// MatchAny unions the posting sets of all query terms. This is the
	// default: documents matching any query term are scored, and BM25
	// ranking sorts multi-term matches above single-term ones.
	MatchAny MatchMode = "any"
	// MatchAll intersects the posting sets, an explicit stricter
	// alternative for precision-sensitive callers.
	MatchAll MatchMode = "all"
)

// Engine is the in-memory BM25 search engine.
type Engine struct {
	mu        sync.RWMutex
	store     *docstore.Store
	idx       *index.Inverted
	params    bm25.Params
	topK      int
	mode      MatchMode
	stopwords map[string]struct{}
	logger    *slog.Logger
}

// New builds an Engine from configuration, failing fast on parameter values
// outside their valid ranges.
func New(cfg config.EngineConfig) (*Engine, error) {
	params := bm25.Params{K1: cfg.K1, B: cfg.B}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if cfg.DefaultTopK <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, 400, "defaultTopK must be > 0, got %d", cfg.DefaultTopK)
	}
	mode := MatchMode(cfg.MatchMode)
	switch mode {
	case MatchAny, MatchAll:
	case "":
		mode = MatchAny
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, 400, "unknown match mode %q", cfg.MatchMode)
	}
	return &Engine{
		store:     docstore.New(),
		idx:       index.NewInverted(),
		params:    params,
		topK:      cfg.DefaultTopK,
		mode:      mode,
		stopwords: tokenizer.Stopwords(cfg.Stopwords),
		logger:    slog.Default().With("component", "engine"),
	}, nil
}

// DefaultTopK returns the configured result-list size used when a caller
// does not specify one.
func (e *Engine) DefaultTopK() int {
	return e.topK
}

// terms runs the full tokenization pipeline used identically at index and
// query time.
func (e *Engine) terms(text string) []string {
	return tokenizer.FilterStopwords(tokenizer.Tokenize(text), e.stopwords)
}

// AddDocument tokenizes and indexes a document. An empty ID gets a
// content-derived one. Adding an ID that is already indexed fails with
// ErrDuplicateID.
func (e *Engine) AddDocument(ctx context.Context, doc docstore.Document) (string, error) {
	if doc.ID == "" {
		doc.ID = docstore.ContentID(doc.Title, doc.Body)
	}
	terms := e.terms(doc.Text())

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.Add(doc); err != nil {
		return "", err
	}
	e.idx.Add(doc.ID, terms)
	e.logger.Debug("document indexed",
		"doc_id", doc.ID,
		"token_count", len(terms),
		"doc_count", e.idx.DocCount(),
	)
	return doc.ID, nil
}

// RemoveDocument deletes a document and all its postings. Removing an
// unknown ID returns false and leaves every statistic unchanged.
func (e *Engine) RemoveDocument(ctx context.Context, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := e.store.Remove(id)
	if removed {
		e.idx.Remove(id)
		e.logger.Debug("document removed", "doc_id", id, "doc_count", e.idx.DocCount())
	}
	return removed
}

// Document returns the stored document for id.
func (e *Engine) Document(id string) (docstore.Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Get(id)
}

// DocCount returns the number of indexed documents.
func (e *Engine) DocCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.DocCount()
}

// TermCount returns the number of distinct indexed terms.
func (e *Engine) TermCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.TermCount()
}

// AvgDocLen returns the average indexed document length in tokens.
func (e *Engine) AvgDocLen() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.AvgDocLen()
}
