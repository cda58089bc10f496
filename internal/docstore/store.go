// Package docstore owns the canonical in-memory document records. The
// inverted index stores only derived postings; the store keeps the source
// text and metadata so results can be hydrated and filters evaluated.
package docstore

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/searchcore/kbsearch/internal/metadata"
	apperrors "github.com/searchcore/kbsearch/pkg/errors"
)

// Document is a single searchable record. Title and Body together form the
// indexed text. Metadata is opaque to the store; the query engine evaluates
// filter predicates against it.
type Document struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Metadata metadata.Document `json:"metadata,omitempty"`
}

// Text returns the full text that gets tokenized for indexing.
func (d Document) Text() string {
	if d.Title == "" {
		return d.Body
	}
	return d.Title + " " + d.Body
}

// ContentID derives a stable document ID from the document content, used
// when the producer did not supply one.
func ContentID(title, body string) string {
	sum := sha256.Sum256([]byte(title + "\x00" + body))
	return fmt.Sprintf("%x", sum[:16])
}

// Store is a concurrency-safe in-memory document store.
type Store struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		docs: make(map[string]Document),
	}
}

// Add inserts a document. Adding an ID that is already present fails with
// ErrDuplicateID; callers resolve by removing first or choosing a fresh ID.
func (s *Store) Add(doc Document) error {
	if doc.ID == "" {
		return apperrors.Newf(apperrors.ErrInvalidArgument, 400, "document id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return apperrors.Newf(apperrors.ErrDuplicateID, 409, "document %q already present", doc.ID)
	}
	s.docs[doc.ID] = doc
	return nil
}

// Remove deletes a document and reports whether it was present. Removing an
// unknown ID is a no-op returning false, so retried deletions stay safe.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[id]; !exists {
		return false
	}
	delete(s.docs, id)
	return true
}

// Get returns the document for id, if present.
func (s *Store) Get(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
