// Package index implements the in-memory inverted index and the corpus
// statistics that feed BM25 scoring.
package index

import (
	"sort"
	"sync"
)

// Inverted maps each term to the set of documents containing it, with the
// per-document term frequency, plus the per-document token lengths needed
// for BM25 length normalisation.
//
// Invariants maintained across every mutation:
//   - DocFreq(term) == len(PostingsFor(term)) for all terms
//   - a term entry whose posting set becomes empty is deleted (no
//     zero-posting phantom terms)
//   - AvgDocLen == total indexed tokens / DocCount, or 0 when the index is
//     empty
type Inverted struct {
	mu       sync.RWMutex
	postings map[string]map[string]*Posting
	docTerms map[string][]string
	docLens  map[string]int
	totalLen int64
}

// NewInverted creates an empty index.
func NewInverted() *Inverted {
	return &Inverted{
		postings: make(map[string]map[string]*Posting),
		docTerms: make(map[string][]string),
		docLens:  make(map[string]int),
	}
}

// Add indexes a document's term sequence, overwriting any postings the
// document already had. Term frequency is the raw occurrence count within
// terms; normalisation happens at scoring time. Re-indexing recomputes the
// postings wholesale, which keeps consistency simple at O(document length)
// cost.
func (inv *Inverted) Add(docID string, terms []string) {
	freqs := make(map[string]int, len(terms))
	for _, term := range terms {
		freqs[term]++
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if _, exists := inv.docLens[docID]; exists {
		inv.removeLocked(docID)
	}

	termList := make([]string, 0, len(freqs))
	for term, freq := range freqs {
		docs, ok := inv.postings[term]
		if !ok {
			docs = make(map[string]*Posting)
			inv.postings[term] = docs
		}
		docs[docID] = &Posting{DocID: docID, Frequency: freq}
		termList = append(termList, term)
	}
	inv.docTerms[docID] = termList
	inv.docLens[docID] = len(terms)
	inv.totalLen += int64(len(terms))
}

// Remove deletes every posting for docID and reports whether the document
// was indexed. Removing an unknown document is a no-op returning false and
// leaves all statistics untouched.
func (inv *Inverted) Remove(docID string) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if _, exists := inv.docLens[docID]; !exists {
		return false
	}
	inv.removeLocked(docID)
	return true
}

func (inv *Inverted) removeLocked(docID string) {
	for _, term := range inv.docTerms[docID] {
		docs := inv.postings[term]
		delete(docs, docID)
		if len(docs) == 0 {
			delete(inv.postings, term)
		}
	}
	delete(inv.docTerms, docID)
	inv.totalLen -= int64(inv.docLens[docID])
	delete(inv.docLens, docID)
}

// PostingsFor returns a copy of the posting list for term, sorted by DocID.
// Unknown terms yield an empty list, not an error.
func (inv *Inverted) PostingsFor(term string) PostingList {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	docs, exists := inv.postings[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// DocFreq returns the number of documents containing term.
func (inv *Inverted) DocFreq(term string) int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.postings[term])
}

// DocCount returns the number of indexed documents.
func (inv *Inverted) DocCount() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.docLens)
}

// TermCount returns the number of distinct live terms.
func (inv *Inverted) TermCount() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.postings)
}

// DocLen returns the token count of an indexed document, or 0 if unknown.
func (inv *Inverted) DocLen(docID string) int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.docLens[docID]
}

// AvgDocLen returns the mean token count across indexed documents, or 0
// when the index is empty.
func (inv *Inverted) AvgDocLen() float64 {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	if len(inv.docLens) == 0 {
		return 0
	}
	return float64(inv.totalLen) / float64(len(inv.docLens))
}

// Snapshot returns all term entries sorted by term, with postings sorted by
// DocID. Used by diagnostics and tests.
func (inv *Inverted) Snapshot() []TermEntry {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	entries := make([]TermEntry, 0, len(inv.postings))
	for term, docs := range inv.postings {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{Term: term, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}
