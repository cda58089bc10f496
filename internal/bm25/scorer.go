// Package bm25 implements Okapi BM25 scoring over inverted-index postings.
package bm25

import (
	"math"
	"sort"

	"github.com/searchcore/kbsearch/internal/index"
	apperrors "github.com/searchcore/kbsearch/pkg/errors"
)

// Default ranking parameters.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Params are the BM25 tuning parameters. K1 controls term-frequency
// saturation and must be >= 0; B controls document-length normalisation and
// must lie in [0,1]. They are configuration inputs, accepted per engine
// instance, never hardcoded at call sites.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams returns the standard K1=1.5, B=0.75 parameters.
func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB}
}

// Validate fails fast on parameters outside their valid ranges.
func (p Params) Validate() error {
	if p.K1 < 0 || math.IsNaN(p.K1) || math.IsInf(p.K1, 0) {
		return apperrors.Newf(apperrors.ErrInvalidArgument, 400, "k1 must be >= 0, got %v", p.K1)
	}
	if p.B < 0 || p.B > 1 || math.IsNaN(p.B) {
		return apperrors.Newf(apperrors.ErrInvalidArgument, 400, "b must be in [0,1], got %v", p.B)
	}
	return nil
}

// CorpusStats are the corpus-wide statistics BM25 needs.
type CorpusStats struct {
	TotalDocs    int
	AvgDocLength float64
}

// IDF computes the smoothed inverse document frequency
//
//	ln((N - df + 0.5) / (df + 0.5) + 1)
//
// The +1 smoothing keeps the contribution non-negative even for a term that
// appears in every document; a plain ln(N/df) can go negative and is
// rejected here.
func IDF(totalDocs, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

// TermScore computes the term-frequency component
//
//	tf * (k1+1) / (tf + k1 * (1 - b + b * docLen/avgDocLen))
//
// It is monotonically non-decreasing in tf with shrinking marginal gains
// (saturation controlled by K1). A zero avgDocLen means the corpus is
// empty; the component is defined as 0 rather than dividing by zero.
func (p Params) TermScore(termFreq int, docLen int, avgDocLen float64) float64 {
	if avgDocLen == 0 {
		return 0
	}
	tf := float64(termFreq)
	lengthRatio := float64(docLen) / avgDocLen
	denominator := tf + p.K1*(1-p.B+p.B*lengthRatio)
	if denominator == 0 {
		return 0
	}
	return (tf * (p.K1 + 1)) / denominator
}

// ScoredDoc is a document with its accumulated BM25 score.
type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Rank scores every document appearing in postingsPerTerm and returns the
// results sorted by score descending, DocID ascending on ties, truncated to
// limit (limit <= 0 means no truncation).
//
// docFreqs carries each term's corpus-wide document frequency. It must be
// taken from the index, not from postingsPerTerm: callers that narrow the
// posting lists to a candidate subset (metadata filters, intersection
// matching) would otherwise shrink df and inflate IDF, changing scores that
// the narrowing must not touch. A term missing from docFreqs falls back to
// its posting-list length, which is only correct for unnarrowed postings.
//
// The score is additive across query terms. termWeights carries the
// occurrence count of each term in the query, so a duplicated query term
// multiplies its contribution accordingly; a missing weight counts as 1.
// Callers wanting deduplication dedupe the query terms before building the
// maps.
func Rank(
	postingsPerTerm map[string]index.PostingList,
	termWeights map[string]int,
	docFreqs map[string]int,
	params Params,
	stats CorpusStats,
	docLen func(docID string) int,
	limit int,
) []ScoredDoc {
	scores := make(map[string]float64)
	for term, postings := range postingsPerTerm {
		weight := termWeights[term]
		if weight == 0 {
			weight = 1
		}
		df := docFreqs[term]
		if df == 0 {
			df = len(postings)
		}
		idf := IDF(stats.TotalDocs, df)
		for _, posting := range postings {
			contribution := idf * params.TermScore(posting.Frequency, docLen(posting.DocID), stats.AvgDocLength)
			scores[posting.DocID] += float64(weight) * contribution
		}
	}
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
