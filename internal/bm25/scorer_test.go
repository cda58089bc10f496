package bm25

import (
	"errors"
	"math"
	"testing"

	"github.com/searchcore/kbsearch/internal/index"
	apperrors "github.com/searchcore/kbsearch/pkg/errors"
)

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		wantOK bool
	}{
		{"defaults", DefaultParams(), true},
		{"zero k1", Params{K1: 0, B: 0.75}, true},
		{"zero b", Params{K1: 1.5, B: 0}, true},
		{"b at one", Params{K1: 1.5, B: 1}, true},
		{"negative k1", Params{K1: -0.1, B: 0.75}, false},
		{"b above one", Params{K1: 1.5, B: 1.01}, false},
		{"negative b", Params{K1: 1.5, B: -0.5}, false},
		{"nan k1", Params{K1: math.NaN(), B: 0.75}, false},
		{"inf k1", Params{K1: math.Inf(1), B: 0.75}, false},
		{"nan b", Params{K1: 1.5, B: math.NaN()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.wantOK {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !errors.Is(err, apperrors.ErrInvalidArgument) {
					t.Errorf("error is not ErrInvalidArgument: %v", err)
				}
			}
		})
	}
}

func TestIDFNonNegative(t *testing.T) {
	// The smoothed formula must stay >= 0 even when a term appears in
	// every document.
	for _, n := range []int{1, 2, 10, 1000} {
		for df := 0; df <= n; df++ {
			if idf := IDF(n, df); idf < 0 {
				t.Errorf("IDF(%d, %d) = %f, must be non-negative", n, df, idf)
			}
		}
	}
}

func TestIDFDecreasesWithDocFreq(t *testing.T) {
	n := 100
	prev := math.Inf(1)
	for df := 1; df <= n; df++ {
		idf := IDF(n, df)
		if idf >= prev {
			t.Fatalf("IDF not strictly decreasing at df=%d: %f >= %f", df, idf, prev)
		}
		prev = idf
	}
}

func TestIDFValue(t *testing.T) {
	// N=3, df=1: ln((3-1+0.5)/(1+0.5)+1) = ln(2.5/1.5+1)
	want := math.Log(2.5/1.5 + 1)
	if got := IDF(3, 1); math.Abs(got-want) > 1e-12 {
		t.Errorf("IDF(3,1) = %f, want %f", got, want)
	}
}

func TestTermScoreMonotoneAndSaturating(t *testing.T) {
	p := DefaultParams()
	avg := 10.0
	prev := 0.0
	prevGain := math.Inf(1)
	for tf := 1; tf <= 50; tf++ {
		score := p.TermScore(tf, 10, avg)
		if score <= prev {
			t.Fatalf("TermScore not increasing at tf=%d: %f <= %f", tf, score, prev)
		}
		gain := score - prev
		if gain >= prevGain {
			t.Fatalf("marginal gain not shrinking at tf=%d: %f >= %f", tf, gain, prevGain)
		}
		prev, prevGain = score, gain
	}
	// Saturation bound: tf*(k1+1)/(tf+...) < k1+1 always.
	if prev >= p.K1+1 {
		t.Errorf("TermScore %f exceeded saturation bound %f", prev, p.K1+1)
	}
}

func TestTermScoreLengthNormalization(t *testing.T) {
	p := DefaultParams()
	avg := 10.0
	short := p.TermScore(2, 5, avg)
	long := p.TermScore(2, 20, avg)
	if short <= long {
		t.Errorf("shorter document should score higher for equal tf: short=%f long=%f", short, long)
	}

	// With B=0 length plays no role.
	flat := Params{K1: 1.5, B: 0}
	if flat.TermScore(2, 5, avg) != flat.TermScore(2, 20, avg) {
		t.Error("B=0 should disable length normalisation")
	}
}

func TestTermScoreEmptyCorpus(t *testing.T) {
	p := DefaultParams()
	if got := p.TermScore(3, 7, 0); got != 0 {
		t.Errorf("TermScore with zero avgDocLen = %f, want 0", got)
	}
}

func rankFixture() (map[string]index.PostingList, CorpusStats, func(string) int) {
	// Three documents; "python" appears in doc1 (x2) and doc2, "programming"
	// in doc1 and doc3.
	postings := map[string]index.PostingList{
		"python": {
			{DocID: "doc1", Frequency: 2},
			{DocID: "doc2", Frequency: 1},
		},
		"programming": {
			{DocID: "doc1", Frequency: 1},
			{DocID: "doc3", Frequency: 1},
		},
	}
	lens := map[string]int{"doc1": 6, "doc2": 5, "doc3": 5}
	stats := CorpusStats{TotalDocs: 3, AvgDocLength: 16.0 / 3.0}
	return postings, stats, func(id string) int { return lens[id] }
}

func TestRankOrdering(t *testing.T) {
	postings, stats, docLen := rankFixture()
	got := Rank(postings, nil, nil, DefaultParams(), stats, docLen, 0)

	if len(got) != 3 {
		t.Fatalf("ranked %d documents, want 3", len(got))
	}
	// doc1 matches both terms and must rank first.
	if got[0].DocID != "doc1" {
		t.Errorf("top document = %s, want doc1", got[0].DocID)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("results not sorted by score at %d: %f > %f", i, got[i].Score, got[i-1].Score)
		}
	}
	for _, doc := range got {
		if doc.Score <= 0 {
			t.Errorf("%s scored %f, matching documents must score > 0", doc.DocID, doc.Score)
		}
	}
}

func TestRankTieBreakByDocID(t *testing.T) {
	// Two identical documents produce identical scores; order must fall
	// back to ascending DocID.
	postings := map[string]index.PostingList{
		"term": {
			{DocID: "zeta", Frequency: 1},
			{DocID: "alpha", Frequency: 1},
		},
	}
	stats := CorpusStats{TotalDocs: 2, AvgDocLength: 3}
	docLen := func(string) int { return 3 }

	got := Rank(postings, nil, nil, DefaultParams(), stats, docLen, 0)
	if len(got) != 2 {
		t.Fatalf("ranked %d, want 2", len(got))
	}
	if got[0].Score != got[1].Score {
		t.Fatalf("expected a tie, got %f vs %f", got[0].Score, got[1].Score)
	}
	if got[0].DocID != "alpha" || got[1].DocID != "zeta" {
		t.Errorf("tie not broken by ascending doc id: %s, %s", got[0].DocID, got[1].DocID)
	}
}

func TestRankDuplicateTermWeights(t *testing.T) {
	postings, stats, docLen := rankFixture()

	single := Rank(postings, map[string]int{"python": 1}, nil, DefaultParams(), stats, docLen, 0)
	double := Rank(postings, map[string]int{"python": 2}, nil, DefaultParams(), stats, docLen, 0)

	findScore := func(results []ScoredDoc, id string) float64 {
		for _, r := range results {
			if r.DocID == id {
				return r.Score
			}
		}
		return math.NaN()
	}
	s1 := findScore(single, "doc2")
	s2 := findScore(double, "doc2")
	if math.Abs(s2-2*s1) > 1e-9 {
		t.Errorf("duplicated query term should double the contribution: %f vs 2*%f", s2, s1)
	}
}

func TestRankLimit(t *testing.T) {
	postings, stats, docLen := rankFixture()
	got := Rank(postings, nil, nil, DefaultParams(), stats, docLen, 2)
	if len(got) != 2 {
		t.Fatalf("limit 2 returned %d results", len(got))
	}
	if got[0].DocID != "doc1" {
		t.Errorf("truncation must keep the top-scored documents, got %s first", got[0].DocID)
	}
}

func TestRankDeterministic(t *testing.T) {
	postings, stats, docLen := rankFixture()
	first := Rank(postings, nil, nil, DefaultParams(), stats, docLen, 0)
	for i := 0; i < 10; i++ {
		again := Rank(postings, nil, nil, DefaultParams(), stats, docLen, 0)
		if len(again) != len(first) {
			t.Fatal("result length changed between runs")
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d differs at %d: %+v vs %+v", i, j, again[j], first[j])
			}
		}
	}
}

func TestRankCorpusDocFreqs(t *testing.T) {
	// Narrowing a posting list to a candidate subset must not change the
	// surviving documents' scores when the corpus-wide df is supplied.
	full, stats, docLen := rankFixture()
	narrowed := map[string]index.PostingList{
		"python": {{DocID: "doc1", Frequency: 2}},
	}
	docFreqs := map[string]int{"python": len(full["python"])}

	whole := Rank(map[string]index.PostingList{"python": full["python"]}, nil, nil, DefaultParams(), stats, docLen, 0)
	subset := Rank(narrowed, nil, docFreqs, DefaultParams(), stats, docLen, 0)

	var want float64
	for _, r := range whole {
		if r.DocID == "doc1" {
			want = r.Score
		}
	}
	if len(subset) != 1 || subset[0].DocID != "doc1" {
		t.Fatalf("narrowed rank = %+v, want only doc1", subset)
	}
	if subset[0].Score != want {
		t.Errorf("narrowed postings changed doc1's score: %f, want %f", subset[0].Score, want)
	}

	// Without the corpus df the narrowed list understates df and inflates
	// the score.
	inflated := Rank(narrowed, nil, nil, DefaultParams(), stats, docLen, 0)
	if inflated[0].Score <= want {
		t.Errorf("expected df fallback on narrowed postings to inflate the score: %f vs %f", inflated[0].Score, want)
	}
}

func TestRankEmptyPostings(t *testing.T) {
	stats := CorpusStats{TotalDocs: 5, AvgDocLength: 4}
	got := Rank(map[string]index.PostingList{}, nil, nil, DefaultParams(), stats, func(string) int { return 0 }, 10)
	if len(got) != 0 {
		t.Errorf("no postings should produce no results, got %d", len(got))
	}
}
