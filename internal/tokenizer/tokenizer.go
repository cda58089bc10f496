// Package tokenizer normalises raw text into index terms. It lower-cases
// input, splits on non-alphanumeric boundaries, and discards single-rune
// tokens. The same function must be used for indexing and for queries, or
// term matching silently breaks.
//
// The tokenizer deliberately performs no stopword removal and no stemming;
// callers that want vocabulary filtering layer it on top with
// FilterStopwords.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize breaks text into a slice of lowercased terms. Identical input
// always yields identical output. Empty or non-textual input yields an
// empty slice, never an error.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// Stopwords builds a lookup set from a word list, normalising entries the
// same way Tokenize does.
func Stopwords(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// FilterStopwords returns terms with every member of stopwords removed.
// A nil or empty set returns terms unchanged.
func FilterStopwords(terms []string, stopwords map[string]struct{}) []string {
	if len(stopwords) == 0 {
		return terms
	}
	filtered := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, isStop := stopwords[term]; isStop {
			continue
		}
		filtered = append(filtered, term)
	}
	return filtered
}
