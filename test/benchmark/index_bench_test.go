// Package benchmark contains Go benchmarks for the inverted index, the
// tokenizer, and the end-to-end search path, measuring throughput and
// allocation behaviour.
package benchmark

import (
	"fmt"
	"testing"

	"github.com/searchcore/kbsearch/internal/index"
	"github.com/searchcore/kbsearch/internal/tokenizer"
)

var docText = "inverted index benchmark document with several distinct terms measuring insert throughput of the posting maps"

// BenchmarkIndexAdd measures per-document insert throughput.
func BenchmarkIndexAdd(b *testing.B) {
	inv := index.NewInverted()
	terms := tokenizer.Tokenize(docText)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		inv.Add(fmt.Sprintf("doc-%d", i), terms)
	}
}

// BenchmarkIndexPostingsFor measures posting-list lookup over a 10 000
// document corpus.
func BenchmarkIndexPostingsFor(b *testing.B) {
	inv := index.NewInverted()
	terms := tokenizer.Tokenize(docText)
	for i := 0; i < 10000; i++ {
		inv.Add(fmt.Sprintf("doc-%d", i), terms)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = inv.PostingsFor("index")
	}
}

// BenchmarkIndexPostingsForParallel measures concurrent read throughput.
func BenchmarkIndexPostingsForParallel(b *testing.B) {
	inv := index.NewInverted()
	terms := tokenizer.Tokenize(docText)
	for i := 0; i < 10000; i++ {
		inv.Add(fmt.Sprintf("doc-%d", i), terms)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = inv.PostingsFor("index")
		}
	})
}

// BenchmarkIndexRemove measures removal cost including phantom-term cleanup.
func BenchmarkIndexRemove(b *testing.B) {
	terms := tokenizer.Tokenize(docText)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		inv := index.NewInverted()
		for j := 0; j < 100; j++ {
			inv.Add(fmt.Sprintf("doc-%d", j), terms)
		}
		b.StartTimer()
		for j := 0; j < 100; j++ {
			inv.Remove(fmt.Sprintf("doc-%d", j))
		}
	}
}

// BenchmarkIndexSnapshot measures the cost of a full sorted snapshot.
func BenchmarkIndexSnapshot(b *testing.B) {
	inv := index.NewInverted()
	for i := 0; i < 5000; i++ {
		inv.Add(fmt.Sprintf("doc-%d", i), tokenizer.Tokenize(fmt.Sprintf("%s variant%d", docText, i%50)))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = inv.Snapshot()
	}
}
