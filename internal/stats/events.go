// Package stats tracks query analytics for the search service: totals,
// latency percentiles, top queries, and zero-result queries. Events flow
// through a buffered Collector into an in-process Aggregator, optionally
// mirrored to a Kafka topic for external consumers.
package stats

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventIndexDoc   EventType = "index_document"
	EventRemoveDoc  EventType = "remove_document"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

type IndexEvent struct {
	Type       EventType `json:"type"`
	DocumentID string    `json:"document_id"`
	Timestamp  time.Time `json:"timestamp"`
}
