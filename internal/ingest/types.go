// Package ingest defines the request types, validation, and Kafka event
// schema for the document ingestion pipeline.
package ingest

import "time"

// Action distinguishes index and delete events on the document stream.
type Action string

const (
	ActionIndex  Action = "index"
	ActionDelete Action = "delete"
)

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
// ID is optional; a content-derived ID is assigned when absent.
type IngestRequest struct {
	ID             string         `json:"id,omitempty"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// IngestResponse is returned to the caller after a document is accepted.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// DocumentEvent is the Kafka message payload carrying one index or delete
// operation for downstream consumers.
type DocumentEvent struct {
	Action     Action         `json:"action"`
	DocumentID string         `json:"document_id"`
	Title      string         `json:"title,omitempty"`
	Body       string         `json:"body,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IngestedAt time.Time      `json:"ingested_at"`
}
