// Package archive persists source documents to PostgreSQL. Only the raw
// documents are archived; the search index itself stays in memory and is
// rebuilt from the event stream.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/searchcore/kbsearch/pkg/errors"
	"github.com/searchcore/kbsearch/pkg/postgres"
)

// Document lifecycle states in the archive.
const (
	StatusPending = "PENDING"
	StatusIndexed = "INDEXED"
	StatusFailed  = "FAILED"
	StatusDeleted = "DELETED"
)

// Record is an archived source document.
type Record struct {
	ID             string
	Title          string
	Body           string
	Metadata       map[string]any
	ContentHash    string
	IdempotencyKey string
	Status         string
	CreatedAt      time.Time
}

// Store reads and writes archived documents.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "archive"),
	}
}

// Insert persists a new document in PENDING state. A duplicate idempotency
// key fails with ErrIdempotencyConflict.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx,
			`INSERT INTO documents (id, title, body, metadata, content_hash, idempotency_key, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (idempotency_key) DO NOTHING
			 RETURNING id`,
			rec.ID, rec.Title, rec.Body, metadataJSON, rec.ContentHash,
			nullableString(rec.IdempotencyKey), StatusPending,
		).Scan(&id)
		if err == sql.ErrNoRows {
			return apperrors.New(apperrors.ErrIdempotencyConflict, 409, "idempotency key already in use")
		}
		return err
	})
}

// FindByIdempotencyKey returns the record previously ingested with key, or
// nil when none exists.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*Record, error) {
	var rec Record
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, status FROM documents WHERE idempotency_key = $1`, key,
	).Scan(&rec.ID, &rec.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by idempotency key: %w", err)
	}
	return &rec, nil
}

// UpdateStatus moves a document to a new lifecycle state.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := s.db.DB.ExecContext(ctx,
		`UPDATE documents SET status = $1, indexed_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("updating document %s status: %w", id, err)
	}
	return nil
}

// MarkStatus is a fire-and-forget UpdateStatus used on consumer paths where
// a status-write failure must not fail the message. A nil Store is a no-op,
// so indexing works without an archive attached.
func (s *Store) MarkStatus(ctx context.Context, id, status string) {
	if s == nil {
		return
	}
	if err := s.UpdateStatus(ctx, id, status); err != nil {
		s.logger.Error("failed to update document status",
			"doc_id", id,
			"status", status,
			"error", err,
		)
	}
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
