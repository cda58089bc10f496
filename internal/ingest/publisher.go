package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/searchcore/kbsearch/internal/archive"
	"github.com/searchcore/kbsearch/internal/docstore"
	"github.com/searchcore/kbsearch/pkg/kafka"
	"github.com/searchcore/kbsearch/pkg/resilience"
)

// Publisher archives incoming documents and publishes document events for
// downstream indexing.
type Publisher struct {
	archive  *archive.Store
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewPublisher creates a Publisher. archiveStore may be nil to run without
// persistence.
func NewPublisher(archiveStore *archive.Store, producer *kafka.Producer) *Publisher {
	return &Publisher{
		archive:  archiveStore,
		producer: producer,
		logger:   slog.Default().With("component", "ingest-publisher"),
	}
}

// Ingest persists the document (when an archive is configured) and publishes
// an index event. Duplicate idempotency keys return the prior response
// without re-insertion.
func (p *Publisher) Ingest(ctx context.Context, req *IngestRequest) (*IngestResponse, error) {
	docID := req.ID
	if docID == "" {
		docID = docstore.ContentID(req.Title, req.Body)
	}
	contentHash := fmt.Sprintf("%x", sha256.Sum256([]byte(req.Body)))

	if p.archive != nil {
		if req.IdempotencyKey != "" {
			existing, err := p.archive.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if err != nil {
				return nil, fmt.Errorf("checking idempotency key: %w", err)
			}
			if existing != nil {
				p.logger.Info("duplicate ingestion detected",
					"idempotency_key", req.IdempotencyKey,
					"existing_id", existing.ID,
				)
				return &IngestResponse{DocumentID: existing.ID, Status: existing.Status}, nil
			}
		}
		err := p.archive.Insert(ctx, archive.Record{
			ID:             docID,
			Title:          req.Title,
			Body:           req.Body,
			Metadata:       req.Metadata,
			ContentHash:    contentHash,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			return nil, fmt.Errorf("archiving document: %w", err)
		}
	}

	event := kafka.Event{
		Key: docID,
		Value: DocumentEvent{
			Action:     ActionIndex,
			DocumentID: docID,
			Title:      req.Title,
			Body:       req.Body,
			Metadata:   req.Metadata,
			IngestedAt: time.Now().UTC(),
		},
	}
	err := resilience.Retry(ctx, "publish-document-event", resilience.RetryConfig{}, func() error {
		return p.producer.Publish(ctx, event)
	})
	if err != nil {
		p.logger.Error("failed to publish document event, document stuck in PENDING",
			"doc_id", docID,
			"error", err,
		)
		return nil, fmt.Errorf("publishing document event: %w", err)
	}
	return &IngestResponse{DocumentID: docID, Status: archive.StatusPending}, nil
}

// Delete publishes a delete event for docID. Deleting an unknown document
// is legal; the consumer treats it as a no-op.
func (p *Publisher) Delete(ctx context.Context, docID string) error {
	event := kafka.Event{
		Key: docID,
		Value: DocumentEvent{
			Action:     ActionDelete,
			DocumentID: docID,
			IngestedAt: time.Now().UTC(),
		},
	}
	err := resilience.Retry(ctx, "publish-delete-event", resilience.RetryConfig{}, func() error {
		return p.producer.Publish(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("publishing delete event: %w", err)
	}
	p.logger.Info("delete event published", "doc_id", docID)
	return nil
}
