package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/searchcore/kbsearch/internal/archive"
	"github.com/searchcore/kbsearch/internal/docstore"
	"github.com/searchcore/kbsearch/internal/engine"
	"github.com/searchcore/kbsearch/internal/metadata"
	apperrors "github.com/searchcore/kbsearch/pkg/errors"
	"github.com/searchcore/kbsearch/pkg/kafka"
)

// Invalidator is notified after every applied mutation so stale cached
// query results get dropped.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// HandleDocumentEvent returns a Kafka MessageHandler that applies document
// events to the engine. archiveStore and invalidator may be nil.
//
// Index events for an ID that is already indexed are treated as re-index:
// remove then add, matching the archive's upsert view of the world.
func HandleDocumentEvent(eng *engine.Engine, archiveStore *archive.Store, invalidator Invalidator) kafka.MessageHandler {
	logger := slog.Default().With("component", "document-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[DocumentEvent](value)
		if err != nil {
			// A malformed event can never succeed; drop it instead of
			// wedging the partition.
			logger.Error("failed to decode document event",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		switch event.Action {
		case ActionDelete:
			removed := eng.RemoveDocument(ctx, event.DocumentID)
			archiveStore.MarkStatus(ctx, event.DocumentID, archive.StatusDeleted)
			logger.Info("document delete applied",
				"doc_id", event.DocumentID,
				"was_indexed", removed,
			)
		case ActionIndex:
			meta, err := metadata.FromMap(event.Metadata)
			if err != nil {
				logger.Error("document event has invalid metadata, dropping",
					"doc_id", event.DocumentID,
					"error", err,
				)
				archiveStore.MarkStatus(ctx, event.DocumentID, archive.StatusFailed)
				return nil
			}
			doc := docstore.Document{
				ID:       event.DocumentID,
				Title:    event.Title,
				Body:     event.Body,
				Metadata: meta,
			}
			_, err = eng.AddDocument(ctx, doc)
			if errors.Is(err, apperrors.ErrDuplicateID) {
				eng.RemoveDocument(ctx, event.DocumentID)
				_, err = eng.AddDocument(ctx, doc)
			}
			if err != nil {
				archiveStore.MarkStatus(ctx, event.DocumentID, archive.StatusFailed)
				return fmt.Errorf("indexing document %s: %w", event.DocumentID, err)
			}
			archiveStore.MarkStatus(ctx, event.DocumentID, archive.StatusIndexed)
			logger.Info("document indexed", "doc_id", event.DocumentID)
		default:
			logger.Error("unknown document event action, dropping",
				"action", event.Action,
				"doc_id", event.DocumentID,
			)
			return nil
		}

		if invalidator != nil {
			if err := invalidator.Invalidate(ctx); err != nil {
				logger.Error("cache invalidation failed", "error", err)
			}
		}
		return nil
	}
}
