// Package consumer indexes batches queued on the document-ingest topic and
// announces each finished batch on the index-complete topic.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// HandleMessage returns a kafka.MessageHandler that runs each IngestEvent
// through engine. completions may be nil. Undecodable events and events that
// fail request validation are discarded before any ID is allocated;
// per-document failures, an unsupported language included, are reported in
// the completion event.
func HandleMessage(engine ingestion.Ingester, completions ingestion.EventPublisher) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event", "key", string(key), "error", err)
			return kafka.Discard(err)
		}
		if err := validator.ValidateIngestRequest(&ingestion.IngestRequest{
			Documents: event.Documents,
			URLs:      event.URLs,
			Language:  event.Language,
		}); err != nil {
			logger.Error("rejecting ingest event", "batch_id", event.BatchID, "error", err)
			return kafka.Discard(fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err))
		}
		logger.Debug("processing ingest event",
			"batch_id", event.BatchID,
			"documents", len(event.Documents),
			"urls", len(event.URLs),
		)

		resp, err := ingestion.Run(ctx, engine, event.BatchID, event.Documents, event.URLs, event.Language, event.Parallel)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidInput) {
				logger.Error("rejecting ingest event", "batch_id", event.BatchID, "error", err)
				return kafka.Discard(err)
			}
			return fmt.Errorf("indexing batch %s: %w", event.BatchID, err)
		}

		attrs := []any{
			"batch_id", event.BatchID,
			"indexed", resp.Indexed,
			"failed", resp.Failed,
		}
		if !event.SubmittedAt.IsZero() {
			attrs = append(attrs, "queued_for", time.Since(event.SubmittedAt))
		}
		logger.Info("batch indexed", attrs...)

		if completions == nil {
			return nil
		}
		done := ingestion.IndexCompleteEvent{
			BatchID:     resp.BatchID,
			Status:      resp.Status,
			Indexed:     resp.Indexed,
			Failed:      resp.Failed,
			Documents:   resp.Documents,
			CompletedAt: time.Now().UTC(),
		}
		if err := completions.Publish(ctx, kafka.Event{Key: event.BatchID, Value: done}); err != nil {
			logger.Error("failed to publish completion", "batch_id", event.BatchID, "error", err)
		}
		return nil
	}
}
