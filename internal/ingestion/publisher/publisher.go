// Package publisher enqueues ingestion batches on Kafka for asynchronous
// indexing.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

type Publisher struct {
	producer ingestion.EventPublisher
	now      func() time.Time
	logger   *slog.Logger
}

func New(producer ingestion.EventPublisher) *Publisher {
	return &Publisher{
		producer: producer,
		now:      time.Now,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Enqueue publishes req as one IngestEvent keyed by a fresh batch ID. lang
// must already be resolved. Nothing is indexed until a consumer picks the
// event up.
func (p *Publisher) Enqueue(ctx context.Context, req *ingestion.IngestRequest, lang string) (*ingestion.IngestResponse, error) {
	batchID := uuid.NewString()
	event := ingestion.IngestEvent{
		BatchID:     batchID,
		Documents:   req.Documents,
		URLs:        req.URLs,
		Language:    lang,
		Parallel:    req.Parallel,
		SubmittedAt: p.now().UTC(),
	}
	if err := p.producer.Publish(ctx, kafka.Event{Key: batchID, Value: event}); err != nil {
		return nil, fmt.Errorf("enqueueing batch %s: %w", batchID, err)
	}
	p.logger.Info("batch queued",
		"batch_id", batchID,
		"documents", len(req.Documents),
		"urls", len(req.URLs),
		"language", lang,
	)
	return &ingestion.IngestResponse{
		BatchID: batchID,
		Status:  ingestion.StatusQueued,
	}, nil
}
