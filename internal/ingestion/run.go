package ingestion

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/stats"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Ingester is satisfied by *indexer.Engine.
type Ingester interface {
	IndexDocuments(ctx context.Context, docs []string, lang string) (*indexer.BatchResult, error)
	IndexDocumentsParallel(ctx context.Context, docs []string, lang string) (*indexer.BatchResult, error)
	IndexURLs(ctx context.Context, urls []string, lang string) (*indexer.BatchResult, error)
	ComputeStatistics(ctx context.Context, lang string) ([]stats.Score, error)
}

// Run indexes docs then urls and summarises both. The HTTP handler and the
// queue consumer share it so both paths report identically.
func Run(ctx context.Context, engine Ingester, batchID string, docs, urls []string, lang string, parallel bool) (*IngestResponse, error) {
	var batches []*indexer.BatchResult
	if len(docs) > 0 {
		index := engine.IndexDocuments
		if parallel {
			index = engine.IndexDocumentsParallel
		}
		batch, err := index(ctx, docs, lang)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	if len(urls) > 0 {
		batch, err := engine.IndexURLs(ctx, urls, lang)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return Summarize(batchID, batches...), nil
}
