package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

type recordingProducer struct {
	events []kafka.Event
	err    error
}

func (r *recordingProducer) Publish(_ context.Context, events ...kafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, events...)
	return nil
}

func TestEnqueue(t *testing.T) {
	prod := &recordingProducer{}
	p := New(prod)
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	resp, err := p.Enqueue(context.Background(), &ingestion.IngestRequest{
		Documents: []string{"The quick fox"},
		URLs:      []string{"https://example.com"},
		Parallel:  true,
	}, "en")
	require.NoError(t, err)
	assert.Equal(t, ingestion.StatusQueued, resp.Status)
	_, err = uuid.Parse(resp.BatchID)
	assert.NoError(t, err)

	require.Len(t, prod.events, 1)
	assert.Equal(t, resp.BatchID, prod.events[0].Key)
	event := prod.events[0].Value.(ingestion.IngestEvent)
	assert.Equal(t, "en", event.Language)
	assert.True(t, event.Parallel)
	assert.Equal(t, []string{"https://example.com"}, event.URLs)
	assert.Equal(t, 2026, event.SubmittedAt.Year())
}

func TestEnqueuePublishFailure(t *testing.T) {
	p := New(&recordingProducer{err: errors.New("broker down")})
	_, err := p.Enqueue(context.Background(), &ingestion.IngestRequest{Documents: []string{"x"}}, "en")
	assert.ErrorContains(t, err, "broker down")
}
