package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

type recordingProducer struct {
	events []kafka.Event
}

func (r *recordingProducer) Publish(_ context.Context, events ...kafka.Event) error {
	r.events = append(r.events, events...)
	return nil
}

func newEngine(t *testing.T) *indexer.Engine {
	t.Helper()
	tok, err := tokenizer.New(map[string]config.LanguageConfig{
		"en": {Stemmer: "english", Stopwords: []string{"the", "a", "is", "and", "in"}},
	})
	require.NoError(t, err)
	return indexer.NewEngine(config.IndexerConfig{RetainCorpus: true}, tok, indexer.Options{})
}

func post(t *testing.T, h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestIngestDocuments(t *testing.T) {
	engine := newEngine(t)
	h := New(engine, nil, "en")

	rec := post(t, h.Ingest, "/api/v1/documents",
		`{"documents":["The quick fox","A quick brown fox jumps"],"parallel":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ingestion.IngestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, ingestion.StatusIndexed, resp.Status)
	assert.Equal(t, 2, resp.Indexed)
	assert.NotEmpty(t, resp.BatchID)
	assert.Equal(t, []uint32{0, 1}, engine.Index().Postings("fox").ToArray())
}

func TestIngestValidation(t *testing.T) {
	h := New(newEngine(t), nil, "en")

	rec := post(t, h.Ingest, "/api/v1/documents", `{"documents":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation failed")

	rec = post(t, h.Ingest, "/api/v1/documents", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestUnsupportedLanguage(t *testing.T) {
	h := New(newEngine(t), nil, "en")
	rec := post(t, h.Ingest, "/api/v1/documents", `{"documents":["fox","dog"],"language":"xx"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ingestion.IngestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, ingestion.StatusFailed, resp.Status)
	assert.Equal(t, 2, resp.Failed)
	require.Len(t, resp.Documents, 2)
	assert.Equal(t, uint32(1), resp.Documents[1].DocID)
	assert.Contains(t, resp.Documents[1].Error, "unsupported language")
}

func TestIngestURLsWithoutFetcher(t *testing.T) {
	h := New(newEngine(t), nil, "en")
	rec := post(t, h.Ingest, "/api/v1/documents", `{"urls":["https://example.com"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestAsync(t *testing.T) {
	engine := newEngine(t)

	rec := post(t, New(engine, nil, "en").Ingest, "/api/v1/documents", `{"documents":["fox"],"async":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	prod := &recordingProducer{}
	h := New(engine, publisher.New(prod), "en")
	rec = post(t, h.Ingest, "/api/v1/documents", `{"documents":["fox"],"async":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"queued"`)
	require.Len(t, prod.events, 1)
	assert.Equal(t, "en", prod.events[0].Value.(ingestion.IngestEvent).Language)
	assert.Zero(t, engine.DocCount())
}

func TestComputeStatistics(t *testing.T) {
	engine := newEngine(t)
	h := New(engine, nil, "en")
	_ = post(t, h.Ingest, "/api/v1/documents", `{"documents":["quick brown fox","lazy dog chased fox"]}`)

	rec := post(t, h.ComputeStatistics, "/api/v1/statistics?verbose=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Language string `json:"language"`
		Scores   int    `json:"scores"`
		Entries  []struct {
			Token string  `json:"token"`
			DocID uint32  `json:"doc_id"`
			Value float64 `json:"tfidf"`
		} `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "en", body.Language)
	assert.Equal(t, 7, body.Scores)
	assert.Len(t, body.Entries, 7)

	rec = post(t, h.ComputeStatistics, "/api/v1/statistics?lang=xx", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
