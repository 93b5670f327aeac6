// Package ingestion defines the request/response bodies of the document
// ingestion API and the Kafka event payloads of the ingestion queue.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

const (
	StatusIndexed = "indexed"
	StatusPartial = "partial"
	StatusFailed  = "failed"
	StatusQueued  = "queued"
)

// IngestRequest is the body of POST /api/v1/documents. Documents are raw
// texts; URLs are fetched and stripped of markup. An empty Language means the
// configured default.
type IngestRequest struct {
	Documents []string `json:"documents"`
	URLs      []string `json:"urls"`
	Language  string   `json:"language"`
	Parallel  bool     `json:"parallel"`
	Async     bool     `json:"async"`
}

type DocumentStatus struct {
	DocID   index.DocID `json:"doc_id"`
	Source  string      `json:"source,omitempty"`
	Tokens  int         `json:"tokens"`
	Indexed bool        `json:"indexed"`
	Error   string      `json:"error,omitempty"`
}

type IngestResponse struct {
	BatchID   string           `json:"batch_id"`
	Status    string           `json:"status"`
	Indexed   int              `json:"indexed"`
	Failed    int              `json:"failed"`
	Documents []DocumentStatus `json:"documents,omitempty"`
}

// IngestEvent is the queued form of an IngestRequest.
type IngestEvent struct {
	BatchID     string    `json:"batch_id"`
	Documents   []string  `json:"documents,omitempty"`
	URLs        []string  `json:"urls,omitempty"`
	Language    string    `json:"language"`
	Parallel    bool      `json:"parallel"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// IndexCompleteEvent is published once a queued batch has been indexed.
type IndexCompleteEvent struct {
	BatchID     string           `json:"batch_id"`
	Status      string           `json:"status"`
	Indexed     int              `json:"indexed"`
	Failed      int              `json:"failed"`
	Documents   []DocumentStatus `json:"documents"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Summarize folds one or more batch results into the response shape.
func Summarize(batchID string, batches ...*indexer.BatchResult) *IngestResponse {
	resp := &IngestResponse{BatchID: batchID}
	for _, batch := range batches {
		if batch == nil {
			continue
		}
		for _, r := range batch.Results {
			ds := DocumentStatus{
				DocID:   r.DocID,
				Source:  r.Source,
				Tokens:  r.Tokens,
				Indexed: r.Indexed,
			}
			if r.Indexed {
				resp.Indexed++
			}
			if r.Err != nil {
				ds.Error = r.Err.Error()
				resp.Failed++
			}
			resp.Documents = append(resp.Documents, ds)
		}
	}
	switch {
	case resp.Failed == 0:
		resp.Status = StatusIndexed
	case resp.Indexed == 0:
		resp.Status = StatusFailed
	default:
		resp.Status = StatusPartial
	}
	return resp
}
