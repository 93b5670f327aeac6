// Package validator checks ingestion requests before any document ID is
// allocated, returning per-field messages.
package validator

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
)

const (
	maxBatchSize   = 1000
	maxDocumentLen = 1 << 20
	maxURLLen      = 2048
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest requires at least one document or URL, bounds the
// batch and document sizes, and accepts only absolute http(s) URLs.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	total := len(req.Documents) + len(req.URLs)
	switch {
	case total == 0:
		errs["documents"] = "at least one document or url is required"
	case total > maxBatchSize:
		errs["documents"] = fmt.Sprintf("batch must hold at most %d items", maxBatchSize)
	}
	for i, doc := range req.Documents {
		if len(doc) > maxDocumentLen {
			errs[fmt.Sprintf("documents[%d]", i)] = fmt.Sprintf("document must be at most %d bytes", maxDocumentLen)
		}
	}
	for i, raw := range req.URLs {
		if msg := checkURL(raw); msg != "" {
			errs[fmt.Sprintf("urls[%d]", i)] = msg
		}
	}
	if strings.TrimSpace(req.Language) != req.Language {
		errs["language"] = "language must not contain surrounding whitespace"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkURL(raw string) string {
	if len(raw) > maxURLLen {
		return fmt.Sprintf("url must be at most %d characters", maxURLLen)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "url is malformed"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "url scheme must be http or https"
	}
	if u.Host == "" {
		return "url must include a host"
	}
	return ""
}
