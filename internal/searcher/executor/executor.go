// Package executor runs boolean and ranked queries against the in-memory
// index and the term statistics table.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/synonym"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

const (
	ModeBoolean = "boolean"
	ModeRanked  = "ranked"
)

// PostingSource answers AND lookups over the inverted index.
type PostingSource interface {
	Intersect(terms []string) *roaring.Bitmap
}

type Request struct {
	Query    string
	Language string
	Mode     string
	Limit    int
}

type SearchResult struct {
	Query     string             `json:"query"`
	Language  string             `json:"language"`
	Mode      string             `json:"mode"`
	TotalHits int                `json:"total_hits"`
	DocIDs    []index.DocID      `json:"doc_ids,omitempty"`
	Results   []ranker.ScoredDoc `json:"results,omitempty"`
	Terms     []string           `json:"terms,omitempty"`
	Cached    bool               `json:"cached"`
	TookMs    float64            `json:"took_ms"`
}

type Executor struct {
	tok      *tokenizer.Tokenizer
	postings PostingSource
	scores   ranker.ScoreSource
	synonyms *synonym.Table
	cache    *cache.QueryCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New builds an executor. synonyms, queryCache and m may be nil; without a
// cache every boolean query is evaluated against the index.
func New(
	tok *tokenizer.Tokenizer,
	postings PostingSource,
	scores ranker.ScoreSource,
	synonyms *synonym.Table,
	queryCache *cache.QueryCache,
	m *metrics.Metrics,
) *Executor {
	return &Executor{
		tok:      tok,
		postings: postings,
		scores:   scores,
		synonyms: synonyms,
		cache:    queryCache,
		metrics:  m,
		logger:   slog.Default().With("component", "query-executor"),
	}
}

// SearchBoolean returns the documents containing every distinct token of
// query. A cached result for the identical raw query string is returned
// without normalising it, even if the index changed since it was stored.
func (e *Executor) SearchBoolean(ctx context.Context, query string, lang string) (*roaring.Bitmap, error) {
	result, _, _, err := e.searchBoolean(ctx, query, lang)
	return result, err
}

// SearchRanked scores every document reachable from the query tokens or
// their synonyms and returns them best first. limit <= 0 returns all.
func (e *Executor) SearchRanked(ctx context.Context, query string, lang string, limit int) ([]ranker.ScoredDoc, error) {
	docs, _, err := e.searchRanked(ctx, query, lang, limit)
	return docs, err
}

// Search dispatches req by mode and wraps the outcome for transport.
func (e *Executor) Search(ctx context.Context, req Request) (*SearchResult, error) {
	start := time.Now()
	out := &SearchResult{
		Query:    req.Query,
		Language: req.Language,
		Mode:     req.Mode,
	}

	var err error
	switch req.Mode {
	case ModeBoolean, "":
		out.Mode = ModeBoolean
		var result *roaring.Bitmap
		result, out.Terms, out.Cached, err = e.searchBoolean(ctx, req.Query, req.Language)
		if err == nil {
			out.TotalHits = int(result.GetCardinality())
			out.DocIDs = result.ToArray()
			if req.Limit > 0 && len(out.DocIDs) > req.Limit {
				out.DocIDs = out.DocIDs[:req.Limit]
			}
		}
	case ModeRanked:
		out.Results, out.Terms, err = e.searchRanked(ctx, req.Query, req.Language, 0)
		if err == nil {
			out.TotalHits = len(out.Results)
			if req.Limit > 0 && len(out.Results) > req.Limit {
				out.Results = out.Results[:req.Limit]
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown search mode %q", apperrors.ErrInvalidInput, req.Mode)
	}

	elapsed := time.Since(start)
	e.metrics.ObserveSearch(out.Mode, out.TotalHits, err, elapsed)
	if err != nil {
		return nil, err
	}
	out.TookMs = float64(elapsed.Microseconds()) / 1000
	e.logger.Info("query executed",
		"query", req.Query,
		"mode", out.Mode,
		"terms", out.Terms,
		"hits", out.TotalHits,
		"cached", out.Cached,
	)
	return out, nil
}

// ClearCache drops every memoised boolean result.
func (e *Executor) ClearCache(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Clear(ctx)
}

func (e *Executor) searchBoolean(ctx context.Context, query string, lang string) (*roaring.Bitmap, []string, bool, error) {
	var terms []string
	compute := func() (*roaring.Bitmap, bool, error) {
		plan, err := parser.Parse(e.tok, query, lang)
		if err != nil {
			return nil, false, err
		}
		if plan.Empty() {
			return roaring.New(), false, nil
		}
		terms = plan.Distinct()
		return e.postings.Intersect(terms), true, nil
	}

	if e.cache == nil {
		result, _, err := compute()
		if err != nil {
			return nil, nil, false, fmt.Errorf("boolean search: %w", err)
		}
		return result, terms, false, nil
	}
	result, hit, err := e.cache.GetOrCompute(ctx, query, compute)
	if err != nil {
		return nil, nil, false, fmt.Errorf("boolean search: %w", err)
	}
	// compute does not run on a hit or a shared in-flight result.
	if terms == nil {
		if plan, err := parser.Parse(e.tok, query, lang); err == nil {
			terms = plan.Distinct()
		}
	}
	return result, terms, hit, nil
}

func (e *Executor) searchRanked(_ context.Context, query string, lang string, limit int) ([]ranker.ScoredDoc, []string, error) {
	plan, err := parser.Parse(e.tok, query, lang)
	if err != nil {
		return nil, nil, fmt.Errorf("ranked search: %w", err)
	}
	expanded := e.synonyms.Expand(plan.Terms, lang)
	return ranker.Rank(expanded, e.scores, limit), expanded, nil
}
