// Package indexer coordinates ingestion: documents are normalised, added to
// the in-memory inverted index, retained for statistics, and written through
// to the optional storage port.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/stats"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/storage"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// TextFetcher turns a URL into indexable text.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Result is the outcome for one document of a batch. A document whose
// storage write failed is still Indexed: the in-memory index is not rolled
// back.
type Result struct {
	DocID   index.DocID `json:"doc_id"`
	Source  string      `json:"source,omitempty"`
	Tokens  int         `json:"tokens"`
	Indexed bool        `json:"indexed"`
	Err     error       `json:"-"`
}

type BatchResult struct {
	Results []Result `json:"results"`
}

// Failed returns the results that carry an error.
func (b *BatchResult) Failed() []Result {
	var failed []Result
	for _, r := range b.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err joins every per-document error, nil when all succeeded.
func (b *BatchResult) Err() error {
	var errs []error
	for _, r := range b.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("doc %d: %w", r.DocID, r.Err))
		}
	}
	return errors.Join(errs...)
}

func (b *BatchResult) IndexedCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Indexed {
			n++
		}
	}
	return n
}

type Options struct {
	Store   storage.Store
	Fetcher TextFetcher
	Metrics *metrics.Metrics
}

type Engine struct {
	tok     *tokenizer.Tokenizer
	idx     *index.MemoryIndex
	stats   *stats.Table
	store   storage.Store
	fetcher TextFetcher
	metrics *metrics.Metrics
	cfg     config.IndexerConfig
	logger  *slog.Logger

	mu     sync.Mutex
	nextID index.DocID
	corpus map[index.DocID]string
}

func NewEngine(cfg config.IndexerConfig, tok *tokenizer.Tokenizer, opts Options) *Engine {
	return &Engine{
		tok:     tok,
		idx:     index.NewMemoryIndex(),
		stats:   stats.New(tok),
		store:   opts.Store,
		fetcher: opts.Fetcher,
		metrics: opts.Metrics,
		cfg:     cfg,
		logger:  slog.Default().With("component", "indexer"),
		corpus:  make(map[index.DocID]string),
	}
}

func (e *Engine) Index() *index.MemoryIndex { return e.idx }

func (e *Engine) Stats() *stats.Table { return e.stats }

// IndexDocuments indexes docs one after another on the calling goroutine.
// Document i of the batch gets ID base+i, where base counts every ID handed
// out before. An unsupported language fails every document of the batch
// individually; the IDs stay reserved.
func (e *Engine) IndexDocuments(ctx context.Context, docs []string, lang string) (*BatchResult, error) {
	start := time.Now()
	base := e.reserve(len(docs))
	batch := &BatchResult{Results: make([]Result, len(docs))}
	for i, text := range docs {
		batch.Results[i] = e.indexOne(ctx, base+index.DocID(i), text, lang)
	}
	e.logBatch("sequential", batch, start)
	return batch, nil
}

// IndexDocumentsParallel tokenizes documents concurrently, at most
// cfg.Workers at a time when Workers > 0. IDs are positional, so the final
// postings equal those of IndexDocuments on the same batch.
func (e *Engine) IndexDocumentsParallel(ctx context.Context, docs []string, lang string) (*BatchResult, error) {
	start := time.Now()
	base := e.reserve(len(docs))
	batch := &BatchResult{Results: make([]Result, len(docs))}

	var g errgroup.Group
	if e.cfg.Workers > 0 {
		g.SetLimit(e.cfg.Workers)
	}
	for i, text := range docs {
		g.Go(func() error {
			batch.Results[i] = e.indexOne(ctx, base+index.DocID(i), text, lang)
			return nil
		})
	}
	_ = g.Wait()
	e.logBatch("parallel", batch, start)
	return batch, nil
}

// IndexURLs fetches each URL, strips its markup and indexes the text. A fetch
// failure fails that URL only; its ID stays allocated and unused. With an
// unsupported language nothing is fetched and every URL fails.
func (e *Engine) IndexURLs(ctx context.Context, urls []string, lang string) (*BatchResult, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", apperrors.ErrInvalidInput)
	}
	start := time.Now()
	base := e.reserve(len(urls))
	batch := &BatchResult{Results: make([]Result, len(urls))}

	if err := e.tok.Check(lang); err != nil {
		for i, url := range urls {
			e.metrics.ObserveFailed(failureReason(err))
			batch.Results[i] = Result{DocID: base + index.DocID(i), Source: url, Err: err}
		}
		e.logBatch("urls", batch, start)
		return batch, nil
	}

	var g errgroup.Group
	if e.cfg.Workers > 0 {
		g.SetLimit(e.cfg.Workers)
	}
	for i, url := range urls {
		g.Go(func() error {
			id := base + index.DocID(i)
			text, err := e.fetcher.FetchText(ctx, url)
			if err != nil {
				e.metrics.ObserveFailed(failureReason(err))
				batch.Results[i] = Result{DocID: id, Source: url, Err: err}
				return nil
			}
			r := e.indexOne(ctx, id, text, lang)
			r.Source = url
			batch.Results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	e.logBatch("urls", batch, start)
	return batch, nil
}

// ComputeStatistics runs the TF-IDF computation over every retained document
// in ID order and writes the scores through to storage. The in-memory table
// is updated even when the storage error is returned.
func (e *Engine) ComputeStatistics(ctx context.Context, lang string) ([]stats.Score, error) {
	if !e.cfg.RetainCorpus {
		return nil, fmt.Errorf("%w: corpus retention is disabled", apperrors.ErrInvalidInput)
	}
	scores, err := e.stats.Compute(e.corpusSnapshot(), lang)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveScores(len(scores))
	if e.store == nil {
		return scores, nil
	}
	var errs []error
	for _, s := range scores {
		if err := e.store.PersistScore(ctx, s.Token, s.DocID, s.Value); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		e.logger.Error("persisting scores failed", "failed", len(errs), "scores", len(scores))
		return scores, errors.Join(errs...)
	}
	return scores, nil
}

// DocCount reports how many IDs have been handed out.
func (e *Engine) DocCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(e.nextID)
}

func (e *Engine) reserve(n int) index.DocID {
	e.mu.Lock()
	defer e.mu.Unlock()
	base := e.nextID
	e.nextID += index.DocID(n)
	return base
}

func (e *Engine) indexOne(ctx context.Context, id index.DocID, text string, lang string) Result {
	r := Result{DocID: id}
	tokens, err := e.tok.Normalize(text, lang)
	if err != nil {
		e.metrics.ObserveFailed(failureReason(err))
		r.Err = err
		return r
	}

	e.idx.AddDocument(tokens, id)
	r.Tokens = len(tokens)
	r.Indexed = true
	e.metrics.ObserveIndexed(e.idx.Terms())

	if e.cfg.RetainCorpus {
		e.mu.Lock()
		e.corpus[id] = text
		e.mu.Unlock()
	}

	if e.store != nil {
		if err := e.persist(ctx, id, text, tokens); err != nil {
			e.metrics.ObserveFailed(failureReason(err))
			e.logger.Warn("document indexed but not persisted", "doc_id", id, "error", err)
			r.Err = err
		}
	}
	return r
}

func (e *Engine) persist(ctx context.Context, id index.DocID, text string, tokens []string) error {
	if err := e.store.PersistDocument(ctx, id, text); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		if err := e.store.PersistToken(ctx, token, id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) corpusSnapshot() []stats.Document {
	e.mu.Lock()
	docs := make([]stats.Document, 0, len(e.corpus))
	for id, text := range e.corpus {
		docs = append(docs, stats.Document{ID: id, Text: text})
	}
	e.mu.Unlock()
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (e *Engine) logBatch(mode string, batch *BatchResult, start time.Time) {
	failed := len(batch.Failed())
	attrs := []any{
		"mode", mode,
		"documents", len(batch.Results),
		"indexed", batch.IndexedCount(),
		"failed", failed,
		"terms", e.idx.Terms(),
		"duration", time.Since(start),
	}
	if failed > 0 {
		e.logger.Warn("batch indexed with failures", attrs...)
		return
	}
	e.logger.Info("batch indexed", attrs...)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrFetch):
		return "fetch"
	case errors.Is(err, apperrors.ErrStorage):
		return "storage"
	case errors.Is(err, apperrors.ErrUnsupportedLanguage):
		return "unsupported_language"
	default:
		return "other"
	}
}
