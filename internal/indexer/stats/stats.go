// Package stats computes term frequency and TF-IDF weights per (token,
// document) pair and serves them to the ranked query path.
//
// Document frequency is accumulated while the corpus is walked in order: the
// idf used for a term in document k counts only documents 0..k. Identical
// token sets therefore score differently depending on their position in the
// batch. Scores are kept that way so results stay comparable across runs.
package stats

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

// Document is one corpus entry handed to Compute.
type Document struct {
	ID   index.DocID
	Text string
}

// Score is a computed (token, document) weight.
type Score struct {
	Token string      `json:"token"`
	DocID index.DocID `json:"doc_id"`
	TF    float64     `json:"tf"`
	IDF   float64     `json:"idf"`
	Value float64     `json:"tfidf"`
}

// Table owns the token -> document -> tfidf mapping.
type Table struct {
	mu     sync.RWMutex
	tok    *tokenizer.Tokenizer
	scores map[string]map[index.DocID]float64
	logger *slog.Logger
}

func New(tok *tokenizer.Tokenizer) *Table {
	return &Table{
		tok:    tok,
		scores: make(map[string]map[index.DocID]float64),
		logger: slog.Default().With("component", "term-stats"),
	}
}

// Compute tokenizes every document in corpus order and records tf*idf for
// each of its distinct tokens, where idf = ln(N/(1+df)) and df is the count
// of documents seen so far (including the current one) that contain the
// token. N is len(corpus). Existing entries for the same key are overwritten;
// nothing is written if the language is unsupported.
func (t *Table) Compute(corpus []Document, lang string) ([]Score, error) {
	if err := t.tok.Check(lang); err != nil {
		return nil, fmt.Errorf("computing statistics: %w", err)
	}
	n := float64(len(corpus))
	df := make(map[string]int)
	computed := make([]Score, 0, len(corpus)*8)

	for _, doc := range corpus {
		tokens, err := t.tok.Normalize(doc.Text, lang)
		if err != nil {
			return nil, fmt.Errorf("computing statistics for doc %d: %w", doc.ID, err)
		}
		if len(tokens) == 0 {
			continue
		}
		counts := make(map[string]int, len(tokens))
		order := make([]string, 0, len(tokens))
		for _, token := range tokens {
			if counts[token] == 0 {
				order = append(order, token)
			}
			counts[token]++
		}
		total := float64(len(tokens))
		for _, token := range order {
			df[token]++
			tf := float64(counts[token]) / total
			idf := math.Log(n / float64(1+df[token]))
			computed = append(computed, Score{
				Token: token,
				DocID: doc.ID,
				TF:    tf,
				IDF:   idf,
				Value: tf * idf,
			})
		}
	}

	t.mu.Lock()
	for _, s := range computed {
		docs, exists := t.scores[s.Token]
		if !exists {
			docs = make(map[index.DocID]float64)
			t.scores[s.Token] = docs
		}
		docs[s.DocID] = s.Value
	}
	t.mu.Unlock()

	t.logger.Info("statistics computed",
		"documents", len(corpus),
		"terms", len(df),
		"scores", len(computed),
		"language", lang,
	)
	return computed, nil
}

// ScoreOf returns the tfidf for the pair, false if it was never computed.
func (t *Table) ScoreOf(token string, docID index.DocID) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.scores[token][docID]
	return v, ok
}

// Scores returns a copy of every document score recorded for token.
func (t *Table) Scores(token string) map[index.DocID]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	docs := t.scores[token]
	out := make(map[index.DocID]float64, len(docs))
	for id, v := range docs {
		out[id] = v
	}
	return out
}

// Len is the number of (token, document) entries held.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, docs := range t.scores {
		n += len(docs)
	}
	return n
}

// Tokens returns the tokens with at least one score, sorted.
func (t *Table) Tokens() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.scores))
	for token := range t.scores {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}
