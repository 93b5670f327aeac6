// Package parser turns a raw query string into the plan the executor runs.
package parser

import (
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

type QueryPlan struct {
	RawQuery string
	Language string
	// Terms are the normalised query tokens in query order, duplicates kept.
	Terms []string
}

// Parse normalises query with the same pipeline used at index time.
func Parse(tok *tokenizer.Tokenizer, query string, lang string) (*QueryPlan, error) {
	terms, err := tok.Normalize(query, lang)
	if err != nil {
		return nil, err
	}
	return &QueryPlan{
		RawQuery: query,
		Language: lang,
		Terms:    terms,
	}, nil
}

// Distinct returns Terms with repeats removed, first occurrence wins.
func (p *QueryPlan) Distinct() []string {
	seen := make(map[string]struct{}, len(p.Terms))
	out := make([]string, 0, len(p.Terms))
	for _, term := range p.Terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}

func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}
