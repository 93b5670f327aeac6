// Package synonym holds the static synonym table used to widen ranked
// queries. Entries are normalised once per language when the table is built,
// so lookups compare tokens with tokens.
package synonym

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

// Table maps a normalised token to its normalised synonyms, per language.
// It is immutable after Compile.
type Table struct {
	byLang map[string]map[string][]string
}

// Compile normalises every key and value of raw for each language the
// tokenizer knows. Keys or values that normalise to nothing (stop-words,
// punctuation) are dropped; a multi-word value contributes all its tokens.
func Compile(raw map[string][]string, tok *tokenizer.Tokenizer) (*Table, error) {
	t := &Table{byLang: make(map[string]map[string][]string)}
	for _, lang := range tok.Languages() {
		entries := make(map[string][]string, len(raw))
		for key, values := range raw {
			keyTokens, err := tok.Normalize(key, lang)
			if err != nil {
				return nil, fmt.Errorf("compiling synonyms for %q: %w", key, err)
			}
			if len(keyTokens) != 1 {
				continue
			}
			k := keyTokens[0]
			seen := make(map[string]struct{})
			for _, existing := range entries[k] {
				seen[existing] = struct{}{}
			}
			for _, value := range values {
				valueTokens, err := tok.Normalize(value, lang)
				if err != nil {
					return nil, fmt.Errorf("compiling synonyms for %q: %w", key, err)
				}
				for _, v := range valueTokens {
					if _, dup := seen[v]; dup || v == k {
						continue
					}
					seen[v] = struct{}{}
					entries[k] = append(entries[k], v)
				}
			}
			sort.Strings(entries[k])
		}
		t.byLang[lang] = entries
	}
	return t, nil
}

// Of returns the synonyms registered for token in lang.
func (t *Table) Of(token string, lang string) []string {
	if t == nil {
		return nil
	}
	return t.byLang[lang][token]
}

// Expand returns the query tokens followed by the synonyms of each, without
// duplicates and without following synonyms of synonyms.
func (t *Table) Expand(tokens []string, lang string) []string {
	seen := make(map[string]struct{}, len(tokens))
	expanded := make([]string, 0, len(tokens))
	add := func(tok string) {
		if _, dup := seen[tok]; dup {
			return
		}
		seen[tok] = struct{}{}
		expanded = append(expanded, tok)
	}
	for _, tok := range tokens {
		add(tok)
	}
	for _, tok := range tokens {
		for _, syn := range t.Of(tok, lang) {
			add(syn)
		}
	}
	return expanded
}
