// Package tokenizer provides text normalisation for the search engine.
// It lower-cases input, splits on whitespace, strips punctuation, removes
// the language's stop-words, and applies that language's Snowball stemmer.
//
// A Tokenizer is immutable once built and safe for concurrent use.
package tokenizer

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

type language struct {
	stemmer   string
	stopWords map[string]struct{}
}

// Tokenizer normalises text for every registered language tag.
type Tokenizer struct {
	languages map[string]language
}

// New builds a Tokenizer from the language table. Every stemmer name must be
// one Snowball knows about.
func New(langs map[string]config.LanguageConfig) (*Tokenizer, error) {
	t := &Tokenizer{languages: make(map[string]language, len(langs))}
	for tag, lc := range langs {
		if _, err := snowball.Stem("probe", lc.Stemmer, true); err != nil {
			return nil, fmt.Errorf("language %q: %w", tag, err)
		}
		stop := make(map[string]struct{}, len(lc.Stopwords))
		for _, w := range lc.Stopwords {
			stop[strings.ToLower(w)] = struct{}{}
		}
		t.languages[tag] = language{stemmer: lc.Stemmer, stopWords: stop}
	}
	return t, nil
}

// Normalize turns text into its ordered token sequence. Duplicates are kept.
// An unregistered language fails before any word is looked at.
func (t *Tokenizer) Normalize(text string, lang string) ([]string, error) {
	l, err := t.lookup(lang)
	if err != nil {
		return nil, err
	}
	words := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if term, ok := l.normalizeWord(word); ok {
			tokens = append(tokens, term)
		}
	}
	return tokens, nil
}

// NormalizeWord runs a single word through the pipeline. The bool is false
// when the word is dropped (empty after stripping, or a stop-word).
func (t *Tokenizer) NormalizeWord(word string, lang string) (string, bool, error) {
	l, err := t.lookup(lang)
	if err != nil {
		return "", false, err
	}
	term, ok := l.normalizeWord(strings.ToLower(word))
	return term, ok, nil
}

// Supports reports whether lang is registered.
func (t *Tokenizer) Supports(lang string) bool {
	_, ok := t.languages[lang]
	return ok
}

// Check returns the ErrUnsupportedLanguage error Normalize would return for
// lang, or nil.
func (t *Tokenizer) Check(lang string) error {
	_, err := t.lookup(lang)
	return err
}

// Languages returns the registered tags in sorted order.
func (t *Tokenizer) Languages() []string {
	tags := make([]string, 0, len(t.languages))
	for tag := range t.languages {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (t *Tokenizer) lookup(lang string) (language, error) {
	l, ok := t.languages[lang]
	if !ok {
		return language{}, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedLanguage, lang)
	}
	return l, nil
}

func (l language) normalizeWord(word string) (string, bool) {
	word = stripPunctuation(word)
	if word == "" {
		return "", false
	}
	if _, isStop := l.stopWords[word]; isStop {
		return "", false
	}
	return l.stem(word), true
}

// stem falls back to the unstemmed word; New already rejected unknown
// stemmers so the error branch only guards against library changes.
func (l language) stem(word string) string {
	stemmed, err := snowball.Stem(word, l.stemmer, true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

func stripPunctuation(word string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, word)
}
