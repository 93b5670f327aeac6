// Package ranker sums per-token TF-IDF weights into document scores and
// orders the result.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

type ScoredDoc struct {
	DocID index.DocID `json:"doc_id"`
	Score float64     `json:"score"`
}

// ScoreSource yields the recorded tfidf weights for a token.
type ScoreSource interface {
	Scores(token string) map[index.DocID]float64
}

// Rank adds up the weights of every token for each document reachable from
// any of them. Every token counts the same whether it came from the query or
// from synonym expansion. Results are ordered by score descending, then by
// doc ID ascending; limit <= 0 keeps them all.
func Rank(tokens []string, source ScoreSource, limit int) []ScoredDoc {
	scores := make(map[index.DocID]float64)
	for _, token := range tokens {
		for docID, weight := range source.Scores(token) {
			scores[docID] += weight
		}
	}
	if limit > 0 && len(scores) > limit {
		return TopK(scores, limit)
	}
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{
			DocID: docID,
			Score: score,
		})
	}
	Sort(result)
	return result
}

// Sort orders docs by score descending, breaking ties by ascending doc ID.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}
