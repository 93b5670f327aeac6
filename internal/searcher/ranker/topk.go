package ranker

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

// TopK returns the k best entries of scores in Sort order without sorting
// the whole set. k <= 0 returns nil.
func TopK(scores map[index.DocID]float64, k int) []ScoredDoc {
	if k <= 0 {
		return nil
	}
	h := make(worstFirst, 0, k+1)
	for docID, score := range scores {
		doc := ScoredDoc{DocID: docID, Score: score}
		if h.Len() < k {
			heap.Push(&h, doc)
			continue
		}
		if ranksBefore(doc, h[0]) {
			h[0] = doc
			heap.Fix(&h, 0)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

func ranksBefore(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// worstFirst is a heap whose root is the entry that ranks last.
type worstFirst []ScoredDoc

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return ranksBefore(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
