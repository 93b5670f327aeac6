package ranker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

type fakeScores map[string]map[index.DocID]float64

func (f fakeScores) Scores(token string) map[index.DocID]float64 {
	return f[token]
}

func TestRankSumsAcrossTokens(t *testing.T) {
	source := fakeScores{
		"fast":  {0: 0.1},
		"quick": {0: 0.2, 1: 0.5},
		"speed": {2: 0.25},
	}

	got := Rank([]string{"fast", "quick", "speed"}, source, 0)

	assert.Len(t, got, 3)
	assert.Equal(t, index.DocID(1), got[0].DocID)
	assert.InDelta(t, 0.5, got[0].Score, 1e-12)
	assert.Equal(t, index.DocID(0), got[1].DocID)
	assert.InDelta(t, 0.3, got[1].Score, 1e-12)
	assert.Equal(t, index.DocID(2), got[2].DocID)
}

func TestRankTiesBrokenByDocID(t *testing.T) {
	source := fakeScores{
		"fox": {9: 0.2, 3: 0.2, 5: 0.2, 1: -0.1},
	}

	got := Rank([]string{"fox"}, source, 0)

	ids := make([]index.DocID, len(got))
	for i, d := range got {
		ids[i] = d.DocID
	}
	assert.Equal(t, []index.DocID{3, 5, 9, 1}, ids)
}

func TestRankLimitAndMissingTokens(t *testing.T) {
	source := fakeScores{"fox": {0: 0.4, 1: 0.3, 2: 0.2}}

	assert.Len(t, Rank([]string{"fox"}, source, 2), 2)
	assert.Empty(t, Rank([]string{"unicorn"}, source, 0))
	assert.Empty(t, Rank(nil, source, 0))
}

func TestTopKMatchesFullSort(t *testing.T) {
	scores := make(map[index.DocID]float64)
	for i := range 200 {
		scores[index.DocID(i)] = float64(i%7) * 0.1
	}
	full := make([]ScoredDoc, 0, len(scores))
	for id, s := range scores {
		full = append(full, ScoredDoc{DocID: id, Score: s})
	}
	Sort(full)

	for _, k := range []int{1, 5, 29, 200, 500} {
		want := full
		if k < len(full) {
			want = full[:k]
		}
		assert.Equal(t, want, TopK(scores, k), "k=%d", k)
	}
	assert.Nil(t, TopK(scores, 0))
}

func BenchmarkRank(b *testing.B) {
	for _, numDocs := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			source := fakeScores{"search": {}, "engine": {}}
			for i := range numDocs {
				source["search"][index.DocID(i)] = float64(i%13) / 13
				if i%3 == 0 {
					source["engine"][index.DocID(i)] = float64(i%5) / 5
				}
			}
			tokens := []string{"search", "engine"}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = Rank(tokens, source, 10)
			}
		})
	}
}
