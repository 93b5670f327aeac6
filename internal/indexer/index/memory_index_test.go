package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDocumentDeduplicatesTokens(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument([]string{"fox", "fox", "quick"}, 0)
	mi.AddDocument([]string{"fox", "brown"}, 1)

	assert.Equal(t, []DocID{0, 1}, mi.Postings("fox").ToArray())
	assert.Equal(t, []DocID{0}, mi.Postings("quick").ToArray())
	assert.Equal(t, []DocID{1}, mi.Postings("brown").ToArray())
	assert.Equal(t, 2, mi.DocCount())
	assert.Equal(t, 3, mi.Terms())
	assert.EqualValues(t, 4, mi.PostingCount())
}

func TestPostingsUnknownTermIsEmpty(t *testing.T) {
	mi := NewMemoryIndex()
	bm := mi.Postings("missing")
	require.NotNil(t, bm)
	assert.True(t, bm.IsEmpty())
}

func TestPostingsReturnsCopy(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument([]string{"fox"}, 7)

	bm := mi.Postings("fox")
	bm.Add(99)

	assert.Equal(t, []DocID{7}, mi.Postings("fox").ToArray())
}

func TestIntersect(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument([]string{"quick", "fox"}, 0)
	mi.AddDocument([]string{"quick", "brown", "fox", "jump"}, 1)
	mi.AddDocument([]string{"lazy", "dog"}, 2)

	assert.Equal(t, []DocID{0, 1}, mi.Intersect([]string{"quick", "fox"}).ToArray())
	assert.Equal(t, []DocID{1}, mi.Intersect([]string{"fox", "jump"}).ToArray())
	assert.True(t, mi.Intersect([]string{"fox", "dog"}).IsEmpty())
	assert.True(t, mi.Intersect([]string{"fox", "unicorn"}).IsEmpty())
	assert.True(t, mi.Intersect(nil).IsEmpty())
}

func TestSnapshotSortedByTerm(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument([]string{"zebra", "apple"}, 3)
	mi.AddDocument([]string{"apple"}, 1)

	snap := mi.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, TermEntry{Term: "apple", DocIDs: []DocID{1, 3}}, snap[0])
	assert.Equal(t, TermEntry{Term: "zebra", DocIDs: []DocID{3}}, snap[1])
}

func TestConcurrentAddDocument(t *testing.T) {
	mi := NewMemoryIndex()
	const docs = 200

	var wg sync.WaitGroup
	for i := 0; i < docs; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			mi.AddDocument([]string{"shared", fmt.Sprintf("own-%d", id)}, DocID(id))
		}(i)
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mi.Postings("shared")
		}()
	}
	wg.Wait()

	assert.EqualValues(t, docs, mi.Postings("shared").GetCardinality())
	assert.Equal(t, docs, mi.DocCount())
	assert.Equal(t, docs+1, mi.Terms())
}

func TestReset(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument([]string{"fox"}, 0)
	mi.Reset()

	assert.Zero(t, mi.DocCount())
	assert.Zero(t, mi.Terms())
	assert.True(t, mi.Postings("fox").IsEmpty())
}

func BenchmarkMemoryIndexAdd(b *testing.B) {
	mi := NewMemoryIndex()
	tokens := []string{"benchmark", "document", "sever", "term", "test", "index", "perform", "memori"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.AddDocument(tokens, DocID(i))
	}
}

func BenchmarkMemoryIndexIntersectParallel(b *testing.B) {
	mi := NewMemoryIndex()
	for i := 0; i < 10000; i++ {
		tokens := []string{"search", "engin"}
		if i%3 == 0 {
			tokens = append(tokens, "distribut")
		}
		mi.AddDocument(tokens, DocID(i))
	}
	terms := []string{"search", "distribut"}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = mi.Intersect(terms)
		}
	})
}
