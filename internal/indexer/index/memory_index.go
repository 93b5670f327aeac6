// Package index holds the in-memory inverted index: token to the set of
// documents containing it. Posting sets are roaring bitmaps.
package index

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// MemoryIndex is safe for concurrent use. All mutation goes through one
// exclusive lock so a document's full token set becomes visible at once;
// readers share the lock.
type MemoryIndex struct {
	mu       sync.RWMutex
	index    map[string]*roaring.Bitmap
	docs     *roaring.Bitmap
	postings int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]*roaring.Bitmap),
		docs:  roaring.New(),
	}
}

// AddDocument inserts docID into the posting set of every distinct token.
// Repeated tokens have no extra effect. Calling it twice for the same docID
// unions both token sets; callers make one call per document.
func (m *MemoryIndex) AddDocument(tokens []string, docID DocID) {
	unique := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		unique[token] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for term := range unique {
		bm, exists := m.index[term]
		if !exists {
			bm = roaring.New()
			m.index[term] = bm
		}
		if bm.CheckedAdd(docID) {
			m.postings++
		}
	}
	m.docs.Add(docID)
}

// Postings returns a copy of the token's posting set, empty if the token was
// never indexed.
func (m *MemoryIndex) Postings(term string) *roaring.Bitmap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bm, exists := m.index[term]
	if !exists {
		return roaring.New()
	}
	return bm.Clone()
}

// Intersect returns the documents containing every term, starting from the
// first term's postings and narrowing in order. No terms yields an empty set.
func (m *MemoryIndex) Intersect(terms []string) *roaring.Bitmap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(terms) == 0 {
		return roaring.New()
	}
	first, exists := m.index[terms[0]]
	if !exists {
		return roaring.New()
	}
	result := first.Clone()
	for _, term := range terms[1:] {
		bm, exists := m.index[term]
		if !exists {
			return roaring.New()
		}
		result.And(bm)
		if result.IsEmpty() {
			break
		}
	}
	return result
}

// Snapshot returns every term with its sorted doc IDs, ordered by term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, bm := range m.index {
		entries = append(entries, TermEntry{
			Term:   term,
			DocIDs: bm.ToArray(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (m *MemoryIndex) Terms() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

// DocCount is the number of distinct documents added.
func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int(m.docs.GetCardinality())
}

// PostingCount is the total number of (term, doc) pairs.
func (m *MemoryIndex) PostingCount() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.postings
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]*roaring.Bitmap)
	m.docs = roaring.New()
	m.postings = 0
}
