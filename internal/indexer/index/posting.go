package index

import "github.com/RoaringBitmap/roaring/v2"

// DocID identifies a document for the lifetime of an index.
type DocID = uint32

// TermEntry is one token and its posting set, as returned by Snapshot.
type TermEntry struct {
	Term   string
	DocIDs []DocID
}

// NewPostings returns a posting set holding ids.
func NewPostings(ids ...DocID) *roaring.Bitmap {
	return roaring.BitmapOf(ids...)
}
