package rag

import (
	"sync/atomic"

	"document-rag/internal/chromemdb"
)

// IndexState holds the one index queries run against. Readers always see
// either nothing or a fully built index; only the Indexer replaces it.
type IndexState struct {
	current atomic.Pointer[chromemdb.Index]
}

func NewIndexState() *IndexState {
	return &IndexState{}
}

// Current returns the published index, or nil before the first successful upload.
func (s *IndexState) Current() *chromemdb.Index {
	return s.current.Load()
}

// publish swaps in idx and returns the index it replaced.
func (s *IndexState) publish(idx *chromemdb.Index) *chromemdb.Index {
	return s.current.Swap(idx)
}
