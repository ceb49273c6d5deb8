package memory

import (
	"context"
	"sync"

	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// HashIndex is an in-memory driven.HashIndex.
type HashIndex struct {
	mu     sync.Mutex
	hashes map[hashKey]string
}

type hashKey struct {
	sourceID string
	docID    string
}

var _ driven.HashIndex = (*HashIndex)(nil)

// NewHashIndex creates an empty in-memory hash index.
func NewHashIndex() *HashIndex {
	return &HashIndex{hashes: make(map[hashKey]string)}
}

// Get retrieves the recorded content hash for a document.
func (s *HashIndex) Get(_ context.Context, sourceID, docID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[hashKey{sourceID, docID}]
	return hash, ok, nil
}

// Put records a document's content hash, replacing any previous one.
func (s *HashIndex) Put(_ context.Context, sourceID, docID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[hashKey{sourceID, docID}] = hash
	return nil
}
