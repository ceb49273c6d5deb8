// Package memory provides in-memory implementations of the persistence
// ports for tests and ephemeral runs. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// CursorStore is an in-memory driven.CursorStore with the same
// compare-and-swap semantics as the durable one.
type CursorStore struct {
	mu      sync.Mutex
	cursors map[string]domain.SyncCursor
}

var _ driven.CursorStore = (*CursorStore)(nil)

// NewCursorStore creates an empty in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{cursors: make(map[string]domain.SyncCursor)}
}

// Load retrieves the cursor for a source, synthesizing an idle cursor when
// none exists.
func (s *CursorStore) Load(_ context.Context, sourceID string) (domain.SyncCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cursor, ok := s.cursors[sourceID]; ok {
		return cursor, nil
	}
	return domain.NewCursor(sourceID), nil
}

// CompareAndSwap replaces the cursor if the stored status equals expected.
// An unpersisted cursor counts as idle.
func (s *CursorStore) CompareAndSwap(_ context.Context, sourceID string, expected domain.CursorStatus, next domain.SyncCursor) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.cursors[sourceID]
	if !ok {
		if expected != domain.CursorIdle {
			return false, nil
		}
	} else if current.Status != expected {
		return false, nil
	}

	s.cursors[sourceID] = next
	return true, nil
}
