package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// RunStore is an in-memory driven.RunStore.
type RunStore struct {
	mu   sync.Mutex
	runs []domain.SyncRun
}

var _ driven.RunStore = (*RunStore)(nil)

// NewRunStore creates an empty in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{}
}

// RecordRun appends a finalised run.
func (s *RunStore) RecordRun(_ context.Context, run *domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

// ListRuns returns recent runs, most recent first. An empty sourceID
// returns runs across all sources.
func (s *RunStore) ListRuns(_ context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]domain.SyncRun, 0, len(s.runs))
	for _, run := range s.runs {
		if sourceID == "" || run.SourceID == sourceID {
			matched = append(matched, run)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// PruneRuns removes runs that started before the cutoff.
func (s *RunStore) PruneRuns(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.runs[:0]
	for _, run := range s.runs {
		if !run.StartedAt.Before(cutoff) {
			kept = append(kept, run)
		}
	}
	s.runs = kept
	return nil
}
