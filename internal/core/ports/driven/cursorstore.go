package driven

import (
	"context"
	"time"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// CursorStore persists sync cursors durably, one per source instance.
//
// CompareAndSwap is the sole mutation path. The running status doubles as
// the exclusive run lock: swapping from a terminal status to running is how
// a run is acquired, and a swap that names the wrong expected status fails
// without side effects. Unrelated sources never block each other.
type CursorStore interface {
	// Load retrieves the cursor for a source. If none has been persisted
	// yet it returns a fresh idle cursor rather than an error.
	Load(ctx context.Context, sourceID string) (domain.SyncCursor, error)

	// CompareAndSwap replaces the stored cursor with next if and only if
	// the stored status equals expected. Returns false (and no error)
	// when the comparison fails, i.e. another run holds the cursor.
	// Swapping an unpersisted cursor succeeds only when expected is idle.
	CompareAndSwap(ctx context.Context, sourceID string, expected domain.CursorStatus, next domain.SyncCursor) (bool, error)
}

// RunStore persists the bounded per-source run history.
type RunStore interface {
	// RecordRun appends a finalised run. Runs are immutable once recorded.
	RecordRun(ctx context.Context, run *domain.SyncRun) error

	// ListRuns returns recent runs for a source, most recent first.
	// An empty sourceID returns runs across all sources.
	ListRuns(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error)

	// PruneRuns removes runs that started before the cutoff.
	PruneRuns(ctx context.Context, cutoff time.Time) error
}
