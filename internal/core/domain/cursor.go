package domain

import "time"

// CursorStatus is the run state recorded on a sync cursor.
type CursorStatus string

// Cursor states. Running doubles as the exclusive run lock: no second run
// may start for a source while its cursor is running.
const (
	CursorIdle      CursorStatus = "idle"
	CursorRunning   CursorStatus = "running"
	CursorSucceeded CursorStatus = "succeeded"
	CursorFailed    CursorStatus = "failed"
)

// IsTerminal returns true for states a new run may be started from.
func (s CursorStatus) IsTerminal() bool {
	return s == CursorIdle || s == CursorSucceeded || s == CursorFailed
}

// SyncCursor tracks how far a source's incremental sync has progressed,
// plus the bookkeeping the scheduler needs for retry and alerting.
// Exactly one cursor exists per source instance.
type SyncCursor struct {
	// SourceID is the owning source instance.
	SourceID string

	// Position is an opaque bookmark. Its shape depends on the connector
	// (timestamp, offset, encoded token); the scheduler only passes it
	// through.
	Position string

	// Status is the current run state.
	Status CursorStatus

	// StartedAt is when the in-flight run acquired the cursor.
	// Zero unless Status is running.
	StartedAt time.Time

	// LastSuccessAt is when the last run finished successfully.
	LastSuccessAt time.Time

	// ConsecutiveFailures counts failed runs since the last success.
	ConsecutiveFailures int
}

// NewCursor returns the idle cursor a source starts from before its first run.
func NewCursor(sourceID string) SyncCursor {
	return SyncCursor{
		SourceID: sourceID,
		Status:   CursorIdle,
	}
}

// Stale reports whether a running cursor has been held longer than the job
// timeout, i.e. the run that acquired it crashed or hung. Only stale
// cursors may be force-reset past the mutual-exclusion invariant.
func (c *SyncCursor) Stale(now time.Time, jobTimeout time.Duration) bool {
	if c.Status != CursorRunning {
		return false
	}
	if c.StartedAt.IsZero() {
		return true
	}
	return now.Sub(c.StartedAt) > jobTimeout
}
