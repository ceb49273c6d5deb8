package domain

import "time"

// SyncRun records one scheduling attempt for one source instance.
// Runs are immutable once finalised and kept in a bounded history.
type SyncRun struct {
	// ID is the unique run identifier.
	ID string

	// SourceID is the source instance this run synced.
	SourceID string

	// StartedAt is when the scheduler dispatched the run.
	StartedAt time.Time

	// EndedAt is when the fetch loop finished (success, exhaustion or
	// fatal error).
	EndedAt time.Time

	// ItemsFetched counts raw items returned by the connector.
	ItemsFetched int

	// ItemsAccepted counts documents forwarded downstream.
	ItemsAccepted int

	// ItemsSkipped counts items dropped as empty, unchanged or
	// near-duplicate.
	ItemsSkipped int

	// Error holds the failure message for failed runs, empty otherwise.
	Error string
}

// Succeeded returns true if the run finished without error.
func (r *SyncRun) Succeeded() bool {
	return r.Error == ""
}

// Duration returns the wall time the run took.
func (r *SyncRun) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// AlertEvent is emitted when a source crosses the failure threshold.
// Delivery is fire-and-forget; the scheduler never blocks on it.
type AlertEvent struct {
	// SourceID is the failing source instance.
	SourceID string

	// ConsecutiveFailures is the failure streak length.
	ConsecutiveFailures int

	// LastError is the most recent run error.
	LastError string

	// At is when the alert was raised.
	At time.Time
}
