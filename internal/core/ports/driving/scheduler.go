package driving

import "context"

// Scheduler drives periodic and on-demand sync runs across all configured
// source instances.
type Scheduler interface {
	// Start begins the scheduling loop.
	// Blocks until the context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully shuts down: no new runs are dispatched and
	// in-flight runs are waited for.
	Stop() error

	// TriggerSync requests an immediate run for one source instance,
	// subject to the same cursor gating and concurrency cap as periodic
	// runs. Returns domain.ErrNotFound for unknown sources and
	// domain.ErrCursorConflict when a run is already active.
	TriggerSync(ctx context.Context, sourceID string) error
}
