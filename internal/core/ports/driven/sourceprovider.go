package driven

import "github.com/corvuslabs/ingestd/internal/core/domain"

// SourceProvider exposes the current source configuration to the scheduler.
// The returned slice preserves configuration order, which fixes dispatch
// order. Implementations may hot-reload the set between scheduler ticks;
// the scheduler re-reads it each tick and never mid-run.
type SourceProvider interface {
	Sources() []domain.SourceInstance
}
