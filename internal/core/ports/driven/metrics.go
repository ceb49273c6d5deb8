package driven

import (
	"context"
	"time"
)

// Metrics receives counters and gauges emitted by the pipeline. The core
// only writes; it never reads measurements back.
type Metrics interface {
	// ItemsFetched counts raw items returned by connectors.
	ItemsFetched(ctx context.Context, sourceID string, n int)

	// ItemsAccepted counts documents forwarded downstream.
	ItemsAccepted(ctx context.Context, sourceID string, n int)

	// ItemsSkipped counts items dropped as empty, unchanged or near-duplicate.
	ItemsSkipped(ctx context.Context, sourceID string, n int)

	// SyncDuration records the wall time of a finished run.
	SyncDuration(ctx context.Context, sourceID string, d time.Duration)

	// ConsecutiveFailures records the current failure streak for a source.
	ConsecutiveFailures(ctx context.Context, sourceID string, n int)
}

// NopMetrics discards all measurements. Used when no metrics backend is
// configured and in tests.
type NopMetrics struct{}

var _ Metrics = NopMetrics{}

func (NopMetrics) ItemsFetched(context.Context, string, int)          {}
func (NopMetrics) ItemsAccepted(context.Context, string, int)         {}
func (NopMetrics) ItemsSkipped(context.Context, string, int)          {}
func (NopMetrics) SyncDuration(context.Context, string, time.Duration) {}
func (NopMetrics) ConsecutiveFailures(context.Context, string, int)   {}
