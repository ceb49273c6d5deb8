package driving

import (
	"context"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// RunReport is the outcome of one sync run for one source instance.
type RunReport struct {
	// Run is the finalised run record, including item counts and the
	// failure message for failed runs.
	Run domain.SyncRun

	// FinalPosition is the last cursor position whose batch was durably
	// accepted downstream. On failure this is the position of the last
	// committed batch, never a later unacked one.
	FinalPosition string
}

// SyncRunner executes the fetch→normalise→dedup→ingest pipeline for one
// source instance. The caller owns cursor acquisition and finalisation;
// the runner only advances the position batch-by-batch while holding the
// running cursor.
type SyncRunner interface {
	Run(ctx context.Context, source domain.SourceInstance, cursor domain.SyncCursor) (*RunReport, error)
}
