package driven

import (
	"context"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// Ingestor is the vector-store ingest boundary. The pipeline treats a nil
// error as a durable acknowledgement and only then advances the cursor past
// the batch. Transient ingest failures should be wrapped with
// domain.Transient so the run loop retries them under the same policy as
// connector fetches.
type Ingestor interface {
	// Ingest hands a batch of accepted documents downstream.
	Ingest(ctx context.Context, docs []domain.Document) error
}
