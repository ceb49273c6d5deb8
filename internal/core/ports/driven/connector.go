package driven

import (
	"context"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// Batch is one bounded page of items returned by a single connector call.
type Batch struct {
	// Items are the fetched raw items, in a deterministic order relative
	// to NextPosition.
	Items []domain.RawItem

	// NextPosition is the opaque cursor position to resume from. Resuming
	// from it never re-reads items already committed before it, and never
	// skips items before it; replays of uncommitted items are absorbed by
	// dedup downstream.
	NextPosition string

	// HasMore indicates the source has further items beyond this batch.
	HasMore bool
}

// Connector fetches raw items from one external system.
// Each source type (confluence, gitlab, jira, ...) implements this interface.
//
// Connectors are stateless between calls: all sync state lives in the
// cursor position passed in. Errors must be classified with
// domain.Transient (network, 5xx, rate limit) or domain.Fatal (bad
// credentials, missing space/project); unclassified errors are treated as
// fatal by the run loop.
type Connector interface {
	// Type returns the source type this connector serves.
	Type() domain.SourceType

	// FetchBatch returns up to source.BatchSize items starting at the
	// opaque position. An empty position means "from the beginning".
	// source.Timeout() bounds each underlying network call, not the
	// whole batch.
	FetchBatch(ctx context.Context, source domain.SourceInstance, position string) (*Batch, error)

	// Close releases resources.
	Close() error
}

// ConnectorFactory builds a connector for a source instance.
// Selection is a strategy table keyed on source type, populated at startup.
type ConnectorFactory interface {
	// Create returns a connector for the source, or
	// domain.ErrUnsupportedType for unknown source types.
	Create(source domain.SourceInstance) (Connector, error)
}
