package driven

import (
	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// Normalizer converts a raw item into the canonical document record.
//
// Normalisation is a pure function of the item and source configuration,
// aside from the document's UpdatedAt audit timestamp. Items whose title
// and body are both empty after cleaning are rejected with
// domain.ErrEmptyContent, which the run loop records as a skip, not a
// failure.
type Normalizer interface {
	Normalize(item domain.RawItem, source domain.SourceInstance) (*domain.Document, error)
}
