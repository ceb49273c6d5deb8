// Package dedup classifies normalised documents against previously
// accepted content so unchanged and near-duplicate items never reach the
// ingest boundary.
package dedup

import (
	"context"
	"fmt"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// Filter classifies documents for one source instance during one run.
// A filter is created per run and must not be shared across sources: the
// hash index rows it consults are scoped by source, and the near-duplicate
// window covers only bodies accepted within the current run.
//
// Hash equality is exact and always decided first; similarity is
// best-effort on top and can only downgrade a NEW document, never mask an
// exact match.
type Filter struct {
	index      driven.HashIndex
	similarity Similarity
	threshold  float64
	sourceID   string

	// bodies seen this run, keyed by doc ID, for the near-duplicate
	// window. Populated at classification time so near-identical
	// documents within one batch catch each other, and confirmed again
	// at Commit.
	window map[string]string
}

// NewFilter creates a per-run filter. A nil similarity or a zero threshold
// disables near-duplicate detection; hash classification is unaffected.
func NewFilter(index driven.HashIndex, similarity Similarity, threshold float64, sourceID string) *Filter {
	return &Filter{
		index:      index,
		similarity: similarity,
		threshold:  threshold,
		sourceID:   sourceID,
		window:     make(map[string]string),
	}
}

// Classify decides whether doc is new, changed, unchanged or a
// near-duplicate of another document seen this run.
func (f *Filter) Classify(ctx context.Context, doc *domain.Document) (domain.Decision, error) {
	previous, ok, err := f.index.Get(ctx, f.sourceID, doc.DocID)
	if err != nil {
		return "", fmt.Errorf("hash index get: %w", err)
	}

	if ok {
		if previous == doc.ContentHash {
			return domain.DecisionUnchanged, nil
		}
		f.window[doc.DocID] = doc.Body
		return domain.DecisionChanged, nil
	}

	if f.similarity != nil && f.threshold > 0 {
		for otherID, body := range f.window {
			if otherID == doc.DocID {
				continue
			}
			if f.similarity.Score(doc.Body, body) >= f.threshold {
				return domain.DecisionNearDuplicate, nil
			}
		}
	}

	f.window[doc.DocID] = doc.Body
	return domain.DecisionNew, nil
}

// Commit records a document's hash after it was durably accepted
// downstream. Committing also adds the body to the near-duplicate window.
// Never call Commit before the ingest acknowledgement: the index is what
// makes crash replays converge to skips.
func (f *Filter) Commit(ctx context.Context, doc *domain.Document) error {
	if err := f.index.Put(ctx, f.sourceID, doc.DocID, doc.ContentHash); err != nil {
		return fmt.Errorf("hash index put: %w", err)
	}
	f.window[doc.DocID] = doc.Body
	return nil
}
