package driven

import "context"

// HashIndex is the per-source mapping from document ID to the last content
// hash accepted downstream. It backs dedup classification and must only be
// updated after the corresponding document was durably ingested, so that a
// crash replays the in-flight batch instead of losing it.
type HashIndex interface {
	// Get returns the recorded hash for a document, or ok=false when the
	// document has never been accepted.
	Get(ctx context.Context, sourceID, docID string) (hash string, ok bool, err error)

	// Put records the hash for a document, replacing any previous value.
	Put(ctx context.Context, sourceID, docID, hash string) error
}
