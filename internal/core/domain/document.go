package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RawItem is one item as fetched from a source, before normalisation.
// Raw items are ephemeral: they are consumed by the normaliser within the
// batch that produced them and never persisted.
type RawItem struct {
	// ExternalID is the item's identifier in the source system
	// (page ID, issue key, file path, primary key).
	ExternalID string

	// Title is the source-native title, possibly empty.
	Title string

	// Body is the source-native content. May contain HTML depending on
	// the source; the content policy decides whether it is stripped.
	Body string

	// Metadata carries source-specific fields worth keeping on the
	// normalised document (space key, author, url, ...).
	Metadata map[string]string

	// FetchedAt is when the connector retrieved the item.
	FetchedAt time.Time
}

// Document is the canonical normalised record handed to the vector-store
// ingest boundary.
type Document struct {
	// DocID is derived from the source instance ID and the external ID,
	// so re-fetching the same item always upserts rather than duplicates.
	DocID string

	// SourceID is the owning source instance.
	SourceID string

	// Title is the cleaned title.
	Title string

	// Body is the cleaned, possibly truncated text content.
	Body string

	// ContentHash covers body, title and identity metadata. UpdatedAt is
	// deliberately excluded so reprocessing an unchanged item yields the
	// same hash.
	ContentHash string

	// Metadata is the normalised source metadata map.
	Metadata map[string]string

	// UpdatedAt is the processing time, recorded for audit only.
	UpdatedAt time.Time
}

// DocumentID derives the stable document identifier for an external item.
func DocumentID(sourceID, externalID string) string {
	sum := sha256.Sum256([]byte(sourceID + "\x00" + externalID))
	return hex.EncodeToString(sum[:])
}

// HashContent computes the content hash over the given parts.
func HashContent(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Decision is the dedup classification for a normalised document.
type Decision string

const (
	// DecisionNew means no previous hash is recorded for the doc ID.
	DecisionNew Decision = "new"

	// DecisionChanged means the recorded hash differs from the current one.
	DecisionChanged Decision = "changed"

	// DecisionUnchanged means the recorded hash matches exactly.
	DecisionUnchanged Decision = "unchanged"

	// DecisionNearDuplicate means the document is new by ID but its body
	// is a near-duplicate of another document already seen.
	DecisionNearDuplicate Decision = "near_duplicate"
)

// Accepted returns true if a document with this decision should be
// forwarded downstream.
func (d Decision) Accepted() bool {
	return d == DecisionNew || d == DecisionChanged
}
