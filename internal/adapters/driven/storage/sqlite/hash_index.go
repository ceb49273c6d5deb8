package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// hashIndex implements driven.HashIndex.
type hashIndex struct {
	store *Store
}

var _ driven.HashIndex = (*hashIndex)(nil)

// Get retrieves the recorded content hash for a document.
func (s *hashIndex) Get(ctx context.Context, sourceID, docID string) (string, bool, error) {
	var hash string
	err := s.store.db.QueryRowContext(ctx, `
		SELECT content_hash FROM content_hashes
		WHERE source_id = ? AND doc_id = ?
	`, sourceID, docID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying content hash: %w", err)
	}
	return hash, true, nil
}

// Put records a document's content hash, replacing any previous one.
func (s *hashIndex) Put(ctx context.Context, sourceID, docID, hash string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO content_hashes (source_id, doc_id, content_hash)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id, doc_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			updated_at = CURRENT_TIMESTAMP
	`, sourceID, docID, hash)
	if err != nil {
		return fmt.Errorf("saving content hash: %w", err)
	}
	return nil
}
