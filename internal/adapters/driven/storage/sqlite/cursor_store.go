package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// cursorStore implements driven.CursorStore.
type cursorStore struct {
	store *Store
}

var _ driven.CursorStore = (*cursorStore)(nil)

// Load retrieves the cursor for a source, synthesizing a fresh idle cursor
// when none has been persisted yet.
func (s *cursorStore) Load(ctx context.Context, sourceID string) (domain.SyncCursor, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, position, status, started_at, last_success_at, consecutive_failures
		FROM sync_cursors WHERE source_id = ?
	`, sourceID)

	var cursor domain.SyncCursor
	var status string
	var startedAt, lastSuccessAt sql.NullTime
	err := row.Scan(&cursor.SourceID, &cursor.Position, &status,
		&startedAt, &lastSuccessAt, &cursor.ConsecutiveFailures)
	if err == sql.ErrNoRows {
		return domain.NewCursor(sourceID), nil
	}
	if err != nil {
		return domain.SyncCursor{}, fmt.Errorf("scanning cursor: %w", err)
	}

	cursor.Status = domain.CursorStatus(status)
	if startedAt.Valid {
		cursor.StartedAt = startedAt.Time
	}
	if lastSuccessAt.Valid {
		cursor.LastSuccessAt = lastSuccessAt.Time
	}
	return cursor, nil
}

// CompareAndSwap replaces the stored cursor if and only if the stored
// status equals expected. The status column is the run lock, so the check
// and the write happen in one statement.
func (s *cursorStore) CompareAndSwap(ctx context.Context, sourceID string, expected domain.CursorStatus, next domain.SyncCursor) (bool, error) {
	var result sql.Result
	var err error

	if expected == domain.CursorIdle {
		// A cursor that was never persisted reads as idle, so the idle
		// expectation also covers the insert path. The conditional upsert
		// inserts a missing row and only overwrites an existing one that
		// is still idle.
		result, err = s.store.db.ExecContext(ctx, `
			INSERT INTO sync_cursors
				(source_id, position, status, started_at, last_success_at, consecutive_failures)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_id) DO UPDATE SET
				position = excluded.position,
				status = excluded.status,
				started_at = excluded.started_at,
				last_success_at = excluded.last_success_at,
				consecutive_failures = excluded.consecutive_failures
			WHERE sync_cursors.status = ?
		`, sourceID, next.Position, string(next.Status),
			nullTime(next.StartedAt), nullTime(next.LastSuccessAt), next.ConsecutiveFailures,
			string(expected))
	} else {
		result, err = s.store.db.ExecContext(ctx, `
			UPDATE sync_cursors SET
				position = ?,
				status = ?,
				started_at = ?,
				last_success_at = ?,
				consecutive_failures = ?
			WHERE source_id = ? AND status = ?
		`, next.Position, string(next.Status),
			nullTime(next.StartedAt), nullTime(next.LastSuccessAt), next.ConsecutiveFailures,
			sourceID, string(expected))
	}
	if err != nil {
		return false, fmt.Errorf("swapping cursor: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking swap result: %w", err)
	}
	return affected == 1, nil
}

// nullTime maps the zero time to NULL so "never" is distinguishable.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
