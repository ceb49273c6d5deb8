package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// RecordRun appends a finalised run.
func (s *runStore) RecordRun(ctx context.Context, run *domain.SyncRun) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs
			(id, source_id, started_at, ended_at, items_fetched, items_accepted, items_skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.SourceID, run.StartedAt, nullTime(run.EndedAt),
		run.ItemsFetched, run.ItemsAccepted, run.ItemsSkipped, run.Error)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// ListRuns returns recent runs, most recent first. An empty sourceID
// returns runs across all sources.
func (s *runStore) ListRuns(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	query := `
		SELECT id, source_id, started_at, ended_at, items_fetched, items_accepted, items_skipped, error
		FROM sync_runs`
	args := []any{}
	if sourceID != "" {
		query += " WHERE source_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		var run domain.SyncRun
		var endedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.SourceID, &run.StartedAt, &endedAt,
			&run.ItemsFetched, &run.ItemsAccepted, &run.ItemsSkipped, &run.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if endedAt.Valid {
			run.EndedAt = endedAt.Time
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// PruneRuns removes runs that started before the cutoff.
func (s *runStore) PruneRuns(ctx context.Context, cutoff time.Time) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM sync_runs WHERE started_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("pruning runs: %w", err)
	}
	return nil
}
