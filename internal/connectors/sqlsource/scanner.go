// Package sqlsource implements incremental batch scanning over any
// database/sql source with a last-modified column. The database-backed
// connectors share this scanner and differ only in how they open the
// connection and phrase the query for their dialect.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// DefaultBatchSize bounds rows per batch when the source sets none.
const DefaultBatchSize = 100

// Columns names the four columns every scanned table must expose.
type Columns struct {
	ID      string
	Title   string
	Body    string
	Updated string
}

// ColumnsFromSource reads column names from source options, falling back
// to conventional defaults.
func ColumnsFromSource(source domain.SourceInstance) Columns {
	return Columns{
		ID:      source.Option("id_column", "id"),
		Title:   source.Option("title_column", "title"),
		Body:    source.Option("body_column", "body"),
		Updated: source.Option("updated_column", "updated_at"),
	}
}

// QueryFunc phrases the incremental scan for one SQL dialect. A zero since
// means no watermark filter. Limit and offset are trusted integers from
// the scanner, never user input.
type QueryFunc func(table string, cols Columns, since time.Time, limit, offset int) (string, []any)

// Scanner pages through rows updated after the cursor watermark, ordered
// by the updated column so offsets stay stable within a run.
type Scanner struct {
	db    *sql.DB
	table string
	cols  Columns
	query QueryFunc
}

// NewScanner creates a scanner over one table.
func NewScanner(db *sql.DB, table string, cols Columns, query QueryFunc) *Scanner {
	return &Scanner{db: db, table: table, cols: cols, query: query}
}

// FetchBatch returns one page of changed rows. Database failures are
// transient: connectivity comes and goes, and a genuinely broken query
// surfaces when the retry budget runs out.
func (s *Scanner) FetchBatch(ctx context.Context, source domain.SourceInstance, position string) (*driven.Batch, error) {
	cursor, err := DecodeCursor(position)
	if err != nil {
		return nil, fmt.Errorf("decode position: %w", err)
	}

	batchSize := source.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	// Fetch one extra row to learn whether another page exists.
	query, args := s.query(s.table, s.cols, cursor.Since, batchSize+1, cursor.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("scan %s: %w", s.table, err))
	}
	defer rows.Close()

	batch := &driven.Batch{}
	maxSeen := cursor.MaxSeen
	count := 0
	for rows.Next() {
		count++
		if count > batchSize {
			batch.HasMore = true
			break
		}
		var idRaw, titleRaw, bodyRaw, updatedRaw any
		if err := rows.Scan(&idRaw, &titleRaw, &bodyRaw, &updatedRaw); err != nil {
			return nil, domain.Transient(fmt.Errorf("scan row: %w", err))
		}

		updated := coerceTime(updatedRaw)
		batch.Items = append(batch.Items, domain.RawItem{
			ExternalID: coerceString(idRaw),
			Title:      coerceString(titleRaw),
			Body:       coerceString(bodyRaw),
			Metadata: map[string]string{
				"table":      s.table,
				"updated_at": updated.UTC().Format(time.RFC3339),
			},
			FetchedAt: time.Now().UTC(),
		})
		if updated.After(maxSeen) {
			maxSeen = updated
		}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Transient(fmt.Errorf("scan %s: %w", s.table, err))
	}

	if batch.HasMore {
		next := &Cursor{
			Since:   cursor.Since,
			Offset:  cursor.Offset + batchSize,
			MaxSeen: maxSeen,
		}
		batch.NextPosition = next.Encode()
		return batch, nil
	}

	since := cursor.Since
	if maxSeen.After(since) {
		since = maxSeen
	}
	batch.NextPosition = (&Cursor{Since: since}).Encode()
	return batch, nil
}

// Close closes the underlying connection pool.
func (s *Scanner) Close() error {
	return s.db.Close()
}

// coerceString renders whatever the driver returned for a text column.
func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// coerceTime renders whatever the driver returned for a timestamp column.
// Unparseable values collapse to zero, which keeps the watermark where it
// was instead of jumping it forward.
func coerceTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	case []byte:
		return coerceTime(string(t))
	}
	return time.Time{}
}
