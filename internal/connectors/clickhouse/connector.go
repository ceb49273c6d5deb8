// Package clickhouse syncs rows from a ClickHouse table with a
// last-modified column.
package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/corvuslabs/ingestd/internal/connectors/sqlsource"
	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector scans one ClickHouse table incrementally.
type Connector struct {
	scanner *sqlsource.Scanner
}

// New creates a ClickHouse connector. Required credentials: addr
// (host:port, comma-separated for a cluster). Optional: database,
// username, password. The table comes from the source's table filter.
func New(source domain.SourceInstance) (*Connector, error) {
	if source.TableFilter == "" {
		return nil, fmt.Errorf("%w: clickhouse source %s has no table filter",
			domain.ErrInvalidInput, source.ID())
	}
	addr := source.Credential("addr")
	if addr == "" {
		return nil, fmt.Errorf("%w: clickhouse source %s has no addr credential",
			domain.ErrInvalidInput, source.ID())
	}

	db := ch.OpenDB(&ch.Options{
		Addr: strings.Split(addr, ","),
		Auth: ch.Auth{
			Database: source.Credential("database"),
			Username: source.Credential("username"),
			Password: source.Credential("password"),
		},
		DialTimeout: source.Timeout(),
		ReadTimeout: source.Timeout(),
	})

	return &Connector{
		scanner: sqlsource.NewScanner(db, source.TableFilter,
			sqlsource.ColumnsFromSource(source), buildQuery),
	}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceClickHouse
}

// FetchBatch returns one page of rows updated after the cursor watermark.
func (c *Connector) FetchBatch(ctx context.Context, source domain.SourceInstance, position string) (*driven.Batch, error) {
	return c.scanner.FetchBatch(ctx, source, position)
}

// Close closes the connection pool.
func (c *Connector) Close() error {
	return c.scanner.Close()
}

// buildQuery phrases the incremental scan with positional placeholders.
// Limit and offset are trusted integers from the scanner.
func buildQuery(table string, cols sqlsource.Columns, since time.Time, limit, offset int) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s, %s, %s, %s FROM %s",
		cols.ID, cols.Title, cols.Body, cols.Updated, table)
	args := []any{}
	if !since.IsZero() {
		fmt.Fprintf(&b, " WHERE %s > ?", cols.Updated)
		args = append(args, since.UTC())
	}
	fmt.Fprintf(&b, " ORDER BY %s ASC, %s ASC LIMIT %d OFFSET %d",
		cols.Updated, cols.ID, limit, offset)
	return b.String(), args
}
