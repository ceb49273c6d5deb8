// Package ydb syncs rows from a YDB table with a last-modified column,
// using the database/sql driver the YDB SDK registers.
package ydb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/ydb-platform/ydb-go-sdk/v3"

	"github.com/corvuslabs/ingestd/internal/connectors/sqlsource"
	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector scans one YDB table incrementally.
type Connector struct {
	scanner *sqlsource.Scanner
}

// New creates a YDB connector. Required credentials: dsn (a grpc(s)://
// connection string; enable declare query binding so named parameters
// work, e.g. "?go_query_bind=declare,numeric"). The table comes from the
// source's table filter.
func New(source domain.SourceInstance) (*Connector, error) {
	if source.TableFilter == "" {
		return nil, fmt.Errorf("%w: ydb source %s has no table filter",
			domain.ErrInvalidInput, source.ID())
	}
	dsn := source.Credential("dsn")
	if dsn == "" {
		return nil, fmt.Errorf("%w: ydb source %s has no dsn credential",
			domain.ErrInvalidInput, source.ID())
	}

	db, err := sql.Open("ydb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ydb: %w", err)
	}

	return &Connector{
		scanner: sqlsource.NewScanner(db, source.TableFilter,
			sqlsource.ColumnsFromSource(source), buildQuery),
	}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceYDB
}

// FetchBatch returns one page of rows updated after the cursor watermark.
func (c *Connector) FetchBatch(ctx context.Context, source domain.SourceInstance, position string) (*driven.Batch, error) {
	return c.scanner.FetchBatch(ctx, source, position)
}

// Close closes the connection pool.
func (c *Connector) Close() error {
	return c.scanner.Close()
}

// buildQuery phrases the incremental scan in YQL. Identifiers are
// backtick-quoted; the watermark binds as a named parameter, limit and
// offset are trusted integers.
func buildQuery(table string, cols sqlsource.Columns, since time.Time, limit, offset int) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT `%s`, `%s`, `%s`, `%s` FROM `%s`",
		cols.ID, cols.Title, cols.Body, cols.Updated, table)
	args := []any{}
	if !since.IsZero() {
		fmt.Fprintf(&b, " WHERE `%s` > $since", cols.Updated)
		args = append(args, sql.Named("since", since.UTC()))
	}
	fmt.Fprintf(&b, " ORDER BY `%s` ASC, `%s` ASC LIMIT %d OFFSET %d",
		cols.Updated, cols.ID, limit, offset)
	return b.String(), args
}
