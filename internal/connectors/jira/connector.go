// Package jira syncs issues from Jira using incremental JQL search ordered
// by updated time.
package jira

import (
	"context"
	"fmt"
	"time"

	gojira "github.com/andygrunwald/go-jira"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// DefaultBatchSize bounds issues per search page when the source sets none.
const DefaultBatchSize = 50

// jqlTimeLayout is the timestamp format JQL accepts. Minute granularity,
// so the watermark uses >= and content hashes drop the overlap.
const jqlTimeLayout = "2006-01-02 15:04"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector fetches issues from one Jira site.
type Connector struct {
	client *gojira.Client
}

// New creates a Jira connector. Required credentials: base_url, email,
// api_token.
func New(source domain.SourceInstance) (*Connector, error) {
	baseURL := source.Credential("base_url")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: jira source %s has no base_url credential",
			domain.ErrInvalidInput, source.ID())
	}

	tp := gojira.BasicAuthTransport{
		Username: source.Credential("email"),
		Password: source.Credential("api_token"),
	}
	httpClient := tp.Client()
	httpClient.Timeout = source.Timeout()

	client, err := gojira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("create jira client: %w", err)
	}
	return &Connector{client: client}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceJira
}

// FetchBatch returns one page of issues updated at or after the cursor
// watermark, oldest first.
func (c *Connector) FetchBatch(ctx context.Context, source domain.SourceInstance, position string) (*driven.Batch, error) {
	cursor, err := DecodeCursor(position)
	if err != nil {
		return nil, fmt.Errorf("decode position: %w", err)
	}

	batchSize := source.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	issues, resp, err := c.client.Issue.SearchWithContext(ctx,
		buildJQL(source.ProjectFilter, cursor.Since),
		&gojira.SearchOptions{
			StartAt:    cursor.StartAt,
			MaxResults: batchSize,
			Fields:     []string{"summary", "description", "updated", "status"},
		})
	if err != nil {
		return nil, wrapError(resp, fmt.Errorf("search issues: %w", err))
	}

	batch := &driven.Batch{}
	maxSeen := cursor.MaxSeen
	for _, issue := range issues {
		updated := time.Time(issue.Fields.Updated)
		status := ""
		if issue.Fields.Status != nil {
			status = issue.Fields.Status.Name
		}
		batch.Items = append(batch.Items, domain.RawItem{
			ExternalID: issue.Key,
			Title:      issue.Fields.Summary,
			Body:       issue.Fields.Description,
			Metadata: map[string]string{
				"status":     status,
				"updated_at": updated.UTC().Format(time.RFC3339),
			},
			FetchedAt: time.Now().UTC(),
		})
		if updated.After(maxSeen) {
			maxSeen = updated
		}
	}

	batch.HasMore = resp.StartAt+len(issues) < resp.Total && len(issues) > 0
	if batch.HasMore {
		next := &Cursor{
			Since:   cursor.Since,
			StartAt: resp.StartAt + len(issues),
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

// Close releases resources. The HTTP client needs no teardown.
func (c *Connector) Close() error {
	return nil
}

// buildJQL composes the incremental search query, optionally scoped to one
// project key.
func buildJQL(project string, since time.Time) string {
	jql := ""
	if project != "" {
		jql = fmt.Sprintf("project = %q AND ", project)
	}
	if !since.IsZero() {
		jql += fmt.Sprintf("updated >= %q AND ", since.UTC().Format(jqlTimeLayout))
	}
	if jql == "" {
		return "ORDER BY updated ASC"
	}
	return jql[:len(jql)-len(" AND ")] + " ORDER BY updated ASC"
}

// wrapError classifies an API failure: rate limiting and server errors are
// transient, everything else is fatal.
func wrapError(resp *gojira.Response, err error) error {
	if resp == nil {
		return domain.Transient(err)
	}
	switch {
	case resp.StatusCode == 429 || resp.StatusCode >= 500:
		return domain.Transient(err)
	default:
		return domain.Fatal(err)
	}
}
