// Package gitlab syncs issues and merge requests from one GitLab project,
// paging each content type by updated-at.
package gitlab

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// DefaultBatchSize bounds items per API page when the source sets none.
const DefaultBatchSize = 50

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector fetches issues and merge requests from a GitLab project.
type Connector struct {
	client  *gl.Client
	project string
}

// New creates a GitLab connector. Required credentials: token. Optional:
// base_url for self-hosted instances. The project comes from the source's
// project filter ("group/app" or a numeric ID).
func New(source domain.SourceInstance) (*Connector, error) {
	if source.ProjectFilter == "" {
		return nil, fmt.Errorf("%w: gitlab source %s has no project filter",
			domain.ErrInvalidInput, source.ID())
	}

	opts := []gl.ClientOptionFunc{}
	if baseURL := source.Credential("base_url"); baseURL != "" {
		opts = append(opts, gl.WithBaseURL(baseURL))
	}
	client, err := gl.NewClient(source.Credential("token"), opts...)
	if err != nil {
		return nil, fmt.Errorf("create gitlab client: %w", err)
	}

	return &Connector{client: client, project: source.ProjectFilter}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceGitLab
}

// FetchBatch returns one API page of the current phase. Issues page first,
// then merge requests; the run completes when both are exhausted.
func (c *Connector) FetchBatch(ctx context.Context, source domain.SourceInstance, position string) (*driven.Batch, error) {
	cursor, err := DecodeCursor(position)
	if err != nil {
		return nil, fmt.Errorf("decode position: %w", err)
	}

	phase := cursor.Phase
	if phase == "" {
		phase = PhaseIssues
	}
	page := cursor.Page
	if page < 1 {
		page = 1
	}
	perPage := source.BatchSize
	if perPage <= 0 {
		perPage = DefaultBatchSize
	}

	var (
		items    []domain.RawItem
		nextPage int
	)
	switch phase {
	case PhaseIssues:
		items, nextPage, err = c.fetchIssues(ctx, cursor.Since, page, perPage)
	case PhaseMergeRequests:
		items, nextPage, err = c.fetchMergeRequests(ctx, cursor.Since, page, perPage)
	default:
		return nil, domain.Fatal(fmt.Errorf("unknown phase %q", phase))
	}
	if err != nil {
		return nil, err
	}

	batch := &driven.Batch{Items: items}
	maxSeen := cursor.MaxSeen
	for _, item := range items {
		if when, err := time.Parse(time.RFC3339, item.Metadata["updated_at"]); err == nil && when.After(maxSeen) {
			maxSeen = when
		}
	}

	next := &Cursor{Since: cursor.Since, MaxSeen: maxSeen}
	switch {
	case nextPage > 0:
		next.Phase = phase
		next.Page = nextPage
		batch.HasMore = true
	case phase == PhaseIssues:
		next.Phase = PhaseMergeRequests
		next.Page = 1
		batch.HasMore = true
	default:
		if maxSeen.After(next.Since) {
			next.Since = maxSeen
		}
		next.MaxSeen = time.Time{}
	}
	batch.NextPosition = next.Encode()
	return batch, nil
}

// Close releases resources. The client holds no long-lived connections.
func (c *Connector) Close() error {
	return nil
}

func (c *Connector) fetchIssues(ctx context.Context, since time.Time, page, perPage int) ([]domain.RawItem, int, error) {
	opts := &gl.ListProjectIssuesOptions{
		OrderBy:     gl.Ptr("updated_at"),
		Sort:        gl.Ptr("asc"),
		ListOptions: gl.ListOptions{Page: page, PerPage: perPage},
	}
	if !since.IsZero() {
		opts.UpdatedAfter = gl.Ptr(since)
	}

	issues, resp, err := c.client.Issues.ListProjectIssues(c.project, opts, gl.WithContext(ctx))
	if err != nil {
		return nil, 0, wrapError(resp, fmt.Errorf("list issues: %w", err))
	}

	items := make([]domain.RawItem, 0, len(issues))
	for _, issue := range issues {
		items = append(items, domain.RawItem{
			ExternalID: "issue/" + strconv.Itoa(issue.IID),
			Title:      issue.Title,
			Body:       issue.Description,
			Metadata: map[string]string{
				"kind":       "issue",
				"state":      issue.State,
				"url":        issue.WebURL,
				"updated_at": timeString(issue.UpdatedAt),
			},
			FetchedAt: time.Now().UTC(),
		})
	}
	return items, resp.NextPage, nil
}

func (c *Connector) fetchMergeRequests(ctx context.Context, since time.Time, page, perPage int) ([]domain.RawItem, int, error) {
	opts := &gl.ListProjectMergeRequestsOptions{
		OrderBy:     gl.Ptr("updated_at"),
		Sort:        gl.Ptr("asc"),
		ListOptions: gl.ListOptions{Page: page, PerPage: perPage},
	}
	if !since.IsZero() {
		opts.UpdatedAfter = gl.Ptr(since)
	}

	mrs, resp, err := c.client.MergeRequests.ListProjectMergeRequests(c.project, opts, gl.WithContext(ctx))
	if err != nil {
		return nil, 0, wrapError(resp, fmt.Errorf("list merge requests: %w", err))
	}

	items := make([]domain.RawItem, 0, len(mrs))
	for _, mr := range mrs {
		items = append(items, domain.RawItem{
			ExternalID: "merge_request/" + strconv.Itoa(mr.IID),
			Title:      mr.Title,
			Body:       mr.Description,
			Metadata: map[string]string{
				"kind":       "merge_request",
				"state":      mr.State,
				"url":        mr.WebURL,
				"updated_at": timeString(mr.UpdatedAt),
			},
			FetchedAt: time.Now().UTC(),
		})
	}
	return items, resp.NextPage, nil
}

// wrapError classifies an API failure: rate limiting and server errors are
// transient, everything else (auth, missing project) is fatal.
func wrapError(resp *gl.Response, err error) error {
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

func timeString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
