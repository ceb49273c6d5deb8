package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

type fakePage struct {
	id, title, body, space string
	when                   time.Time
}

// newSearchServer serves the CQL search endpoint over a fixed page set,
// honouring start/limit and recording the CQL it received.
func newSearchServer(t *testing.T, pages []fakePage, gotCQL *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/content/search", r.URL.Path)
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "bot@example.com", user)

		if gotCQL != nil {
			*gotCQL = append(*gotCQL, r.URL.Query().Get("cql"))
		}
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		end := start + limit
		if end > len(pages) {
			end = len(pages)
		}
		results := make([]map[string]any, 0)
		for _, p := range pages[start:end] {
			results = append(results, map[string]any{
				"id":      p.id,
				"title":   p.title,
				"body":    map[string]any{"storage": map[string]any{"value": p.body}},
				"version": map[string]any{"when": p.when.Format(time.RFC3339)},
				"space":   map[string]any{"key": p.space},
				"_links":  map[string]any{"webui": "/wiki/" + p.id},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":   results,
			"start":     start,
			"limit":     limit,
			"size":      len(results),
			"totalSize": len(pages),
		})
	}))
}

func confluenceSource(baseURL string, batchSize int) domain.SourceInstance {
	return domain.SourceInstance{
		Type:      domain.SourceConfluence,
		Name:      "main",
		BatchSize: batchSize,
		Credentials: map[string]string{
			"base_url":  baseURL,
			"email":     "bot@example.com",
			"api_token": "secret",
		},
	}
}

func TestFetchBatch_ReturnsPages(t *testing.T) {
	when := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	server := newSearchServer(t, []fakePage{
		{id: "100", title: "Runbook", body: "<p>restart it</p>", space: "ENG", when: when},
	}, nil)
	defer server.Close()

	source := confluenceSource(server.URL, 25)
	connector, err := New(source)
	require.NoError(t, err)

	batch, err := connector.FetchBatch(context.Background(), source, "")
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)
	assert.False(t, batch.HasMore)
	assert.Equal(t, "100", batch.Items[0].ExternalID)
	assert.Equal(t, "Runbook", batch.Items[0].Title)
	assert.Equal(t, "<p>restart it</p>", batch.Items[0].Body)
	assert.Equal(t, "ENG", batch.Items[0].Metadata["space"])
}

func TestFetchBatch_PaginatesAndAdvancesWatermark(t *testing.T) {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	pages := []fakePage{
		{id: "1", title: "a", body: "a", space: "ENG", when: base},
		{id: "2", title: "b", body: "b", space: "ENG", when: base.Add(time.Minute)},
		{id: "3", title: "c", body: "c", space: "ENG", when: base.Add(2 * time.Minute)},
	}
	server := newSearchServer(t, pages, nil)
	defer server.Close()

	source := confluenceSource(server.URL, 2)
	connector, err := New(source)
	require.NoError(t, err)

	first, err := connector.FetchBatch(context.Background(), source, "")
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)

	second, err := connector.FetchBatch(context.Background(), source, first.NextPosition)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.False(t, second.HasMore)

	final, err := DecodeCursor(second.NextPosition)
	require.NoError(t, err)
	assert.Equal(t, 0, final.Start)
	assert.True(t, final.Since.Equal(base.Add(2*time.Minute)))
}

func TestFetchBatch_CQLCarriesSpaceAndWatermark(t *testing.T) {
	var gotCQL []string
	server := newSearchServer(t, nil, &gotCQL)
	defer server.Close()

	source := confluenceSource(server.URL, 25)
	source.SpaceFilter = "ENG"
	connector, err := New(source)
	require.NoError(t, err)

	since := time.Date(2025, 5, 1, 10, 30, 0, 0, time.UTC)
	position := (&Cursor{Since: since}).Encode()
	_, err = connector.FetchBatch(context.Background(), source, position)
	require.NoError(t, err)

	require.Len(t, gotCQL, 1)
	assert.Contains(t, gotCQL[0], `space="ENG"`)
	assert.Contains(t, gotCQL[0], `lastmodified >= "2025-05-01 10:30"`)
	assert.Contains(t, gotCQL[0], "order by lastmodified asc")
}

func TestFetchBatch_RateLimitedIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	source := confluenceSource(server.URL, 25)
	connector, err := New(source)
	require.NoError(t, err)

	_, err = connector.FetchBatch(context.Background(), source, "")
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestFetchBatch_UnauthorizedIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"bad token"}`)
	}))
	defer server.Close()

	source := confluenceSource(server.URL, 25)
	connector, err := New(source)
	require.NoError(t, err)

	_, err = connector.FetchBatch(context.Background(), source, "")
	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
	assert.False(t, domain.IsTransient(err))
}

func TestFetchBatch_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	source := confluenceSource(server.URL, 25)
	connector, err := New(source)
	require.NoError(t, err)

	_, err = connector.FetchBatch(context.Background(), source, "")
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestNew_RequiresBaseURL(t *testing.T) {
	source := domain.SourceInstance{Type: domain.SourceConfluence, Name: "main"}
	_, err := New(source)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
