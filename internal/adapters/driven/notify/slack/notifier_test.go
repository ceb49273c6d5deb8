package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

func sampleEvent() domain.AlertEvent {
	return domain.AlertEvent{
		SourceID:            "jira/ops",
		ConsecutiveFailures: 3,
		LastError:           "fetch batch: 503 Service Unavailable",
		At:                  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNotify_PostsWebhookMessage(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	notifier, err := New(server.URL, "#search-alerts")
	require.NoError(t, err)

	require.NoError(t, notifier.Notify(context.Background(), sampleEvent()))

	assert.Equal(t, "#search-alerts", got["channel"])
	assert.Contains(t, got["text"], "jira/ops")
	assert.Contains(t, got["text"], "failed 3 times")
	assert.Contains(t, got["text"], "503 Service Unavailable")
}

func TestNotify_ServerErrorIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer server.Close()

	notifier, err := New(server.URL, "")
	require.NoError(t, err)

	assert.Error(t, notifier.Notify(context.Background(), sampleEvent()))
}

func TestNew_RequiresWebhookURL(t *testing.T) {
	_, err := New("", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
