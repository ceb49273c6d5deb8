package gitlab

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// Phases of one sync run. Issues page through first, then merge requests.
const (
	PhaseIssues        = "issues"
	PhaseMergeRequests = "merge_requests"
)

// Cursor tracks the updated-after watermark plus the phase and page within
// the current run.
type Cursor struct {
	// Since is the updated-after watermark from the previous completed run.
	Since time.Time `json:"since,omitempty"`

	// Phase is the content type currently being paged, empty between runs.
	Phase string `json:"phase,omitempty"`

	// Page is the next API page within the phase.
	Page int `json:"page,omitempty"`

	// MaxSeen is the largest updated-at delivered so far this run.
	MaxSeen time.Time `json:"max_seen,omitempty"`
}

// Encode serializes the cursor to a base64-encoded JSON string.
func (c *Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserializes a cursor position. Empty means first run.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return &Cursor{}, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.Fatal(err)
	}
	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, domain.Fatal(err)
	}
	return &cursor, nil
}
