package jira

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// Cursor tracks the updated watermark and the search offset within the
// current run's JQL result window.
type Cursor struct {
	// Since is the updated watermark from the previous completed run.
	Since time.Time `json:"since,omitempty"`

	// StartAt is the offset into the current result window, zero between runs.
	StartAt int `json:"start_at,omitempty"`

	// MaxSeen is the largest updated timestamp delivered so far this run.
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
