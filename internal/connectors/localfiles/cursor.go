package localfiles

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// Cursor tracks incremental progress through a directory tree. Between runs
// only Since matters; After and MaxSeen exist mid-run so pagination resumes
// deterministically within one walk.
type Cursor struct {
	// Since is the modification-time watermark: files at or before it were
	// already delivered by an earlier run.
	Since time.Time `json:"since,omitempty"`

	// After is the last path emitted in the current walk, empty between runs.
	After string `json:"after,omitempty"`

	// MaxSeen is the largest modification time delivered so far in the
	// current walk. It becomes Since when the walk completes.
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

// DecodeCursor deserializes a cursor position. An empty position yields a
// zero cursor, i.e. the first-ever run.
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
