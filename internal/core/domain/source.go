package domain

import (
	"fmt"
	"time"
)

// SourceType identifies which connector implementation serves a source.
type SourceType string

// Supported source types.
const (
	SourceConfluence SourceType = "confluence"
	SourceGitLab     SourceType = "gitlab"
	SourceJira       SourceType = "jira"
	SourceYDB        SourceType = "ydb"
	SourceClickHouse SourceType = "clickhouse"
	SourceLocalFiles SourceType = "local_files"
)

// IsValid returns true if the source type is recognised.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceConfluence, SourceGitLab, SourceJira, SourceYDB, SourceClickHouse, SourceLocalFiles:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t SourceType) String() string {
	return string(t)
}

// SyncMode controls whether a source resumes from its cursor or starts over.
type SyncMode string

const (
	// SyncModeIncremental resumes from the persisted cursor position.
	SyncModeIncremental SyncMode = "incremental"

	// SyncModeFull ignores the cursor and re-reads the source each run.
	SyncModeFull SyncMode = "full"
)

// IsValid returns true if the sync mode is recognised.
func (m SyncMode) IsValid() bool {
	return m == SyncModeIncremental || m == SyncModeFull
}

// SourceInstance is one configured connection to an external system.
// Instances are built from configuration at startup, validated once, and
// treated as immutable for the duration of a run. Hot reload swaps the
// whole set between runs, never mid-run.
type SourceInstance struct {
	// Type selects the connector implementation.
	Type SourceType

	// Name distinguishes instances of the same type (e.g. "main", "prod").
	Name string

	// Enabled controls whether the scheduler dispatches this source.
	Enabled bool

	// SyncMode is incremental or full.
	SyncMode SyncMode

	// BatchSize bounds the number of items per connector call.
	BatchSize int

	// TimeoutSeconds bounds each underlying network call, not the whole batch.
	TimeoutSeconds int

	// Schedule is an optional cron expression overriding the global interval.
	Schedule string

	// SpaceFilter scopes Confluence syncs to one space key.
	SpaceFilter string

	// ProjectFilter scopes GitLab/Jira syncs to a project path or key.
	ProjectFilter string

	// TableFilter names the table to scan for database-backed sources.
	TableFilter string

	// Credentials is the opaque secret bundle the connector needs
	// (base URLs, tokens, DSNs). Keys are connector-specific.
	Credentials map[string]string

	// Options carries remaining connector-specific settings
	// (e.g. last-modified column name, file extensions).
	Options map[string]string
}

// ID returns the stable source instance identifier, unique across the system.
func (s *SourceInstance) ID() string {
	return string(s.Type) + "/" + s.Name
}

// Timeout returns the per-call network timeout as a duration.
func (s *SourceInstance) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Credential returns a credential value, or empty string if unset.
func (s *SourceInstance) Credential(key string) string {
	if s.Credentials == nil {
		return ""
	}
	return s.Credentials[key]
}

// Option returns a connector option, or the fallback if unset.
func (s *SourceInstance) Option(key, fallback string) string {
	if v, ok := s.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Validate checks the instance is well-formed. Called at configuration
// load; violations are fatal to startup.
func (s *SourceInstance) Validate() error {
	if !s.Type.IsValid() {
		return fmt.Errorf("%w: unknown source type %q", ErrInvalidInput, s.Type)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: source of type %q has no name", ErrInvalidInput, s.Type)
	}
	if !s.SyncMode.IsValid() {
		return fmt.Errorf("%w: source %s has invalid sync_mode %q", ErrInvalidInput, s.ID(), s.SyncMode)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("%w: source %s has non-positive batch_size", ErrInvalidInput, s.ID())
	}
	if s.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: source %s has non-positive timeout_seconds", ErrInvalidInput, s.ID())
	}
	return nil
}
