package domain

import (
	"fmt"
	"time"
)

// SchedulerSettings holds global scheduling, retry and retention knobs.
type SchedulerSettings struct {
	// IntervalMinutes is how often every enabled source is considered
	// for a new run, unless it carries its own cron schedule.
	IntervalMinutes int

	// MaxConcurrentSources caps the number of sources syncing at once.
	MaxConcurrentSources int

	// MaxRetries bounds retries of a single batch after transient errors.
	MaxRetries int

	// RetryDelaySeconds is the base backoff delay; attempt n waits
	// delay * 2^n.
	RetryDelaySeconds int

	// JobTimeoutMinutes cancels a run exceeding this, and is also the
	// staleness bound for force-resetting a stuck running cursor.
	JobTimeoutMinutes int

	// SyncFailureThreshold is the consecutive-failure count that raises
	// an alert. Sources are never auto-disabled.
	SyncFailureThreshold int

	// RetentionDays bounds the run history kept per source.
	RetentionDays int
}

// DefaultSchedulerSettings returns the documented defaults.
func DefaultSchedulerSettings() SchedulerSettings {
	return SchedulerSettings{
		IntervalMinutes:      15,
		MaxConcurrentSources: 3,
		MaxRetries:           3,
		RetryDelaySeconds:    5,
		JobTimeoutMinutes:    30,
		SyncFailureThreshold: 3,
		RetentionDays:        14,
	}
}

// Interval returns the scheduling interval as a duration.
func (s SchedulerSettings) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// RetryDelay returns the base backoff delay as a duration.
func (s SchedulerSettings) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelaySeconds) * time.Second
}

// JobTimeout returns the per-run timeout as a duration.
func (s SchedulerSettings) JobTimeout() time.Duration {
	return time.Duration(s.JobTimeoutMinutes) * time.Minute
}

// Retention returns the run history retention as a duration.
func (s SchedulerSettings) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// Validate checks the settings are usable. Violations are fatal at startup.
func (s SchedulerSettings) Validate() error {
	if s.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: interval_minutes must be positive", ErrInvalidInput)
	}
	if s.MaxConcurrentSources <= 0 {
		return fmt.Errorf("%w: max_concurrent_sources must be positive", ErrInvalidInput)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidInput)
	}
	if s.RetryDelaySeconds <= 0 {
		return fmt.Errorf("%w: retry_delay_seconds must be positive", ErrInvalidInput)
	}
	if s.JobTimeoutMinutes <= 0 {
		return fmt.Errorf("%w: job_timeout_minutes must be positive", ErrInvalidInput)
	}
	return nil
}

// ContentPolicy controls how raw items are normalised.
type ContentPolicy struct {
	// CleanHTML strips markup from item bodies.
	CleanHTML bool

	// MaxLength truncates bodies beyond this rune count. Zero disables
	// truncation.
	MaxLength int

	// DetectLanguage records the detected language in document metadata.
	DetectLanguage bool
}

// DefaultContentPolicy returns the policy used when none is configured.
func DefaultContentPolicy() ContentPolicy {
	return ContentPolicy{
		CleanHTML: true,
		MaxLength: 100_000,
	}
}

// DedupSettings controls near-duplicate detection.
type DedupSettings struct {
	// SimilarityThreshold is the body similarity (0..1] above which a new
	// document is reclassified as a near-duplicate. Zero disables the check.
	SimilarityThreshold float64
}

// DefaultDedupSettings returns the settings used when none are configured.
func DefaultDedupSettings() DedupSettings {
	return DedupSettings{SimilarityThreshold: 0.95}
}

// Validate checks the dedup settings.
func (d DedupSettings) Validate() error {
	if d.SimilarityThreshold < 0 || d.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be within [0,1]", ErrInvalidInput)
	}
	return nil
}
