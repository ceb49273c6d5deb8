// Package file loads the daemon configuration from a TOML file and keeps
// it fresh through a filesystem watcher. Secrets in the file may reference
// environment variables with ${VAR} syntax.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// Per-source fallbacks applied when a source omits the field.
const (
	defaultBatchSize      = 100
	defaultTimeoutSeconds = 30
)

// Config is the parsed configuration file.
type Config struct {
	Scheduler schedulerConfig `toml:"scheduler"`
	Content   contentConfig   `toml:"content"`
	Dedup     dedupConfig     `toml:"dedup"`
	Sources   []sourceConfig  `toml:"sources"`
}

type schedulerConfig struct {
	IntervalMinutes      int `toml:"interval_minutes"`
	MaxConcurrentSources int `toml:"max_concurrent_sources"`
	MaxRetries           int `toml:"max_retries"`
	RetryDelaySeconds    int `toml:"retry_delay_seconds"`
	JobTimeoutMinutes    int `toml:"job_timeout_minutes"`
	SyncFailureThreshold int `toml:"sync_failure_threshold"`
	RetentionDays        int `toml:"retention_days"`
}

type contentConfig struct {
	CleanHTML      *bool `toml:"clean_html"`
	MaxLength      *int  `toml:"max_length"`
	DetectLanguage bool  `toml:"detect_language"`
}

type dedupConfig struct {
	// Pointer so an explicit 0 (disable) is distinct from unset (default).
	SimilarityThreshold *float64 `toml:"similarity_threshold"`
}

type sourceConfig struct {
	Type           string            `toml:"type"`
	Name           string            `toml:"name"`
	Enabled        *bool             `toml:"enabled"`
	SyncMode       string            `toml:"sync_mode"`
	BatchSize      int               `toml:"batch_size"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	Schedule       string            `toml:"schedule"`
	SpaceFilter    string            `toml:"space_filter"`
	ProjectFilter  string            `toml:"project_filter"`
	TableFilter    string            `toml:"table_filter"`
	Credentials    map[string]string `toml:"credentials"`
	Options        map[string]string `toml:"options"`
}

// DefaultPath returns the configuration file location used when none is
// given: ~/.ingestd/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ingestd", "config.toml"), nil
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SchedulerSettings returns the scheduler knobs with defaults filled in for
// omitted fields.
func (c *Config) SchedulerSettings() domain.SchedulerSettings {
	s := domain.DefaultSchedulerSettings()
	if c.Scheduler.IntervalMinutes > 0 {
		s.IntervalMinutes = c.Scheduler.IntervalMinutes
	}
	if c.Scheduler.MaxConcurrentSources > 0 {
		s.MaxConcurrentSources = c.Scheduler.MaxConcurrentSources
	}
	if c.Scheduler.MaxRetries > 0 {
		s.MaxRetries = c.Scheduler.MaxRetries
	}
	if c.Scheduler.RetryDelaySeconds > 0 {
		s.RetryDelaySeconds = c.Scheduler.RetryDelaySeconds
	}
	if c.Scheduler.JobTimeoutMinutes > 0 {
		s.JobTimeoutMinutes = c.Scheduler.JobTimeoutMinutes
	}
	if c.Scheduler.SyncFailureThreshold > 0 {
		s.SyncFailureThreshold = c.Scheduler.SyncFailureThreshold
	}
	if c.Scheduler.RetentionDays > 0 {
		s.RetentionDays = c.Scheduler.RetentionDays
	}
	return s
}

// ContentPolicy returns the normalisation policy with defaults filled in.
func (c *Config) ContentPolicy() domain.ContentPolicy {
	p := domain.DefaultContentPolicy()
	if c.Content.CleanHTML != nil {
		p.CleanHTML = *c.Content.CleanHTML
	}
	if c.Content.MaxLength != nil {
		p.MaxLength = *c.Content.MaxLength
	}
	p.DetectLanguage = c.Content.DetectLanguage
	return p
}

// DedupSettings returns the near-duplicate detection settings.
func (c *Config) DedupSettings() domain.DedupSettings {
	s := domain.DefaultDedupSettings()
	if c.Dedup.SimilarityThreshold != nil {
		s.SimilarityThreshold = *c.Dedup.SimilarityThreshold
	}
	return s
}

// Instances builds the configured source instances in file order. Secret
// values containing ${VAR} references are expanded from the environment.
func (c *Config) Instances() []domain.SourceInstance {
	instances := make([]domain.SourceInstance, 0, len(c.Sources))
	for _, src := range c.Sources {
		instances = append(instances, src.instance())
	}
	return instances
}

func (s *sourceConfig) instance() domain.SourceInstance {
	inst := domain.SourceInstance{
		Type:           domain.SourceType(s.Type),
		Name:           s.Name,
		Enabled:        true,
		SyncMode:       domain.SyncModeIncremental,
		BatchSize:      s.BatchSize,
		TimeoutSeconds: s.TimeoutSeconds,
		Schedule:       s.Schedule,
		SpaceFilter:    s.SpaceFilter,
		ProjectFilter:  s.ProjectFilter,
		TableFilter:    s.TableFilter,
		Options:        s.Options,
	}
	if s.Enabled != nil {
		inst.Enabled = *s.Enabled
	}
	if s.SyncMode != "" {
		inst.SyncMode = domain.SyncMode(s.SyncMode)
	}
	if inst.BatchSize == 0 {
		inst.BatchSize = defaultBatchSize
	}
	if inst.TimeoutSeconds == 0 {
		inst.TimeoutSeconds = defaultTimeoutSeconds
	}
	if len(s.Credentials) > 0 {
		inst.Credentials = make(map[string]string, len(s.Credentials))
		for key, value := range s.Credentials {
			inst.Credentials[key] = os.ExpandEnv(value)
		}
	}
	return inst
}

func (c *Config) validate() error {
	if err := c.SchedulerSettings().Validate(); err != nil {
		return err
	}
	if err := c.DedupSettings().Validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for _, src := range c.Sources {
		inst := src.instance()
		if err := inst.Validate(); err != nil {
			return err
		}
		if _, dup := seen[inst.ID()]; dup {
			return fmt.Errorf("%w: duplicate source %s", domain.ErrInvalidInput, inst.ID())
		}
		seen[inst.ID()] = struct{}{}
	}
	return nil
}
