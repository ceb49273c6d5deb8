package file

import (
	"github.com/caarlos0/env/v11"
)

// Env holds daemon settings taken from the process environment. These are
// deployment concerns (paths, endpoints, credentials for the daemon's own
// backends), as opposed to the source inventory in the TOML file.
type Env struct {
	// ConfigPath overrides the configuration file location.
	ConfigPath string `env:"INGESTD_CONFIG"`

	// DataDir overrides where the state database lives.
	DataDir string `env:"INGESTD_DATA_DIR"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"INGESTD_LOG_LEVEL" envDefault:"info"`

	// RedisAddr is the Redis endpoint documents are streamed to.
	RedisAddr string `env:"INGESTD_REDIS_ADDR" envDefault:"localhost:6379"`

	// RedisPassword authenticates against Redis when set.
	RedisPassword string `env:"INGESTD_REDIS_PASSWORD"`

	// RedisStream overrides the default document stream name.
	RedisStream string `env:"INGESTD_REDIS_STREAM"`

	// RedisStreamMaxLen caps the stream length; zero leaves it unbounded.
	RedisStreamMaxLen int64 `env:"INGESTD_REDIS_STREAM_MAXLEN"`

	// SlackWebhookURL enables failure alerts when set.
	SlackWebhookURL string `env:"INGESTD_SLACK_WEBHOOK"`

	// SlackChannel overrides the webhook's default channel.
	SlackChannel string `env:"INGESTD_SLACK_CHANNEL"`
}

// ParseEnv reads the daemon environment settings.
func ParseEnv() (Env, error) {
	return env.ParseAs[Env]()
}
