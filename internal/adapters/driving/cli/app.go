package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	configfile "github.com/corvuslabs/ingestd/internal/adapters/driven/config/file"
	"github.com/corvuslabs/ingestd/internal/adapters/driven/ingest/redisstream"
	"github.com/corvuslabs/ingestd/internal/adapters/driven/metrics/otelmetrics"
	"github.com/corvuslabs/ingestd/internal/adapters/driven/notify/slack"
	"github.com/corvuslabs/ingestd/internal/adapters/driven/storage/sqlite"
	"github.com/corvuslabs/ingestd/internal/clock"
	"github.com/corvuslabs/ingestd/internal/connectors"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
	"github.com/corvuslabs/ingestd/internal/core/ports/driving"
	"github.com/corvuslabs/ingestd/internal/core/services"
	"github.com/corvuslabs/ingestd/internal/logger"
	"github.com/corvuslabs/ingestd/internal/normalize"
)

// Services the commands run against. ensureApp wires them from the real
// configuration; tests inject fakes directly.
var (
	schedulerSvc driving.Scheduler
	sourcesSvc   driven.SourceProvider
	cursorsSvc   driven.CursorStore
	runsSvc      driven.RunStore

	watchConfig func(ctx context.Context)
	closeApp    func()
)

// ensureApp builds the full service graph once per process.
func ensureApp() error {
	if schedulerSvc != nil {
		return nil
	}

	env, err := configfile.ParseEnv()
	if err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	path := flagConfig
	if path == "" {
		path = env.ConfigPath
	}
	if path == "" {
		if path, err = configfile.DefaultPath(); err != nil {
			return err
		}
	}

	log, err := logger.New(logger.Options{Level: env.LogLevel, Encoding: flagLogEncoding})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	provider, cfg, err := configfile.NewProvider(path, log)
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(env.DataDir)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     env.RedisAddr,
		Password: env.RedisPassword,
	})
	ingestor := redisstream.New(rdb, env.RedisStream, env.RedisStreamMaxLen)

	var notifier driven.Notifier
	if env.SlackWebhookURL != "" {
		n, err := slack.New(env.SlackWebhookURL, env.SlackChannel)
		if err != nil {
			store.Close()
			rdb.Close()
			return err
		}
		notifier = n
	}

	meters, err := otelmetrics.New(otel.GetMeterProvider())
	if err != nil {
		store.Close()
		rdb.Close()
		return err
	}

	settings := cfg.SchedulerSettings()
	runner := services.NewRunner(
		connectors.NewFactory(),
		store.CursorStore(),
		store.HashIndex(),
		normalize.New(cfg.ContentPolicy()),
		ingestor,
		meters,
		clock.System{},
		log,
		settings,
		cfg.DedupSettings(),
	)

	schedulerSvc = services.NewScheduler(
		provider,
		runner,
		store.CursorStore(),
		store.RunStore(),
		notifier,
		meters,
		clock.System{},
		log,
		settings,
	)
	sourcesSvc = provider
	cursorsSvc = store.CursorStore()
	runsSvc = store.RunStore()
	watchConfig = func(ctx context.Context) {
		if err := provider.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Warn("config watcher exited")
		}
	}
	closeApp = func() {
		store.Close()
		rdb.Close()
		_ = log.Sync()
	}
	return nil
}
