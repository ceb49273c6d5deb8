package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"

	"github.com/corvuslabs/ingestd/internal/clock"
	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
	"github.com/corvuslabs/ingestd/internal/core/ports/driving"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// dueCheckInterval is how often the loop re-evaluates which sources are due.
const dueCheckInterval = time.Minute

// Scheduler owns the periodic sync loop. Every minute it walks the
// configured sources in order and dispatches the due ones through a
// semaphore of MaxConcurrentSources slots, so dispatch order is the config
// order and excess sources wait their turn. Per-source mutual exclusion is
// the cursor's job, not the scheduler's: a dispatch that loses the
// compare-and-swap simply yields.
type Scheduler struct {
	sources  driven.SourceProvider
	runner   driving.SyncRunner
	cursors  driven.CursorStore
	runs     driven.RunStore
	notifier driven.Notifier
	metrics  driven.Metrics
	clk      clock.Clock
	log      *zap.Logger
	cfg      domain.SchedulerSettings
	gron     *gronx.Gronx

	sem      chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}

	mu          sync.Mutex
	lastAttempt map[string]time.Time
}

// NewScheduler creates a scheduler. Notifier and metrics may be nil.
func NewScheduler(
	sources driven.SourceProvider,
	runner driving.SyncRunner,
	cursors driven.CursorStore,
	runs driven.RunStore,
	notifier driven.Notifier,
	metrics driven.Metrics,
	clk clock.Clock,
	log *zap.Logger,
	cfg domain.SchedulerSettings,
) *Scheduler {
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &Scheduler{
		sources:     sources,
		runner:      runner,
		cursors:     cursors,
		runs:        runs,
		notifier:    notifier,
		metrics:     metrics,
		clk:         clk,
		log:         log,
		cfg:         cfg,
		gron:        gronx.New(),
		sem:         make(chan struct{}, cfg.MaxConcurrentSources),
		stopCh:      make(chan struct{}),
		lastAttempt: make(map[string]time.Time),
	}
}

// Start runs the scheduling loop until the context is cancelled or Stop is
// called. Sources due at startup are dispatched immediately, without
// waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info("scheduler started",
		zap.Duration("interval", s.cfg.Interval()),
		zap.Int("max_concurrent", s.cfg.MaxConcurrentSources))

	ticks, stop := s.clk.Tick(dueCheckInterval)
	defer stop()

	s.dispatchDue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info("scheduler stopped", zap.String("reason", "context cancelled"))
			return ctx.Err()
		case <-s.stopCh:
			s.wg.Wait()
			s.log.Info("scheduler stopped")
			return nil
		case <-ticks:
			s.dispatchDue(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for in-flight runs to finish.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	return nil
}

// TriggerSync runs one source immediately and synchronously. It obeys the
// same concurrency cap and cursor lock as periodic runs.
func (s *Scheduler) TriggerSync(ctx context.Context, sourceID string) error {
	source, ok := s.findSource(sourceID)
	if !ok {
		return fmt.Errorf("source %q: %w", sourceID, domain.ErrNotFound)
	}
	if !source.Enabled {
		return fmt.Errorf("source %q is disabled: %w", sourceID, domain.ErrInvalidInput)
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	s.markAttempt(sourceID)

	cursor, err := s.acquire(ctx, source)
	if err != nil {
		return err
	}
	return s.execute(ctx, source, cursor)
}

// dispatchDue walks sources in configuration order and starts a run for
// each due one. Acquiring a semaphore slot blocks, which is what keeps
// dispatch first-in-first-out when more sources are due than slots.
func (s *Scheduler) dispatchDue(ctx context.Context) {
	for _, source := range s.sources.Sources() {
		if !source.Enabled {
			continue
		}
		if !s.due(source) {
			continue
		}

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}

		s.markAttempt(source.ID())

		s.wg.Add(1)
		go func(source domain.SourceInstance) {
			defer s.wg.Done()
			defer func() { <-s.sem }()

			cursor, err := s.acquire(ctx, source)
			if err != nil {
				s.log.Debug("skipping dispatch", zap.String("source", source.ID()), zap.Error(err))
				return
			}
			if err := s.execute(ctx, source, cursor); err != nil {
				s.log.Warn("sync run failed", zap.String("source", source.ID()), zap.Error(err))
			}
		}(source)
	}
}

// due reports whether a source should run now. A cron schedule on the
// source overrides the global interval; an invalid expression falls back
// to the interval so a config typo degrades instead of silencing a source.
func (s *Scheduler) due(source domain.SourceInstance) bool {
	now := s.clk.Now()

	if source.Schedule != "" {
		ok, err := s.gron.IsDue(source.Schedule, now)
		if err == nil {
			return ok
		}
		s.log.Warn("invalid cron schedule, using interval",
			zap.String("source", source.ID()),
			zap.String("schedule", source.Schedule),
			zap.Error(err))
	}

	s.mu.Lock()
	last, seen := s.lastAttempt[source.ID()]
	s.mu.Unlock()
	if !seen {
		return true
	}
	return now.Sub(last) >= s.cfg.Interval()
}

func (s *Scheduler) markAttempt(sourceID string) {
	s.mu.Lock()
	s.lastAttempt[sourceID] = s.clk.Now()
	s.mu.Unlock()
}

func (s *Scheduler) findSource(sourceID string) (domain.SourceInstance, bool) {
	for _, source := range s.sources.Sources() {
		if source.ID() == sourceID {
			return source, true
		}
	}
	return domain.SourceInstance{}, false
}

// acquire takes the cursor lock for a run. A cursor already running is a
// conflict unless it has been held past the job timeout, in which case the
// dead run is recorded as failed and the lock is taken over.
func (s *Scheduler) acquire(ctx context.Context, source domain.SourceInstance) (domain.SyncCursor, error) {
	sourceID := source.ID()

	cursor, err := s.cursors.Load(ctx, sourceID)
	if err != nil {
		return domain.SyncCursor{}, fmt.Errorf("load cursor: %w", err)
	}

	if cursor.Status == domain.CursorRunning {
		if !cursor.Stale(s.clk.Now(), s.cfg.JobTimeout()) {
			return domain.SyncCursor{}, fmt.Errorf("source %q: %w", sourceID, domain.ErrCursorConflict)
		}

		s.log.Warn("overriding stale cursor",
			zap.String("source", sourceID),
			zap.Time("started_at", cursor.StartedAt))

		failed := cursor
		failed.Status = domain.CursorFailed
		failed.StartedAt = time.Time{}
		failed.ConsecutiveFailures++
		ok, err := s.cursors.CompareAndSwap(ctx, sourceID, domain.CursorRunning, failed)
		if err != nil {
			return domain.SyncCursor{}, fmt.Errorf("reset stale cursor: %w", err)
		}
		if !ok {
			// The dead run finalised after all, or another scheduler won.
			return domain.SyncCursor{}, fmt.Errorf("source %q: %w", sourceID, domain.ErrCursorConflict)
		}
		cursor = failed
	}

	next := cursor
	next.Status = domain.CursorRunning
	next.StartedAt = s.clk.Now()
	ok, err := s.cursors.CompareAndSwap(ctx, sourceID, cursor.Status, next)
	if err != nil {
		return domain.SyncCursor{}, fmt.Errorf("acquire cursor: %w", err)
	}
	if !ok {
		return domain.SyncCursor{}, fmt.Errorf("source %q: %w", sourceID, domain.ErrCursorConflict)
	}
	return next, nil
}

// execute runs the pipeline for an acquired cursor and finalises the
// outcome. The run itself is bounded by the job timeout; finalisation is
// not, so a cancelled parent context cannot leave a cursor running.
func (s *Scheduler) execute(ctx context.Context, source domain.SourceInstance, cursor domain.SyncCursor) error {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout())
	defer cancel()

	report, runErr := s.runner.Run(runCtx, source, cursor)
	s.finalizeRun(context.WithoutCancel(ctx), source, cursor, report, runErr)
	return runErr
}

// finalizeRun releases the cursor lock into a terminal state, records the
// run, updates metrics and raises the failure-streak alert when warranted.
func (s *Scheduler) finalizeRun(
	ctx context.Context,
	source domain.SourceInstance,
	acquired domain.SyncCursor,
	report *driving.RunReport,
	runErr error,
) {
	sourceID := source.ID()
	now := s.clk.Now()

	next := acquired
	next.Position = report.FinalPosition
	next.StartedAt = time.Time{}
	if runErr == nil {
		next.Status = domain.CursorSucceeded
		next.LastSuccessAt = now
		next.ConsecutiveFailures = 0
	} else {
		next.Status = domain.CursorFailed
		next.ConsecutiveFailures = acquired.ConsecutiveFailures + 1
	}

	ok, err := s.cursors.CompareAndSwap(ctx, sourceID, domain.CursorRunning, next)
	if err != nil {
		s.log.Error("finalize cursor", zap.String("source", sourceID), zap.Error(err))
	} else if !ok {
		// The staleness override revoked this run's lock mid-flight. The
		// new owner's cursor state wins.
		s.log.Warn("cursor lock lost before finalize", zap.String("source", sourceID))
	}

	if err := s.runs.RecordRun(ctx, &report.Run); err != nil {
		s.log.Error("record run", zap.String("source", sourceID), zap.Error(err))
	}
	if err := s.runs.PruneRuns(ctx, now.Add(-s.cfg.Retention())); err != nil {
		s.log.Error("prune runs", zap.String("source", sourceID), zap.Error(err))
	}

	s.metrics.SyncDuration(ctx, sourceID, report.Run.Duration())
	s.metrics.ConsecutiveFailures(ctx, sourceID, next.ConsecutiveFailures)

	if runErr != nil && next.ConsecutiveFailures >= s.cfg.SyncFailureThreshold {
		s.alert(ctx, domain.AlertEvent{
			SourceID:            sourceID,
			ConsecutiveFailures: next.ConsecutiveFailures,
			LastError:           runErr.Error(),
			At:                  now,
		})
	}
}

// alert notifies asynchronously. Notification failures are logged and never
// affect sync state; the source keeps its schedule regardless of streak.
func (s *Scheduler) alert(ctx context.Context, event domain.AlertEvent) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.log.Error("alert notification failed",
				zap.String("source", event.SourceID), zap.Error(err))
		}
	}()
}
