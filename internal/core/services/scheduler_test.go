package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/corvuslabs/ingestd/internal/clock"
	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driving"
)

type staticSources struct {
	list []domain.SourceInstance
}

func (s *staticSources) Sources() []domain.SourceInstance { return s.list }

// stubRunner records invocations and returns a canned outcome.
type stubRunner struct {
	mu      sync.Mutex
	order   []string
	cursors []domain.SyncCursor
	err     error
}

func (r *stubRunner) Run(_ context.Context, source domain.SourceInstance, cursor domain.SyncCursor) (*driving.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, source.ID())
	r.cursors = append(r.cursors, cursor)
	report := &driving.RunReport{
		Run:           domain.SyncRun{ID: "run", SourceID: source.ID()},
		FinalPosition: cursor.Position,
	}
	if r.err != nil {
		report.Run.Error = r.err.Error()
	}
	return report, r.err
}

func (r *stubRunner) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *stubRunner) acquiredCursors() []domain.SyncCursor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SyncCursor, len(r.cursors))
	copy(out, r.cursors)
	return out
}

type memRunStore struct {
	mu     sync.Mutex
	runs   []domain.SyncRun
	pruned []time.Time
}

func (s *memRunStore) RecordRun(_ context.Context, run *domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

func (s *memRunStore) ListRuns(_ context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SyncRun
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if sourceID == "" || s.runs[i].SourceID == sourceID {
			out = append(out, s.runs[i])
		}
	}
	return out, nil
}

func (s *memRunStore) PruneRuns(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruned = append(s.pruned, cutoff)
	return nil
}

func (s *memRunStore) recorded() []domain.SyncRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SyncRun, len(s.runs))
	copy(out, s.runs)
	return out
}

type memNotifier struct {
	mu     sync.Mutex
	events []domain.AlertEvent
}

func (n *memNotifier) Notify(_ context.Context, event domain.AlertEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *memNotifier) alerts() []domain.AlertEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.AlertEvent, len(n.events))
	copy(out, n.events)
	return out
}

type schedulerFixture struct {
	sources  *staticSources
	runner   *stubRunner
	cursors  *memCursorStore
	runs     *memRunStore
	notifier *memNotifier
	clk      *clock.Mock
	sched    *Scheduler
}

func newSchedulerFixture(t *testing.T, cfg domain.SchedulerSettings, sources ...domain.SourceInstance) *schedulerFixture {
	t.Helper()
	f := &schedulerFixture{
		sources:  &staticSources{list: sources},
		runner:   &stubRunner{},
		cursors:  newMemCursorStore(),
		runs:     &memRunStore{},
		notifier: &memNotifier{},
		clk:      clock.NewMock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.sched = NewScheduler(
		f.sources, f.runner, f.cursors, f.runs, f.notifier, nil,
		f.clk, zap.NewNop(), cfg,
	)
	return f
}

func source(typ domain.SourceType, name string) domain.SourceInstance {
	return domain.SourceInstance{
		Type:     typ,
		Name:     name,
		Enabled:  true,
		SyncMode: domain.SyncModeIncremental,
	}
}

func TestScheduler_TriggerSyncSucceeds(t *testing.T) {
	src := source(domain.SourceConfluence, "main")
	f := newSchedulerFixture(t, domain.DefaultSchedulerSettings(), src)

	err := f.sched.TriggerSync(context.Background(), src.ID())

	require.NoError(t, err)
	assert.Equal(t, []string{src.ID()}, f.runner.calls())

	stored := f.cursors.get(src.ID())
	assert.Equal(t, domain.CursorSucceeded, stored.Status)
	assert.True(t, stored.StartedAt.IsZero())
	assert.Equal(t, f.clk.Now(), stored.LastSuccessAt)
	assert.Equal(t, 0, stored.ConsecutiveFailures)
	assert.Len(t, f.runs.recorded(), 1)
}

func TestScheduler_TriggerSyncUnknownSource(t *testing.T) {
	f := newSchedulerFixture(t, domain.DefaultSchedulerSettings())

	err := f.sched.TriggerSync(context.Background(), "confluence/nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.runner.calls())
}

func TestScheduler_TriggerSyncDisabledSource(t *testing.T) {
	src := source(domain.SourceJira, "tickets")
	src.Enabled = false
	f := newSchedulerFixture(t, domain.DefaultSchedulerSettings(), src)

	err := f.sched.TriggerSync(context.Background(), src.ID())

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.runner.calls())
}

func TestScheduler_TriggerSyncConflictsWithActiveRun(t *testing.T) {
	src := source(domain.SourceGitLab, "infra")
	f := newSchedulerFixture(t, domain.DefaultSchedulerSettings(), src)
	f.cursors.set(runningCursor(src.ID(), "p3", f.clk.Now()))

	err := f.sched.TriggerSync(context.Background(), src.ID())

	assert.ErrorIs(t, err, domain.ErrCursorConflict)
	assert.Empty(t, f.runner.calls())
	assert.Equal(t, "p3", f.cursors.get(src.ID()).Position)
}

func TestScheduler_StaleLockIsOverridden(t *testing.T) {
	cfg := domain.DefaultSchedulerSettings()
	src := source(domain.SourceYDB, "events")
	f := newSchedulerFixture(t, cfg, src)
	stale := runningCursor(src.ID(), "p7", f.clk.Now().Add(-cfg.JobTimeout()-time.Minute))
	f.cursors.set(stale)

	err := f.sched.TriggerSync(context.Background(), src.ID())

	require.NoError(t, err)
	// The dead run counts as a failure before the new one acquires.
	acquired := f.runner.acquiredCursors()
	require.Len(t, acquired, 1)
	assert.Equal(t, 1, acquired[0].ConsecutiveFailures)
	assert.Equal(t, "p7", acquired[0].Position)
	assert.Equal(t, domain.CursorSucceeded, f.cursors.get(src.ID()).Status)
}

func TestScheduler_LockHeldExactlyJobTimeoutIsNotStale(t *testing.T) {
	cfg := domain.DefaultSchedulerSettings()
	src := source(domain.SourceYDB, "events")
	f := newSchedulerFixture(t, cfg, src)
	f.cursors.set(runningCursor(src.ID(), "p7", f.clk.Now().Add(-cfg.JobTimeout())))

	err := f.sched.TriggerSync(context.Background(), src.ID())

	assert.ErrorIs(t, err, domain.ErrCursorConflict)
}

func TestScheduler_FailureStreakAlertsAtThreshold(t *testing.T) {
	cfg := domain.DefaultSchedulerSettings()
	cfg.SyncFailureThreshold = 2
	src := source(domain.SourceClickHouse, "analytics")
	f := newSchedulerFixture(t, cfg, src)
	f.runner.err = errors.New("connector down")

	require.Error(t, f.sched.TriggerSync(context.Background(), src.ID()))
	require.NoError(t, f.sched.Stop())
	assert.Empty(t, f.notifier.alerts(), "below threshold must not alert")
	assert.Equal(t, 1, f.cursors.get(src.ID()).ConsecutiveFailures)

	require.Error(t, f.sched.TriggerSync(context.Background(), src.ID()))
	require.NoError(t, f.sched.Stop())

	alerts := f.notifier.alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, src.ID(), alerts[0].SourceID)
	assert.Equal(t, 2, alerts[0].ConsecutiveFailures)
	assert.Contains(t, alerts[0].LastError, "connector down")
	assert.Equal(t, domain.CursorFailed, f.cursors.get(src.ID()).Status)
}

func TestScheduler_SuccessResetsFailureStreak(t *testing.T) {
	src := source(domain.SourceConfluence, "main")
	f := newSchedulerFixture(t, domain.DefaultSchedulerSettings(), src)
	f.cursors.set(domain.SyncCursor{
		SourceID:            src.ID(),
		Position:            "p2",
		Status:              domain.CursorFailed,
		ConsecutiveFailures: 2,
	})

	require.NoError(t, f.sched.TriggerSync(context.Background(), src.ID()))

	assert.Equal(t, 0, f.cursors.get(src.ID()).ConsecutiveFailures)
}

func TestScheduler_SourceKeepsRunningPastThreshold(t *testing.T) {
	// The streak alert never disables a source.
	cfg := domain.DefaultSchedulerSettings()
	cfg.SyncFailureThreshold = 1
	src := source(domain.SourceJira, "tickets")
	f := newSchedulerFixture(t, cfg, src)
	f.runner.err = errors.New("still broken")

	for i := 0; i < 3; i++ {
		require.Error(t, f.sched.TriggerSync(context.Background(), src.ID()))
	}

	assert.Len(t, f.runner.calls(), 3)
	assert.Equal(t, 3, f.cursors.get(src.ID()).ConsecutiveFailures)
}

func TestScheduler_DispatchRunsSourcesInConfigOrder(t *testing.T) {
	cfg := domain.DefaultSchedulerSettings()
	cfg.MaxConcurrentSources = 1
	a := source(domain.SourceConfluence, "a")
	b := source(domain.SourceGitLab, "b")
	c := source(domain.SourceJira, "c")
	f := newSchedulerFixture(t, cfg, a, b, c)

	f.sched.dispatchDue(context.Background())
	f.sched.wg.Wait()

	assert.Equal(t, []string{a.ID(), b.ID(), c.ID()}, f.runner.calls())
}

func TestScheduler_DisabledSourcesAreNotDispatched(t *testing.T) {
	enabled := source(domain.SourceConfluence, "on")
	disabled := source(domain.SourceConfluence, "off")
	disabled.Enabled = false
	f := newSchedulerFixture(t, domain.DefaultSchedulerSettings(), enabled, disabled)

	f.sched.dispatchDue(context.Background())
	f.sched.wg.Wait()

	assert.Equal(t, []string{enabled.ID()}, f.runner.calls())
}

func TestScheduler_IntervalGatesRedispatch(t *testing.T) {
	cfg := domain.DefaultSchedulerSettings()
	src := source(domain.SourceLocalFiles, "docs")
	f := newSchedulerFixture(t, cfg, src)

	f.sched.dispatchDue(context.Background())
	f.sched.wg.Wait()
	f.sched.dispatchDue(context.Background())
	f.sched.wg.Wait()
	assert.Len(t, f.runner.calls(), 1, "interval not elapsed yet")

	f.clk.Advance(cfg.Interval())
	f.sched.dispatchDue(context.Background())
	f.sched.wg.Wait()
	assert.Len(t, f.runner.calls(), 2)
}

func TestScheduler_CronScheduleOverridesInterval(t *testing.T) {
	src := source(domain.SourceLocalFiles, "docs")
	src.Schedule = "* * * * *"
	f := newSchedulerFixture(t, domain.DefaultSchedulerSettings(), src)

	f.sched.dispatchDue(context.Background())
	f.sched.wg.Wait()
	f.sched.dispatchDue(context.Background())
	f.sched.wg.Wait()

	assert.Len(t, f.runner.calls(), 2, "an always-due schedule ignores the interval gate")
}

func TestScheduler_InvalidCronFallsBackToInterval(t *testing.T) {
	src := source(domain.SourceLocalFiles, "docs")
	src.Schedule = "not a cron expression"
	f := newSchedulerFixture(t, domain.DefaultSchedulerSettings(), src)

	f.sched.dispatchDue(context.Background())
	f.sched.wg.Wait()
	f.sched.dispatchDue(context.Background())
	f.sched.wg.Wait()

	assert.Len(t, f.runner.calls(), 1)
}

func TestScheduler_RunsArePruned(t *testing.T) {
	cfg := domain.DefaultSchedulerSettings()
	src := source(domain.SourceConfluence, "main")
	f := newSchedulerFixture(t, cfg, src)

	require.NoError(t, f.sched.TriggerSync(context.Background(), src.ID()))

	require.Len(t, f.runs.pruned, 1)
	assert.Equal(t, f.clk.Now().Add(-cfg.Retention()), f.runs.pruned[0])
}

func TestScheduler_StartStops(t *testing.T) {
	f := newSchedulerFixture(t, domain.DefaultSchedulerSettings())

	done := make(chan error, 1)
	go func() { done <- f.sched.Start(context.Background()) }()

	require.NoError(t, f.sched.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestScheduler_StartReturnsOnContextCancel(t *testing.T) {
	f := newSchedulerFixture(t, domain.DefaultSchedulerSettings())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.sched.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestScheduler_DispatchedRunRecordsFailure(t *testing.T) {
	src := source(domain.SourceGitLab, "infra")
	f := newSchedulerFixture(t, domain.DefaultSchedulerSettings(), src)
	f.runner.err = errors.New("boom")

	f.sched.dispatchDue(context.Background())
	f.sched.wg.Wait()

	runs := f.runs.recorded()
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Error, "boom")
	assert.Equal(t, domain.CursorFailed, f.cursors.get(src.ID()).Status)
}
