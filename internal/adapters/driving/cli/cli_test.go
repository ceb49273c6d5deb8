package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

// stubScheduler implements driving.Scheduler for command tests.
type stubScheduler struct {
	triggered []string
	err       error
}

func (s *stubScheduler) Start(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }
func (s *stubScheduler) Stop() error                     { return nil }

func (s *stubScheduler) TriggerSync(_ context.Context, sourceID string) error {
	s.triggered = append(s.triggered, sourceID)
	return s.err
}

type stubSources struct {
	sources []domain.SourceInstance
}

func (s *stubSources) Sources() []domain.SourceInstance { return s.sources }

type stubCursorStore struct {
	cursors map[string]domain.SyncCursor
}

func (s *stubCursorStore) Load(_ context.Context, sourceID string) (domain.SyncCursor, error) {
	if cursor, ok := s.cursors[sourceID]; ok {
		return cursor, nil
	}
	return domain.NewCursor(sourceID), nil
}

func (s *stubCursorStore) CompareAndSwap(context.Context, string, domain.CursorStatus, domain.SyncCursor) (bool, error) {
	return false, nil
}

type stubRunStore struct {
	runs []domain.SyncRun
}

func (s *stubRunStore) RecordRun(_ context.Context, run *domain.SyncRun) error {
	s.runs = append(s.runs, *run)
	return nil
}

func (s *stubRunStore) ListRuns(_ context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	out := make([]domain.SyncRun, 0, len(s.runs))
	for _, run := range s.runs {
		if sourceID == "" || run.SourceID == sourceID {
			out = append(out, run)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRunStore) PruneRuns(context.Context, time.Time) error { return nil }

// injectApp swaps the package services for stubs and returns a restore func.
func injectApp(sched *stubScheduler, sources *stubSources, cursors *stubCursorStore, runs *stubRunStore) func() {
	oldSched, oldSources, oldCursors, oldRuns := schedulerSvc, sourcesSvc, cursorsSvc, runsSvc
	oldWatch, oldClose := watchConfig, closeApp

	schedulerSvc = sched
	if sources != nil {
		sourcesSvc = sources
	}
	if cursors != nil {
		cursorsSvc = cursors
	}
	if runs != nil {
		runsSvc = runs
	}
	watchConfig = nil
	closeApp = nil

	return func() {
		schedulerSvc, sourcesSvc, cursorsSvc, runsSvc = oldSched, oldSources, oldCursors, oldRuns
		watchConfig, closeApp = oldWatch, oldClose
	}
}

func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
