// Package clock abstracts wall time so scheduler ticks, backoff delays and
// staleness checks are deterministic under test.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock provides the time operations the core needs.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until the context is cancelled, returning
	// the context error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error

	// Tick returns a channel delivering ticks roughly every d.
	// The returned stop function releases the ticker.
	Tick(d time.Duration) (<-chan time.Time, func())
}

// System is the wall-clock implementation used outside tests.
type System struct{}

var _ Clock = System{}

// Now returns time.Now.
func (System) Now() time.Time {
	return time.Now()
}

// Sleep waits with a timer so cancellation is honoured.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Tick wraps time.NewTicker.
func (System) Tick(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Mock is a manually advanced clock for tests.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []chan time.Time
	slept   []time.Duration
}

var _ Clock = (*Mock)(nil)

// NewMock creates a mock clock starting at the given time.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Sleep records the requested duration and returns immediately, honouring
// prior cancellation. Backoff tests assert on SleptDurations instead of
// waiting.
func (m *Mock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slept = append(m.slept, d)
	m.now = m.now.Add(d)
	return nil
}

// Tick returns a channel fed by Advance.
func (m *Mock) Tick(time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan time.Time, 64)
	m.tickers = append(m.tickers, ch)
	return ch, func() {}
}

// Advance moves the clock forward and delivers one tick to every ticker.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now
	tickers := make([]chan time.Time, len(m.tickers))
	copy(tickers, m.tickers)
	m.mu.Unlock()

	for _, ch := range tickers {
		select {
		case ch <- now:
		default:
		}
	}
}

// SleptDurations returns the durations passed to Sleep, in order.
func (m *Mock) SleptDurations() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.slept))
	copy(out, m.slept)
	return out
}
