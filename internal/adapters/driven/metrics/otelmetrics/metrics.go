// Package otelmetrics emits pipeline measurements through OpenTelemetry.
// The caller owns the MeterProvider; with the default global provider all
// instruments are no-ops.
package otelmetrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

const scope = "github.com/corvuslabs/ingestd"

var _ driven.Metrics = (*Metrics)(nil)

// Metrics implements driven.Metrics on OpenTelemetry instruments.
type Metrics struct {
	itemsFetched  metric.Int64Counter
	itemsAccepted metric.Int64Counter
	itemsSkipped  metric.Int64Counter
	syncDuration  metric.Float64Histogram
	failureStreak metric.Int64Gauge
}

// New registers the pipeline instruments on the provider.
func New(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(scope)
	m := &Metrics{}

	var err error
	if m.itemsFetched, err = meter.Int64Counter("ingestd.items.fetched",
		metric.WithDescription("Raw items returned by connectors"),
		metric.WithUnit("{item}")); err != nil {
		return nil, fmt.Errorf("register items.fetched: %w", err)
	}
	if m.itemsAccepted, err = meter.Int64Counter("ingestd.items.accepted",
		metric.WithDescription("Documents forwarded downstream"),
		metric.WithUnit("{item}")); err != nil {
		return nil, fmt.Errorf("register items.accepted: %w", err)
	}
	if m.itemsSkipped, err = meter.Int64Counter("ingestd.items.skipped",
		metric.WithDescription("Items dropped as empty, unchanged or near-duplicate"),
		metric.WithUnit("{item}")); err != nil {
		return nil, fmt.Errorf("register items.skipped: %w", err)
	}
	if m.syncDuration, err = meter.Float64Histogram("ingestd.sync.duration",
		metric.WithDescription("Wall time of finished sync runs"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("register sync.duration: %w", err)
	}
	if m.failureStreak, err = meter.Int64Gauge("ingestd.sync.consecutive_failures",
		metric.WithDescription("Current failure streak per source")); err != nil {
		return nil, fmt.Errorf("register sync.consecutive_failures: %w", err)
	}
	return m, nil
}

func sourceAttr(sourceID string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("source.id", sourceID))
}

func (m *Metrics) ItemsFetched(ctx context.Context, sourceID string, n int) {
	m.itemsFetched.Add(ctx, int64(n), sourceAttr(sourceID))
}

func (m *Metrics) ItemsAccepted(ctx context.Context, sourceID string, n int) {
	m.itemsAccepted.Add(ctx, int64(n), sourceAttr(sourceID))
}

func (m *Metrics) ItemsSkipped(ctx context.Context, sourceID string, n int) {
	m.itemsSkipped.Add(ctx, int64(n), sourceAttr(sourceID))
}

func (m *Metrics) SyncDuration(ctx context.Context, sourceID string, d time.Duration) {
	m.syncDuration.Record(ctx, d.Seconds(), sourceAttr(sourceID))
}

func (m *Metrics) ConsecutiveFailures(ctx context.Context, sourceID string, n int) {
	m.failureStreak.Record(ctx, int64(n), sourceAttr(sourceID))
}
