package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corvuslabs/ingestd/internal/clock"
	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
	"github.com/corvuslabs/ingestd/internal/core/ports/driving"
	"github.com/corvuslabs/ingestd/internal/dedup"
)

// Ensure Runner implements the interface.
var _ driving.SyncRunner = (*Runner)(nil)

// Runner executes the per-source sync pipeline: fetch a batch, normalise,
// classify against the dedup index, hand accepted documents downstream,
// then advance the cursor. The cursor only moves past a batch after the
// ingest boundary acknowledged it, so a crash costs at most the in-flight
// batch.
type Runner struct {
	factory    driven.ConnectorFactory
	cursors    driven.CursorStore
	hashes     driven.HashIndex
	normalizer driven.Normalizer
	ingestor   driven.Ingestor
	metrics    driven.Metrics
	clk        clock.Clock
	log        *zap.Logger
	settings   domain.SchedulerSettings
	dedupCfg   domain.DedupSettings
}

// NewRunner creates a sync runner.
func NewRunner(
	factory driven.ConnectorFactory,
	cursors driven.CursorStore,
	hashes driven.HashIndex,
	normalizer driven.Normalizer,
	ingestor driven.Ingestor,
	metrics driven.Metrics,
	clk clock.Clock,
	log *zap.Logger,
	settings domain.SchedulerSettings,
	dedupCfg domain.DedupSettings,
) *Runner {
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &Runner{
		factory:    factory,
		cursors:    cursors,
		hashes:     hashes,
		normalizer: normalizer,
		ingestor:   ingestor,
		metrics:    metrics,
		clk:        clk,
		log:        log,
		settings:   settings,
		dedupCfg:   dedupCfg,
	}
}

// Run syncs one source instance. The caller must already hold the running
// cursor; the passed cursor is the acquired state. The returned report is
// never nil, and its FinalPosition is the last position whose batch was
// durably accepted downstream.
func (r *Runner) Run(ctx context.Context, source domain.SourceInstance, cursor domain.SyncCursor) (*driving.RunReport, error) {
	sourceID := source.ID()
	report := &driving.RunReport{
		Run: domain.SyncRun{
			ID:        uuid.NewString(),
			SourceID:  sourceID,
			StartedAt: r.clk.Now(),
		},
		FinalPosition: cursor.Position,
	}

	position := cursor.Position
	if source.SyncMode == domain.SyncModeFull {
		// Full mode re-reads from the beginning every run.
		position = ""
	}

	connector, err := r.factory.Create(source)
	if err != nil {
		return r.finalize(report, fmt.Errorf("create connector: %w", err))
	}
	defer connector.Close()

	filter := dedup.NewFilter(r.hashes, dedup.Jaccard{}, r.dedupCfg.SimilarityThreshold, sourceID)

	log := r.log.With(zap.String("source", sourceID), zap.String("run", report.Run.ID))
	log.Info("sync started", zap.String("position", position))

	for {
		batch, err := r.fetchWithRetry(ctx, connector, source, position, log)
		if err != nil {
			return r.finalize(report, err)
		}

		report.Run.ItemsFetched += len(batch.Items)
		r.metrics.ItemsFetched(ctx, sourceID, len(batch.Items))

		accepted, skipped := r.classifyBatch(ctx, filter, source, batch.Items, log)
		report.Run.ItemsSkipped += skipped
		r.metrics.ItemsSkipped(ctx, sourceID, skipped)

		if len(accepted) > 0 {
			if err := r.ingestWithRetry(ctx, accepted, log); err != nil {
				// Not acked: the cursor stays at the previous batch
				// so the next run replays this one.
				return r.finalize(report, fmt.Errorf("ingest batch: %w", err))
			}
			for i := range accepted {
				if err := r.commit(ctx, filter, &accepted[i]); err != nil {
					return r.finalize(report, err)
				}
			}
			report.Run.ItemsAccepted += len(accepted)
			r.metrics.ItemsAccepted(ctx, sourceID, len(accepted))
		}

		if err := r.advance(ctx, cursor, batch.NextPosition); err != nil {
			return r.finalize(report, err)
		}
		report.FinalPosition = batch.NextPosition
		position = batch.NextPosition

		if !batch.HasMore {
			break
		}
	}

	report.Run.EndedAt = r.clk.Now()
	log.Info("sync finished",
		zap.Int("fetched", report.Run.ItemsFetched),
		zap.Int("accepted", report.Run.ItemsAccepted),
		zap.Int("skipped", report.Run.ItemsSkipped),
		zap.Duration("took", report.Run.Duration()))
	return report, nil
}

// classifyBatch normalises and classifies one batch, returning the
// documents to forward and the number of items skipped. Normaliser
// failures are skips, never run failures.
func (r *Runner) classifyBatch(
	ctx context.Context,
	filter *dedup.Filter,
	source domain.SourceInstance,
	items []domain.RawItem,
	log *zap.Logger,
) (accepted []domain.Document, skipped int) {
	for _, item := range items {
		doc, err := r.normalizer.Normalize(item, source)
		if err != nil {
			skipped++
			if errors.Is(err, domain.ErrEmptyContent) {
				log.Debug("skipping empty item", zap.String("external_id", item.ExternalID))
			} else {
				log.Warn("normalise failed, item skipped",
					zap.String("external_id", item.ExternalID), zap.Error(err))
			}
			continue
		}

		decision, err := filter.Classify(ctx, doc)
		if err != nil {
			skipped++
			log.Warn("dedup classify failed, item skipped",
				zap.String("doc_id", doc.DocID), zap.Error(err))
			continue
		}

		if !decision.Accepted() {
			skipped++
			log.Debug("skipping item", zap.String("doc_id", doc.DocID),
				zap.String("decision", string(decision)))
			continue
		}

		accepted = append(accepted, *doc)
	}
	return accepted, skipped
}

// commit records an accepted document's hash after the ingest ack.
func (r *Runner) commit(ctx context.Context, filter *dedup.Filter, doc *domain.Document) error {
	if err := filter.Commit(ctx, doc); err != nil {
		return fmt.Errorf("commit hash for %s: %w", doc.DocID, err)
	}
	return nil
}

// advance moves the running cursor's position to the next batch boundary.
// Losing the compare-and-swap here means the staleness override revoked
// this run's lock; the run aborts rather than write over the new owner.
func (r *Runner) advance(ctx context.Context, cursor domain.SyncCursor, nextPosition string) error {
	next := cursor
	next.Status = domain.CursorRunning
	next.Position = nextPosition

	ok, err := r.cursors.CompareAndSwap(ctx, cursor.SourceID, domain.CursorRunning, next)
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	if !ok {
		return fmt.Errorf("advance cursor: %w", domain.ErrCursorConflict)
	}
	return nil
}

// fetchWithRetry calls the connector, retrying transient failures up to
// MaxRetries with exponential backoff. Fatal errors abort immediately.
func (r *Runner) fetchWithRetry(
	ctx context.Context,
	connector driven.Connector,
	source domain.SourceInstance,
	position string,
	log *zap.Logger,
) (*driven.Batch, error) {
	delay := r.settings.RetryDelay()

	for attempt := 0; ; attempt++ {
		batch, err := connector.FetchBatch(ctx, source, position)
		if err == nil {
			return batch, nil
		}
		if !domain.IsTransient(err) {
			return nil, fmt.Errorf("fetch batch: %w", err)
		}
		if attempt >= r.settings.MaxRetries {
			return nil, fmt.Errorf("fetch batch: retries exhausted after %d attempts: %w", attempt+1, err)
		}

		log.Warn("transient fetch error, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := r.clk.Sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}
}

// ingestWithRetry forwards documents downstream under the same retry
// policy as fetches.
func (r *Runner) ingestWithRetry(ctx context.Context, docs []domain.Document, log *zap.Logger) error {
	delay := r.settings.RetryDelay()

	for attempt := 0; ; attempt++ {
		err := r.ingestor.Ingest(ctx, docs)
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) {
			return err
		}
		if attempt >= r.settings.MaxRetries {
			return fmt.Errorf("retries exhausted after %d attempts: %w", attempt+1, err)
		}

		log.Warn("transient ingest error, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := r.clk.Sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

// finalize stamps the report with the failure and end time.
func (r *Runner) finalize(report *driving.RunReport, err error) (*driving.RunReport, error) {
	report.Run.EndedAt = r.clk.Now()
	report.Run.Error = err.Error()
	return report, err
}
