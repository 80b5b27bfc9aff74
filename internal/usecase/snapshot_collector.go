package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	drepo "FlipScan/internal/domain/repository"
	mid "FlipScan/internal/middleware"
	"FlipScan/pkg/logger"
)

// SnapshotCollector pulls the daily market dump on a schedule and feeds it
// through the ingest pipeline.
type SnapshotCollector struct {
	source   drepo.SnapshotSource
	proc     *SnapshotProcessor
	pipe     *mid.IngestPipeline
	metrics  drepo.Metrics
	log      *logger.Logger
	schedule string

	cron *cron.Cron
}

// NewSnapshotCollector creates a new SnapshotCollector instance. schedule is
// a standard cron expression, e.g. "30 0 * * *" for 00:30 daily.
func NewSnapshotCollector(
	source drepo.SnapshotSource,
	proc *SnapshotProcessor,
	pipe *mid.IngestPipeline,
	metrics drepo.Metrics,
	log *logger.Logger,
	schedule string,
) *SnapshotCollector {
	return &SnapshotCollector{
		source:   source,
		proc:     proc,
		pipe:     pipe,
		metrics:  metrics,
		log:      log,
		schedule: schedule,
	}
}

// Start schedules the daily collection and launches the pipeline flusher.
func (c *SnapshotCollector) Start(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}

	c.cron = cron.New()
	_, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.CollectOnce(ctx); err != nil {
			c.log.Error("daily collection failed", logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", c.schedule, err)
	}
	c.cron.Start()

	c.log.Info("snapshot collector scheduled", logger.String("cron", c.schedule))
	return nil
}

// CollectOnce fetches today's dump and routes the whole batch downstream.
// Safe to call manually for an out-of-schedule refresh; the pipeline drops
// (item, day) pairs it has already accepted.
func (c *SnapshotCollector) CollectOnce(ctx context.Context) error {
	start := time.Now()

	snaps, err := c.source.FetchDump(ctx, time.Now().UTC())
	if err != nil {
		c.metrics.RecordError("collect_fetch")
		return fmt.Errorf("fetch dump: %w", err)
	}

	if c.pipe != nil {
		err = c.pipe.ProcessBatch(ctx, snaps)
	} else {
		err = c.proc.ProcessBatch(ctx, snaps)
	}
	if err != nil {
		return fmt.Errorf("ingest dump: %w", err)
	}

	c.log.Info("daily dump collected",
		logger.Int("items", len(snaps)),
		logger.Duration("took", time.Since(start)))
	c.metrics.RecordLatency("collect", time.Since(start).Seconds())
	return nil
}

// Processor returns the underlying SnapshotProcessor for lifecycle management.
func (c *SnapshotCollector) Processor() *SnapshotProcessor { return c.proc }

// Shutdown stops the schedule and the pipeline.
func (c *SnapshotCollector) Shutdown(ctx context.Context) error {
	if c.cron != nil {
		stopCtx := c.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return nil
}
