package usecase

import (
	"context"
	"fmt"
	"time"

	"FlipScan/internal/domain/models"
	drepo "FlipScan/internal/domain/repository"
	"FlipScan/pkg/logger"
	"FlipScan/pkg/queue"
)

// BackfillMessageType routes backfill messages to their job handler.
const BackfillMessageType = "backfill_item"

// BackfillPayload is the queue message for one item's history backfill.
type BackfillPayload struct {
	ItemID int64 `json:"item_id"`
}

// BackfillJob fetches one item's full price history and stores it. Runs as a
// redis queue job so a full-market backfill survives restarts and retries
// transient API failures per item.
type BackfillJob struct {
	source  drepo.SnapshotSource
	storage drepo.Storage
	metrics drepo.Metrics
	log     *logger.Logger

	// delay spaces requests out; the history API rate limits aggressively.
	delay time.Duration
}

func NewBackfillJob(source drepo.SnapshotSource, storage drepo.Storage, metrics drepo.Metrics, log *logger.Logger) *BackfillJob {
	return &BackfillJob{
		source:  source,
		storage: storage,
		metrics: metrics,
		log:     log,
		delay:   time.Second,
	}
}

func (j *BackfillJob) Name() string { return "backfill_item" }
func (j *BackfillJob) Type() string { return BackfillMessageType }

// Handle downloads and stores the full history for one item.
func (j *BackfillJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[BackfillPayload](payload)
	if err != nil {
		return fmt.Errorf("backfill payload: %w", err)
	}
	if p.ItemID <= 0 {
		return fmt.Errorf("backfill item id invalid: %d", p.ItemID)
	}

	start := time.Now()
	snaps, err := j.source.FetchItemHistory(ctx, p.ItemID)
	if err != nil {
		j.metrics.RecordError("backfill_fetch")
		return err
	}
	if len(snaps) == 0 {
		j.log.Warn("no history for item", logger.Int64("item_id", p.ItemID))
		return nil
	}

	if err := j.storage.StoreBatch(ctx, snaps); err != nil {
		j.metrics.RecordError("backfill_store")
		return err
	}

	j.log.Info("item history backfilled",
		logger.Int64("item_id", p.ItemID),
		logger.Int("points", len(snaps)),
		logger.Duration("took", time.Since(start)))
	j.metrics.RecordLatency("backfill_item", time.Since(start).Seconds())

	// Spacing between items, not part of the item's own work.
	select {
	case <-time.After(j.delay):
	case <-ctx.Done():
	}
	return nil
}

var _ queue.Job = (*BackfillJob)(nil)

// BackfillUseCase enqueues per-item backfill jobs.
type BackfillUseCase struct {
	q     queue.QueueService
	store drepo.HistoryStore
	log   *logger.Logger
}

func NewBackfillUseCase(q queue.QueueService, store drepo.HistoryStore, log *logger.Logger) *BackfillUseCase {
	return &BackfillUseCase{q: q, store: store, log: log}
}

// Enqueue schedules a backfill for the given item ids; with no ids it
// schedules every item currently known to storage. Returns the number of
// jobs enqueued.
func (uc *BackfillUseCase) Enqueue(ctx context.Context, req models.BackfillRequest) (int, error) {
	ids := req.ItemIDs
	if len(ids) == 0 {
		known, err := uc.store.KnownItemIDs(ctx)
		if err != nil {
			return 0, fmt.Errorf("list known items: %w", err)
		}
		ids = known
	}

	enqueued := 0
	for _, id := range ids {
		if err := uc.q.PublishMessage(ctx, BackfillMessageType, BackfillPayload{ItemID: id}); err != nil {
			return enqueued, fmt.Errorf("enqueue item %d: %w", id, err)
		}
		enqueued++
	}

	uc.log.Info("backfill enqueued", logger.Int("items", enqueued))
	return enqueued, nil
}
