package repository

import (
	"context"
	"time"

	"FlipScan/internal/domain/models"
)

// SnapshotSource fetches market observations from the exchange data service.
type SnapshotSource interface {
	// FetchDump downloads the full daily price dump and returns one snapshot
	// per item, dated with the given day.
	FetchDump(ctx context.Context, day time.Time) ([]*models.Snapshot, error)

	// FetchItemHistory downloads the complete price history for one item.
	FetchItemHistory(ctx context.Context, itemID int64) ([]*models.Snapshot, error)
}

// Publisher sends snapshots to the message backend.
type Publisher interface {
	Publish(ctx context.Context, s *models.Snapshot) error
	PublishBatch(ctx context.Context, snaps []*models.Snapshot) error
	Close() error
}

// Storage persists snapshots.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, s *models.Snapshot) error
	StoreBatch(ctx context.Context, snaps []*models.Snapshot) error
	Health(ctx context.Context) error // ping
	Close() error
}

// Metrics records operational counters and gauges.
type Metrics interface {
	RecordSnapshotStored(backend string)
	RecordError(kind string)
	RecordItemsScanned(n int)
	RecordLatency(op string, seconds float64)
}
