package repository

import (
	"context"

	"FlipScan/internal/domain/models"
)

// HistoryStore provides read-only access to stored price history for the
// scan and history use cases.
type HistoryStore interface {
	// QueryWindow returns every snapshot within the last `days` days, ordered
	// by day ascending. The scan pipeline consumes this as a single batch.
	QueryWindow(ctx context.Context, days int) ([]models.Snapshot, error)

	// QueryItemWindow returns the last `days` days of snapshots for one item
	// by id, ordered by day ascending.
	QueryItemWindow(ctx context.Context, itemID int64, days int) ([]models.Snapshot, error)

	// QueryItemHistory returns (day, price) points for one item by name over
	// the last `days` days, ordered by day ascending.
	QueryItemHistory(ctx context.Context, itemName string, days int) ([]models.PricePoint, error)

	// KnownItemIDs lists every item id present in storage.
	KnownItemIDs(ctx context.Context) ([]int64, error)
}
