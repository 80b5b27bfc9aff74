package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FlipScan/internal/domain/models"
	pkgch "FlipScan/pkg/clickhouse"
	applogger "FlipScan/pkg/logger"
)

// CHHistoryStore implements HistoryStore backed by ClickHouse.
type CHHistoryStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHHistoryStore(ch *pkgch.Client, table string) *CHHistoryStore {
	return &CHHistoryStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) { s.l = l }

// QueryWindow returns every snapshot within the last `days` days, ordered by
// day ascending. FINAL collapses re-collected days down to one row.
func (s *CHHistoryStore) QueryWindow(ctx context.Context, days int) ([]models.Snapshot, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT item_id, name, ge_limit, day, price, volume
        FROM %s FINAL
        WHERE day >= today() - ?
        ORDER BY item_id ASC, day ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, days)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse query_window error",
				applogger.Int("days", days),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query window: %w", err)
	}
	defer rows.Close()

	out := make([]models.Snapshot, 0, 65536)
	for rows.Next() {
		var snap models.Snapshot
		if err := rows.Scan(&snap.ItemID, &snap.Name, &snap.GELimit, &snap.Day, &snap.Price, &snap.Volume); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse query_window ok",
			applogger.Int("days", days),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// QueryItemWindow returns the last `days` days for one item, day ascending.
func (s *CHHistoryStore) QueryItemWindow(ctx context.Context, itemID int64, days int) ([]models.Snapshot, error) {
	q := fmt.Sprintf(`
        SELECT item_id, name, ge_limit, day, price, volume
        FROM %s FINAL
        WHERE item_id = ? AND day >= today() - ?
        ORDER BY day ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, itemID, days)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse item_window error",
				applogger.Int64("item_id", itemID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query item window: %w", err)
	}
	defer rows.Close()

	var out []models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		if err := rows.Scan(&snap.ItemID, &snap.Name, &snap.GELimit, &snap.Day, &snap.Price, &snap.Volume); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// QueryItemHistory returns (day, price) points for one item by display name,
// day ascending. Backfilled rows carry no name, so the lookup resolves the
// name to an id against the dump rows first.
func (s *CHHistoryStore) QueryItemHistory(ctx context.Context, itemName string, days int) ([]models.PricePoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT toString(day), toFloat64(price)
        FROM %s FINAL
        WHERE item_id IN (SELECT DISTINCT item_id FROM %s WHERE name = ?)
          AND day >= today() - ?
        ORDER BY day ASC
    `, s.table, s.table)
	rows, err := s.db.QueryContext(ctx, q, itemName, days)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse item_history error",
				applogger.String("item", itemName),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query item history: %w", err)
	}
	defer rows.Close()

	var out []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Day, &p.Price); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse item_history ok",
			applogger.String("item", itemName),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// KnownItemIDs lists every item id present in storage.
func (s *CHHistoryStore) KnownItemIDs(ctx context.Context) ([]int64, error) {
	q := fmt.Sprintf("SELECT DISTINCT item_id FROM %s ORDER BY item_id ASC", s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("known item ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
