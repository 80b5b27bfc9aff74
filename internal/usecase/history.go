package usecase

import (
	"context"
	"fmt"
	"time"

	"FlipScan/internal/domain/models"
	domrepo "FlipScan/internal/domain/repository"
	pkgcache "FlipScan/pkg/cache"
)

// HistoryUseCase serves single-item price history for charting. Series are
// cached; daily data only changes once per collection.
type HistoryUseCase struct {
	store domrepo.HistoryStore
	cache pkgcache.Service
	days  int
	ttl   time.Duration
}

func NewHistoryUseCase(store domrepo.HistoryStore, cache pkgcache.Service, days int, ttl time.Duration) *HistoryUseCase {
	if days <= 0 {
		days = 365
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &HistoryUseCase{store: store, cache: cache, days: days, ttl: ttl}
}

// GetHistory returns the (day, price) series for one item by name, oldest
// first. `days` caps the window; 0 falls back to the configured default.
func (uc *HistoryUseCase) GetHistory(ctx context.Context, itemName string, days int) ([]models.PricePoint, error) {
	if itemName == "" {
		return nil, fmt.Errorf("item name required")
	}
	if days <= 0 {
		days = uc.days
	}

	key := pkgcache.GenerateKeyWithParams("history", itemName, days)
	if uc.cache != nil {
		var cached []models.PricePoint
		if err := uc.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	points, err := uc.store.QueryItemHistory(ctx, itemName, days)
	if err != nil {
		return nil, fmt.Errorf("query history for %q: %w", itemName, err)
	}

	if uc.cache != nil && len(points) > 0 {
		_ = uc.cache.Set(ctx, key, points, uc.ttl)
	}
	return points, nil
}
