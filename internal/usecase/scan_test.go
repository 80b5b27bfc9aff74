package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlipScan/internal/domain/models"
	pkgcache "FlipScan/pkg/cache"
)

type fakeHistoryStore struct {
	snaps []models.Snapshot
	err   error
}

func (f *fakeHistoryStore) QueryWindow(_ context.Context, _ int) ([]models.Snapshot, error) {
	return f.snaps, f.err
}

func (f *fakeHistoryStore) QueryItemWindow(_ context.Context, itemID int64, _ int) ([]models.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Snapshot
	for _, s := range f.snaps {
		if s.ItemID == itemID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeHistoryStore) QueryItemHistory(_ context.Context, _ string, _ int) ([]models.PricePoint, error) {
	return nil, f.err
}

func (f *fakeHistoryStore) KnownItemIDs(_ context.Context) ([]int64, error) {
	seen := map[int64]bool{}
	var ids []int64
	for _, s := range f.snaps {
		if !seen[s.ItemID] {
			seen[s.ItemID] = true
			ids = append(ids, s.ItemID)
		}
	}
	return ids, f.err
}

type noopMetrics struct{}

func (noopMetrics) RecordSnapshotStored(string)   {}
func (noopMetrics) RecordError(string)            {}
func (noopMetrics) RecordItemsScanned(int)        {}
func (noopMetrics) RecordLatency(string, float64) {}

func itemSnaps(itemID int64, name string, geLimit int64, prices, volumes []int64) []models.Snapshot {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Snapshot, len(prices))
	for i, p := range prices {
		out[i] = models.Snapshot{
			ItemID:  itemID,
			Name:    name,
			GELimit: geLimit,
			Day:     base.AddDate(0, 0, i),
			Price:   p,
			Volume:  volumes[i],
		}
	}
	return out
}

func constSeries(v int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func risingSeries(from int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = from + int64(i)
	}
	return out
}

func TestScanRanksByScoreDescending(t *testing.T) {
	var snaps []models.Snapshot
	// A stable wide-spread item scores well; a flat item nets negative and
	// lands in the crash tier with a deep penalty.
	snaps = append(snaps, itemSnaps(1, "Yew logs", 25000, risingSeries(1000, 100), constSeries(1000, 100))...)
	snaps = append(snaps, itemSnaps(2, "Vial", 10000, constSeries(100, 20), constSeries(1000, 20))...)

	uc := NewScanUseCase(&fakeHistoryStore{snaps: snaps}, noopMetrics{}, 90)

	res, err := uc.Scan(context.Background(), ScanParams{Tax: 0.02})
	require.NoError(t, err)
	require.Len(t, res.Flips, 2)

	assert.Equal(t, 2, res.ItemCount)
	assert.Equal(t, 90, res.WindowDays)
	assert.GreaterOrEqual(t, res.Flips[0].Score, res.Flips[1].Score)
	assert.Equal(t, "Yew logs", res.Flips[0].Name)
	assert.Equal(t, models.TierCrash, res.Flips[1].Tier)
}

func TestScanBudgetSizing(t *testing.T) {
	snaps := itemSnaps(1, "Yew logs", 50, risingSeries(1000, 100), constSeries(1000, 100))
	uc := NewScanUseCase(&fakeHistoryStore{snaps: snaps}, noopMetrics{}, 90)

	res, err := uc.Scan(context.Background(), ScanParams{Budget: 100_000, Tax: 0.02})
	require.NoError(t, err)
	require.Len(t, res.Flips, 1)

	f := res.Flips[0]
	// 100000 / 1010 = 99 units, capped at the 50-unit exchange limit.
	assert.Equal(t, int64(1010), f.Buy)
	assert.Equal(t, int64(50), f.Qty)
	assert.Equal(t, int64(50*1010), f.TotalCost)
	assert.Equal(t, 50*f.Profit, f.TotalProfit)
}

func TestScanWithoutBudgetKeepsUnitQuantity(t *testing.T) {
	snaps := itemSnaps(1, "Yew logs", 50, risingSeries(1000, 100), constSeries(1000, 100))
	uc := NewScanUseCase(&fakeHistoryStore{snaps: snaps}, noopMetrics{}, 90)

	res, err := uc.Scan(context.Background(), ScanParams{Tax: 0.02})
	require.NoError(t, err)
	require.Len(t, res.Flips, 1)
	assert.Equal(t, int64(1), res.Flips[0].Qty)
	assert.Zero(t, res.Flips[0].TotalCost)
}

func TestScanMinVolumeFilter(t *testing.T) {
	var snaps []models.Snapshot
	snaps = append(snaps, itemSnaps(1, "Yew logs", 25000, risingSeries(1000, 30), constSeries(1000, 30))...)
	snaps = append(snaps, itemSnaps(2, "Party hat", 2, risingSeries(1000, 30), constSeries(10, 30))...)

	uc := NewScanUseCase(&fakeHistoryStore{snaps: snaps}, noopMetrics{}, 90)

	res, err := uc.Scan(context.Background(), ScanParams{Tax: 0.02, MinVolume: 500})
	require.NoError(t, err)
	require.Len(t, res.Flips, 1)
	assert.Equal(t, "Yew logs", res.Flips[0].Name)
	// filters trim the output, not the scanned count
	assert.Equal(t, 2, res.ItemCount)
}

func TestScanLimit(t *testing.T) {
	var snaps []models.Snapshot
	for id := int64(1); id <= 5; id++ {
		snaps = append(snaps, itemSnaps(id, "Item", 100, risingSeries(1000, 30), constSeries(1000, 30))...)
	}
	uc := NewScanUseCase(&fakeHistoryStore{snaps: snaps}, noopMetrics{}, 90)

	res, err := uc.Scan(context.Background(), ScanParams{Tax: 0.02, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, res.Flips, 3)
	assert.Equal(t, 5, res.ItemCount)
}

func TestScanTieBreaksOnItemID(t *testing.T) {
	var snaps []models.Snapshot
	// Identical series produce identical scores; ranking falls back to id.
	snaps = append(snaps, itemSnaps(7, "B", 100, risingSeries(1000, 30), constSeries(1000, 30))...)
	snaps = append(snaps, itemSnaps(3, "A", 100, risingSeries(1000, 30), constSeries(1000, 30))...)

	uc := NewScanUseCase(&fakeHistoryStore{snaps: snaps}, noopMetrics{}, 90)

	res, err := uc.Scan(context.Background(), ScanParams{Tax: 0.02})
	require.NoError(t, err)
	require.Len(t, res.Flips, 2)
	assert.Equal(t, int64(3), res.Flips[0].ItemID)
	assert.Equal(t, int64(7), res.Flips[1].ItemID)
}

func TestScanItem(t *testing.T) {
	snaps := itemSnaps(1, "Yew logs", 25000, risingSeries(1000, 100), constSeries(1000, 100))
	uc := NewScanUseCase(&fakeHistoryStore{snaps: snaps}, noopMetrics{}, 90)

	got, err := uc.ScanItem(context.Background(), 1, 0.02)
	require.NoError(t, err)
	assert.Equal(t, "Yew logs", got.Name)
	assert.Equal(t, 100, got.DataPoints)
	assert.Equal(t, float64(1099), got.Current)
	assert.Equal(t, int64(1010), got.Flip.Buy)
}

func TestScanItemUnknownIDReturnsSentinel(t *testing.T) {
	uc := NewScanUseCase(&fakeHistoryStore{}, noopMetrics{}, 90)

	got, err := uc.ScanItem(context.Background(), 42, 0.02)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ItemID)
	assert.Equal(t, models.TierNone, got.Flip.Tier)
}

func TestHistoryUseCaseRequiresName(t *testing.T) {
	uc := NewHistoryUseCase(&fakeHistoryStore{}, nil, 365, 0)
	_, err := uc.GetHistory(context.Background(), "", 0)
	assert.Error(t, err)
}

func TestHistoryUseCaseCachesSeries(t *testing.T) {
	store := &countingHistoryStore{points: []models.PricePoint{{Day: "2025-01-01", Price: 100}}}
	uc := NewHistoryUseCase(store, pkgcache.NewMemoryCache(), 365, time.Hour)

	first, err := uc.GetHistory(context.Background(), "Yew logs", 30)
	require.NoError(t, err)
	second, err := uc.GetHistory(context.Background(), "Yew logs", 30)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls)
}

type countingHistoryStore struct {
	fakeHistoryStore
	points []models.PricePoint
	calls  int
}

func (s *countingHistoryStore) QueryItemHistory(_ context.Context, _ string, _ int) ([]models.PricePoint, error) {
	s.calls++
	return s.points, nil
}
