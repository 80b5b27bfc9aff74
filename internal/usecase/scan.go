package usecase

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"FlipScan/internal/domain/models"
	domrepo "FlipScan/internal/domain/repository"
	"FlipScan/internal/services/flips"
	"FlipScan/internal/services/stats"
)

// ScanUseCase runs a full market scan: load the recent price window, build
// per-item statistics, score every item and rank the results.
type ScanUseCase struct {
	store      domrepo.HistoryStore
	metrics    domrepo.Metrics
	windowDays int
	workers    int
	timeout    time.Duration
}

func NewScanUseCase(store domrepo.HistoryStore, metrics domrepo.Metrics, windowDays int) *ScanUseCase {
	if windowDays <= 0 {
		windowDays = 90
	}
	return &ScanUseCase{
		store:      store,
		metrics:    metrics,
		windowDays: windowDays,
		workers:    runtime.GOMAXPROCS(0),
		timeout:    30 * time.Second,
	}
}

type ScanParams struct {
	Budget    int64   // gp available; 0 disables quantity sizing
	Tax       float64 // exchange tax rate, e.g. 0.02
	MinVolume float64 // drop items trading below this average daily volume
	Limit     int     // max results returned; 0 means all
}

// Scan analyzes every item in the stored window and returns results ranked by
// score descending. Items are independent, so scoring fans out across a small
// worker pool.
func (uc *ScanUseCase) Scan(ctx context.Context, p ScanParams) (*models.ScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()

	snaps, err := uc.store.QueryWindow(ctx, uc.windowDays)
	if err != nil {
		uc.metrics.RecordError("scan_query")
		return nil, err
	}

	items := stats.Aggregate(snaps)

	results := uc.analyzeAll(items, p.Tax, p.Budget)

	if p.MinVolume > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.AvgVolume >= p.MinVolume {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	// Equal scores keep a deterministic order across scans.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ItemID < results[j].ItemID
	})

	total := len(items)
	if p.Limit > 0 && len(results) > p.Limit {
		results = results[:p.Limit]
	}

	uc.metrics.RecordItemsScanned(total)
	uc.metrics.RecordLatency("scan", time.Since(start).Seconds())

	return &models.ScanResult{
		GeneratedAt: time.Now(),
		WindowDays:  uc.windowDays,
		ItemCount:   total,
		Flips:       results,
	}, nil
}

// ScanItem analyzes a single item over the scan window.
func (uc *ScanUseCase) ScanItem(ctx context.Context, itemID int64, taxRate float64) (*models.ItemFlip, error) {
	snaps, err := uc.store.QueryItemWindow(ctx, itemID, uc.windowDays)
	if err != nil {
		uc.metrics.RecordError("scan_item_query")
		return nil, err
	}

	items := stats.Aggregate(snaps)
	if len(items) == 0 {
		f := models.EmptyFlipResult()
		f.ItemID = itemID
		return &models.ItemFlip{ItemID: itemID, Flip: f}, nil
	}

	st := items[0]
	f := flips.Analyze(st, taxRate)
	f.Trend = st.PriceTrend

	return &models.ItemFlip{
		ItemID:     st.ItemID,
		Name:       st.Name,
		GELimit:    st.GELimit,
		DataPoints: st.DataPoints,
		Current:    st.CurrentPrice,
		Q10:        st.Q10,
		Q50:        st.Q50,
		Q90:        st.Q90,
		StdDev:     st.StdDev,
		Trend:      st.PriceTrend,
		Flip:       f,
	}, nil
}

func (uc *ScanUseCase) analyzeAll(items []models.ItemStats, taxRate float64, budget int64) []models.FlipResult {
	results := make([]models.FlipResult, len(items))

	workers := uc.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}
	if workers == 0 {
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				st := items[i]
				f := flips.Analyze(st, taxRate)
				f.Trend = st.PriceTrend
				sizeForBudget(&f, budget, st.GELimit)
				results[i] = f
			}
		}()
	}
	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// sizeForBudget fills Qty and the totals: as many units as the budget buys,
// capped at the item's exchange buy limit.
func sizeForBudget(r *models.FlipResult, budget, geLimit int64) {
	if budget <= 0 || r.Buy <= 0 {
		return
	}
	qty := budget / r.Buy
	if geLimit > 0 && qty > geLimit {
		qty = geLimit
	}
	r.Qty = qty
	r.TotalCost = qty * r.Buy
	r.TotalProfit = qty * r.Profit
}
