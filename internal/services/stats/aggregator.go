// Package stats turns raw per-day price observations into per-item summary
// statistics for the flip scorer: sorted price distribution, a recent-window
// sub-series, IQR outlier filtering and a least-squares trend.
package stats

import (
	"sort"

	"FlipScan/internal/domain/models"
)

const (
	// RecentWindow is the number of most recent observations kept as the
	// fast-moving sub-series. 14 rather than 30 so rapid crashes and spikes
	// show up before the long-run distribution catches them.
	RecentWindow = 14

	// MinOutlierSamples is the minimum series length before IQR filtering
	// is attempted at all.
	MinOutlierSamples = 10

	// IQRMultiplier scales the interquartile range for outlier bounds.
	IQRMultiplier = 1.5

	// MinTrendPoints is the minimum series length for trend estimation.
	MinTrendPoints = 3
)

// Aggregate groups snapshots by item and produces one ItemStats per item.
// Snapshots must arrive ordered by day ascending; arrival order within an
// item group is preserved for the chronological sub-series. Items with zero
// observations cannot occur (a group exists only because a snapshot does).
// Output order between items is unspecified; callers sort.
func Aggregate(snaps []models.Snapshot) []models.ItemStats {
	groups := make(map[int64][]models.Snapshot)
	for _, s := range snaps {
		groups[s.ItemID] = append(groups[s.ItemID], s)
	}

	results := make([]models.ItemStats, 0, len(groups))
	for id, records := range groups {
		results = append(results, buildItem(id, records))
	}
	return results
}

func buildItem(id int64, records []models.Snapshot) models.ItemStats {
	prices := make([]float64, len(records))
	volumes := make([]float64, len(records))
	for i, r := range records {
		prices[i] = float64(r.Price)
		volumes[i] = float64(r.Volume)
	}

	recentCutoff := 0
	if len(records) >= RecentWindow {
		recentCutoff = len(records) - RecentWindow
	}
	recentChrono := make([]float64, len(prices)-recentCutoff)
	copy(recentChrono, prices[recentCutoff:])
	recent := make([]float64, len(recentChrono))
	copy(recent, recentChrono)
	sort.Float64s(recent)

	current := records[len(records)-1]
	prev := float64(current.Price)
	if len(records) > 1 {
		prev = float64(records[len(records)-2].Price)
	}

	sort.Float64s(prices)

	filtered, removed := RemoveOutliers(prices)

	var trend float64
	switch {
	case len(filtered) >= MinTrendPoints:
		trend = Trend(filtered)
	case len(prices) >= MinTrendPoints:
		trend = Trend(prices)
	}

	return models.ItemStats{
		ItemID:  id,
		Name:    current.Name,
		GELimit: current.GELimit,

		CurrentPrice: float64(current.Price),
		PrevPrice:    prev,

		AvgVolume:     mean(volumes),
		CurrentVolume: float64(current.Volume),
		StdDev:        stdDev(prices),

		Q10: Percentile(prices, 0.10),
		Q50: Percentile(prices, 0.50),
		Q90: Percentile(prices, 0.90),

		DataPoints: len(prices),

		Prices:          prices,
		FilteredPrices:  filtered,
		OutliersRemoved: removed,

		RecentPrices:       recent,
		RecentPricesChrono: recentChrono,

		PriceTrend: trend,
	}
}
