package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlipScan/internal/domain/models"
)

func daySnaps(itemID int64, name string, prices []int64, volumes []int64) []models.Snapshot {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Snapshot, len(prices))
	for i, p := range prices {
		var v int64
		if volumes != nil {
			v = volumes[i]
		}
		out[i] = models.Snapshot{
			ItemID:  itemID,
			Name:    name,
			GELimit: 10000,
			Day:     base.AddDate(0, 0, i),
			Price:   p,
			Volume:  v,
		}
	}
	return out
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}

	assert.Equal(t, 30.0, Percentile(sorted, 0.5))
	assert.Equal(t, 10.0, Percentile(sorted, 0.0))
	assert.Equal(t, 50.0, Percentile(sorted, 1.0))

	for _, q := range []float64{0, 0.25, 0.5, 0.75, 1} {
		assert.Equal(t, 0.0, Percentile(nil, q), "empty input must yield 0 at q=%v", q)
	}
}

func TestPercentileNearestRank(t *testing.T) {
	// (n-1)*q = 3*0.5 = 1.5 rounds half away from zero to index 2.
	sorted := []float64{1, 2, 3, 4}
	assert.Equal(t, 3.0, Percentile(sorted, 0.5))
}

func TestRemoveOutliersSmallSeriesIsNoop(t *testing.T) {
	in := []float64{1, 2, 3, 1000}
	out, removed := RemoveOutliers(in)

	assert.Equal(t, in, out)
	assert.Zero(t, removed)
}

func TestRemoveOutliersDropsSpike(t *testing.T) {
	in := []float64{100, 100, 101, 101, 102, 102, 103, 103, 104, 5000}
	out, removed := RemoveOutliers(in)

	assert.Equal(t, 1, removed)
	assert.Len(t, out, 9)
	assert.NotContains(t, out, 5000.0)
}

func TestRemoveOutliersRevertsWhenTooAggressive(t *testing.T) {
	// Q1 and Q3 both land on the central mode, so the IQR collapses to zero
	// and naive filtering would drop 40% of the series. The filter must back
	// off and keep everything.
	in := []float64{1, 1, 5, 5, 5, 5, 5, 5, 1000, 1000}
	out, removed := RemoveOutliers(in)

	assert.Equal(t, in, out)
	assert.Zero(t, removed)
	assert.GreaterOrEqual(t, len(out), len(in)*7/10)
}

func TestTrend(t *testing.T) {
	assert.Equal(t, 1.0, Trend([]float64{1, 2, 3, 4, 5}))
	assert.Equal(t, 0.0, Trend([]float64{7, 7, 7, 7}))
	assert.Equal(t, 0.0, Trend([]float64{42}))
	assert.Negative(t, Trend([]float64{9, 7, 5, 3, 1}))
}

func TestAggregateSingleItem(t *testing.T) {
	snaps := daySnaps(4151, "Abyssal whip", []int64{120, 100, 110, 130, 90}, []int64{10, 20, 30, 40, 50})

	out := Aggregate(snaps)
	require.Len(t, out, 1)
	st := out[0]

	assert.Equal(t, int64(4151), st.ItemID)
	assert.Equal(t, "Abyssal whip", st.Name)
	assert.Equal(t, 5, st.DataPoints)
	assert.Len(t, st.Prices, st.DataPoints)
	assert.Equal(t, []float64{90, 100, 110, 120, 130}, st.Prices)

	// Current and previous come from date order, not sorted order.
	assert.Equal(t, 90.0, st.CurrentPrice)
	assert.Equal(t, 130.0, st.PrevPrice)

	assert.Equal(t, 30.0, st.AvgVolume)
	assert.Equal(t, 50.0, st.CurrentVolume)

	// Below the outlier threshold everything passes through unfiltered.
	assert.Zero(t, st.OutliersRemoved)
	assert.Equal(t, st.Prices, st.FilteredPrices)

	// Fewer than RecentWindow observations: the recent window is the whole
	// series, chronological copy unsorted.
	assert.Equal(t, []float64{120, 100, 110, 130, 90}, st.RecentPricesChrono)
	assert.Equal(t, []float64{90, 100, 110, 120, 130}, st.RecentPrices)
}

func TestAggregateSingleObservation(t *testing.T) {
	out := Aggregate(daySnaps(2, "Coal", []int64{250}, []int64{1000}))
	require.Len(t, out, 1)

	st := out[0]
	assert.Equal(t, 250.0, st.CurrentPrice)
	assert.Equal(t, 250.0, st.PrevPrice, "single observation falls back to current")
	assert.Zero(t, st.PriceTrend)
}

func TestAggregateRecentWindowCapped(t *testing.T) {
	prices := make([]int64, 30)
	for i := range prices {
		prices[i] = int64(100 + i)
	}
	out := Aggregate(daySnaps(3, "Yew logs", prices, nil))
	require.Len(t, out, 1)

	st := out[0]
	assert.Len(t, st.RecentPrices, RecentWindow)
	assert.Len(t, st.RecentPricesChrono, RecentWindow)
	assert.Equal(t, 116.0, st.RecentPricesChrono[0], "window starts at the 14th most recent")
	assert.Equal(t, 129.0, st.RecentPricesChrono[len(st.RecentPricesChrono)-1])
}

func TestAggregateGroupsByItem(t *testing.T) {
	snaps := append(
		daySnaps(1, "Feather", []int64{2, 3, 4}, nil),
		daySnaps(2, "Coal", []int64{200, 210}, nil)...,
	)

	out := Aggregate(snaps)
	require.Len(t, out, 2)

	byID := map[int64]models.ItemStats{}
	for _, st := range out {
		byID[st.ItemID] = st
	}
	assert.Equal(t, 3, byID[1].DataPoints)
	assert.Equal(t, 2, byID[2].DataPoints)
}

func TestAggregateTrendUsesFilteredSeries(t *testing.T) {
	// 11 flat points plus one absurd spike. The spike is filtered out, so the
	// trend over the filtered series stays flat instead of tilting upward.
	prices := []int64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100000}
	out := Aggregate(daySnaps(5, "Rune ore", prices, nil))
	require.Len(t, out, 1)

	st := out[0]
	assert.Equal(t, 1, st.OutliersRemoved)
	assert.Zero(t, st.PriceTrend)
}
