package flips

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlipScan/internal/domain/models"
)

// statsFor builds ItemStats the way the aggregator would, from a
// chronological price series.
func statsFor(chrono []float64) models.ItemStats {
	prices := append([]float64(nil), chrono...)
	sort.Float64s(prices)

	cut := 0
	if len(chrono) >= 14 {
		cut = len(chrono) - 14
	}
	recentChrono := append([]float64(nil), chrono[cut:]...)
	recent := append([]float64(nil), recentChrono...)
	sort.Float64s(recent)

	prev := chrono[len(chrono)-1]
	if len(chrono) > 1 {
		prev = chrono[len(chrono)-2]
	}

	return models.ItemStats{
		ItemID:             1,
		Name:               "Test item",
		GELimit:            10000,
		CurrentPrice:       chrono[len(chrono)-1],
		PrevPrice:          prev,
		AvgVolume:          1000,
		DataPoints:         len(prices),
		Prices:             prices,
		FilteredPrices:     prices,
		RecentPrices:       recent,
		RecentPricesChrono: recentChrono,
	}
}

func TestAnalyzeEmptySentinel(t *testing.T) {
	got := Analyze(models.ItemStats{}, 0.02)

	assert.Equal(t, models.TierNone, got.Tier)
	assert.Zero(t, got.Score)
	assert.Zero(t, got.Buy)
	assert.Zero(t, got.Sell)
}

func TestAnalyzeFlatSeriesIsCrashTier(t *testing.T) {
	chrono := make([]float64, 20)
	for i := range chrono {
		chrono[i] = 100
	}
	st := statsFor(chrono)
	st.AvgVolume = 1000

	got := Analyze(st, 0.02)

	// Zero spread: the flip loses exactly the tax on the sell side.
	assert.Equal(t, int64(100), got.Buy)
	assert.Equal(t, int64(100), got.Sell)
	assert.Equal(t, int64(-2), got.Profit)
	assert.Equal(t, models.TierCrash, got.Tier)
}

func TestAnalyzeNegativeProfitAlwaysCrash(t *testing.T) {
	// Huge volume and a long history cannot rescue a negative net.
	chrono := make([]float64, 60)
	for i := range chrono {
		chrono[i] = 5000
	}
	st := statsFor(chrono)
	st.AvgVolume = 10_000_000

	got := Analyze(st, 0.02)
	require.Negative(t, got.Profit)
	assert.Equal(t, models.TierCrash, got.Tier)
}

func TestAnalyzeStableSpreadUsesQ10Q90(t *testing.T) {
	// Strictly increasing but gentle: 1000..1099. The recent median stays
	// inside the crash and spike bands, so the full distribution is used.
	chrono := make([]float64, 100)
	for i := range chrono {
		chrono[i] = float64(1000 + i)
	}
	st := statsFor(chrono)
	// Keep the filter path out of this test.
	st.FilteredPrices = st.Prices
	st.OutliersRemoved = 0

	got := Analyze(st, 0)

	// Q10 of 1000..1099 is index round(99*0.1)=10 -> 1010; Q90 index 89 -> 1089.
	assert.Equal(t, int64(1010), got.Buy)
	assert.Equal(t, int64(1089), got.Sell)
}

func TestAnalyzeCrashedItemUsesRecentWindow(t *testing.T) {
	// 76 observations at 100, then a recent window of eight 70s followed by
	// six 100s: the recent median (70) is below 80% of the overall median,
	// but the window mean (~82.9) stays above the post-spike threshold and
	// the window's second half is rising, so this is a plain crash.
	chrono := make([]float64, 0, 90)
	for i := 0; i < 76; i++ {
		chrono = append(chrono, 100)
	}
	for i := 0; i < 8; i++ {
		chrono = append(chrono, 70)
	}
	for i := 0; i < 6; i++ {
		chrono = append(chrono, 100)
	}
	st := statsFor(chrono)

	got := Analyze(st, 0.02)

	// The working series is the recent window, so the band comes from its
	// Q15/Q85 instead of the stale long-run Q10/Q90.
	assert.Equal(t, int64(70), got.Buy)
	assert.Equal(t, int64(100), got.Sell)
	assert.Contains(t, got.Notes, "Crashed")
	assert.NotContains(t, got.Notes, "VOLATILE")
}

func TestAnalyzeVolatileCrashMarkerTakesPriority(t *testing.T) {
	// A window that is itself falling hard: second half mean far below the
	// first half.
	chrono := []float64{200, 200, 200, 200, 200, 200, 200, 100, 100, 100, 100, 100, 100, 100}
	st := statsFor(chrono)

	got := Analyze(st, 0.02)
	assert.Contains(t, got.Notes, "VOLATILE-CRASHING")
}

func TestAnalyzeSortsWorkingSeries(t *testing.T) {
	// Prices arrive newest-first here; Analyze must not depend on callers
	// pre-sorting the series, and must not reorder the caller's slice.
	prices := make([]float64, 0, 100)
	for i := 99; i >= 0; i-- {
		prices = append(prices, float64(1000+i))
	}
	st := models.ItemStats{
		ItemID:     1,
		Name:       "Test item",
		AvgVolume:  1000,
		DataPoints: len(prices),
		Prices:     prices,
	}

	got := Analyze(st, 0)

	assert.Equal(t, int64(1010), got.Buy)
	assert.Equal(t, int64(1089), got.Sell)
	assert.Equal(t, float64(1099), st.Prices[0])
}

func TestAnalyzeDowntrendSplitFloorsOddWindow(t *testing.T) {
	// 13 recent points split 6/7: the second half gets the extra point. The
	// borderline middle value lands in the second half and lifts its mean to
	// ~90.14% of the first half's, just above the 90% line, so no downtrend
	// is flagged. A 7/6 split would put that value in the first half and
	// flag one.
	calm := []float64{100, 100, 100, 100, 100, 100, 103, 88, 88, 88, 88, 88, 88}
	got := Analyze(statsFor(calm), 0.02)
	assert.NotContains(t, got.Notes, "VOLATILE-CRASHING")

	// Dropping the middle value below the line turns the same window into a
	// downtrend.
	falling := append([]float64(nil), calm...)
	falling[6] = 80
	got = Analyze(statsFor(falling), 0.02)
	assert.Contains(t, got.Notes, "VOLATILE-CRASHING")
}

func TestAnalyzeScoreSaturates(t *testing.T) {
	st := statsFor([]float64{1, 1_000_000_000})
	st.AvgVolume = 1e12

	// Absurd ROI must clamp, not wrap or panic.
	got := Analyze(st, 0)
	assert.LessOrEqual(t, got.Score, math.MaxInt32)
	assert.Greater(t, got.Score, 0)
}

func TestSaturatingSum(t *testing.T) {
	assert.Equal(t, math.MaxInt32, saturatingSum(math.MaxInt32, 100))
	assert.Equal(t, math.MinInt32, saturatingSum(math.MinInt32, -100))
	assert.Equal(t, 6, saturatingSum(1, 2, 3))
	// A saturated total can still be pulled back down afterwards.
	assert.Equal(t, math.MaxInt32-50, saturatingSum(math.MaxInt32, 100, -50))
}

func TestAnalyzeIdempotent(t *testing.T) {
	chrono := []float64{120, 110, 130, 90, 150, 100, 140, 95, 125, 105, 135, 115, 145, 85, 155, 80}
	st := statsFor(chrono)

	a := Analyze(st, 0.02)
	b := Analyze(st, 0.02)
	assert.Equal(t, a, b)
}

func TestAnalyzeOutlierNoteAndPenalty(t *testing.T) {
	chrono := make([]float64, 0, 30)
	for i := 0; i < 30; i++ {
		chrono = append(chrono, 100+float64(i%5))
	}
	st := statsFor(chrono)
	st.OutliersRemoved = 3
	st.FilteredPrices = st.Prices

	got := Analyze(st, 0.02)
	assert.Contains(t, got.Notes, "3 outliers")

	clean := st
	clean.OutliersRemoved = 0
	cleanGot := Analyze(clean, 0.02)
	assert.Greater(t, cleanGot.Score, got.Score, "outlier removal must cost score")
}

func TestClassifyLadder(t *testing.T) {
	cases := []struct {
		name string
		net  float64
		roi  float64
		want models.Tier
	}{
		{"negative net", -1, 50, models.TierCrash},
		{"high roi", 0, 36, models.TierDiamond},
		{"huge profit", 6_000_000, 1, models.TierDiamond},
		{"gold roi", 0, 21, models.TierGold},
		{"gold profit", 1_500_000, 1, models.TierGold},
		{"green roi", 0, 9, models.TierGreen},
		{"green profit", 250_000, 1, models.TierGreen},
		{"plain", 10, 1, models.TierNormal},
		{"roi exactly at diamond boundary stays gold", 0, 35, models.TierGold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(tc.net, tc.roi))
		})
	}
}
