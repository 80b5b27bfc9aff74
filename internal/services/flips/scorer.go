// Package flips scores items as flip candidates from their aggregated price
// statistics.
//
// Rounding is pinned throughout: percentile indexing and buy/sell/profit use
// math.Round (half away from zero), fractional sub-scores truncate toward
// zero via int conversion. Tier boundaries sit exactly on these conversions,
// so changing either would silently shift recommendations.
package flips

import (
	"fmt"
	"math"
	"sort"

	"FlipScan/internal/domain/models"
	"FlipScan/internal/services/stats"
)

// Market-state detection thresholds. These are load-bearing business logic,
// tuned against live Grand Exchange history; treat them as behavior, not
// style.
const (
	// crashVsMedian flags a crash when the recent median sits below 80% of
	// the overall median.
	crashVsMedian = 0.80
	// crashVsQ75 catches items that crashed from a high perch even when the
	// overall median is mid-range.
	crashVsQ75 = 0.65
	// spikeVsMedian flags a spike when the recent median exceeds 125% of the
	// overall median.
	spikeVsMedian = 1.25
	// postSpikeVsQ75 flags an item that peaked and is unwinding: recent mean
	// below 82% of the overall Q75.
	postSpikeVsQ75 = 0.82
	// downtrendRatio compares the second half of the recent window to the
	// first; below 90% means the window itself is falling.
	downtrendRatio = 0.90

	// minRecentForWindow is how many recent points are needed before the
	// scorer trusts the recent window over the full distribution.
	minRecentForWindow = 10
	// minDowntrendPoints is the smallest recent window the half-split
	// momentum check is meaningful on.
	minDowntrendPoints = 6
)

// Tier thresholds (profit is net of tax, per unit, in gp).
const (
	diamondROI    = 35.0
	diamondProfit = 5_000_000.0
	goldROI       = 20.0
	goldProfit    = 1_000_000.0
	greenROI      = 8.0
	greenProfit   = 200_000.0
)

// Score weights and caps.
const (
	roiWeight          = 2.0
	volumeWeight       = 15.0
	volumeScoreCap     = 100.0
	profitScoreUnit    = 100_000.0
	profitScoreCap     = 50.0
	volatilityScoreCap = 100.0
	reliabilityUnit    = 5.0
	reliabilityCap     = 10.0
	trendScoreCap      = 50.0

	spreadPenalty       = -20
	tightSpreadRatio    = 0.02
	outlierPenaltyHeavy = -30
	outlierPenaltyLight = -10
	crashPenaltyRecent  = -80 // window itself is falling, riskiest
	crashPenaltyPlain   = -50
	spikePenalty        = -30
)

// Analyze derives a flip recommendation from one item's statistics. It is a
// pure function: identical inputs produce identical output. Items with no
// observations yield the empty sentinel.
func Analyze(st models.ItemStats, taxRate float64) models.FlipResult {
	if len(st.Prices) == 0 {
		return models.EmptyFlipResult()
	}

	overallMedian := stats.Percentile(st.Prices, 0.50)
	overallQ75 := stats.Percentile(st.Prices, 0.75)
	recentMedian := overallMedian
	if len(st.RecentPrices) > 0 {
		recentMedian = stats.Percentile(st.RecentPrices, 0.50)
	}

	priceCrashed := recentMedian < overallMedian*crashVsMedian ||
		recentMedian < overallQ75*crashVsQ75
	priceSpiked := recentMedian > overallMedian*spikeVsMedian

	recentAvg := recentMedian
	if len(st.RecentPricesChrono) > 0 {
		recentAvg = meanOf(st.RecentPricesChrono)
	}
	postSpikeCrash := recentAvg < overallQ75*postSpikeVsQ75

	recentDowntrend := false
	if len(st.RecentPricesChrono) >= minDowntrendPoints {
		// Floor split: odd windows give the second half the extra point.
		mid := len(st.RecentPricesChrono) / 2
		firstHalf := meanOf(st.RecentPricesChrono[:mid])
		secondHalf := meanOf(st.RecentPricesChrono[mid:])
		recentDowntrend = secondHalf < firstHalf*downtrendRatio
	}
	recentTrendCrash := postSpikeCrash || recentDowntrend

	// Window selection: a crashed or spiked market makes the long-run
	// distribution stale, so prefer the recent window when it is deep
	// enough; otherwise prefer the outlier-filtered series when filtering
	// actually removed something.
	useRecent := (priceCrashed || priceSpiked) && len(st.RecentPrices) >= minRecentForWindow
	useFiltered := !useRecent && len(st.FilteredPrices) > 0 && st.OutliersRemoved > 0

	var prices []float64
	switch {
	case useRecent:
		prices = st.RecentPrices
	case useFiltered:
		prices = st.FilteredPrices
	default:
		prices = st.Prices
	}
	// Sort a copy so the percentile math holds for any caller, not just the
	// aggregator's pre-sorted series.
	prices = append([]float64(nil), prices...)
	sort.Float64s(prices)

	q05 := stats.Percentile(prices, 0.05)
	q10 := stats.Percentile(prices, 0.10)
	q15 := stats.Percentile(prices, 0.15)
	q50 := stats.Percentile(prices, 0.50)
	q85 := stats.Percentile(prices, 0.85)
	q90 := stats.Percentile(prices, 0.90)
	q95 := stats.Percentile(prices, 0.95)

	// Crashed/spiked items trade on the tighter Q15-Q85 band to avoid
	// chasing extremes that no longer exist; everything else uses Q10-Q90.
	var buy, sell int64
	if useRecent {
		buy, sell = int64(math.Round(q15)), int64(math.Round(q85))
	} else {
		buy, sell = int64(math.Round(q10)), int64(math.Round(q90))
	}

	priceRange := q90 - q10
	volatility := 0.0
	if q50 > 0 {
		volatility = priceRange / q50 * 100
	}

	gross := float64(sell - buy)
	taxLoss := float64(sell) * taxRate
	net := gross - taxLoss

	roi := 0.0
	if buy > 0 {
		roi = net / float64(buy) * 100
	}

	tier := classify(net, roi)

	roiScore := int(clampF(roi*roiWeight, math.MinInt32, math.MaxInt32))

	volumeScore := 0
	if st.AvgVolume > 0 {
		volumeScore = int(clampF(math.Log10(st.AvgVolume)*volumeWeight, 0, volumeScoreCap))
	}

	var profitScore int
	if net > 0 {
		profitScore = int(math.Min(net/profitScoreUnit, profitScoreCap))
	} else {
		profitScore = int(math.Max(net/profitScoreUnit, -profitScoreCap))
	}

	// Price swings are what a flipper lives on, so volatility earns points.
	volatilityScore := int(math.Min(volatility, volatilityScoreCap) / 2)

	reliabilityScore := int(math.Min(float64(st.DataPoints)/reliabilityUnit, reliabilityCap))

	spreadScore := 0
	if priceRange < float64(buy)*tightSpreadRatio {
		spreadScore = spreadPenalty
	}

	var trendScore int
	if st.PriceTrend > 0 {
		trendScore = int(math.Min(st.PriceTrend, trendScoreCap) / 2)
	} else {
		trendScore = int(math.Max(st.PriceTrend, -trendScoreCap) / 2)
	}

	// Many removed outliers means the raw series was unstable to begin with.
	outlierScore := 0
	if st.OutliersRemoved > st.DataPoints/5 {
		outlierScore = outlierPenaltyHeavy
	} else if st.OutliersRemoved > 0 {
		outlierScore = outlierPenaltyLight
	}

	// Crashes are penalized hard but not fatally: a falling knife is risky,
	// yet the best flips start near a bottom.
	crashScore := 0
	switch {
	case recentTrendCrash:
		crashScore = crashPenaltyRecent
	case priceCrashed:
		crashScore = crashPenaltyPlain
	case priceSpiked:
		crashScore = spikePenalty
	}

	score := saturatingSum(
		roiScore, volumeScore, profitScore, volatilityScore,
		reliabilityScore, spreadScore, trendScore, outlierScore, crashScore,
	)

	notes := buildNotes(noteInputs{
		recentTrendCrash: recentTrendCrash,
		useRecent:        useRecent,
		priceCrashed:     priceCrashed,
		priceSpiked:      priceSpiked,
		outliersRemoved:  st.OutliersRemoved,
		volatility:       volatility,
		spread:           sell - buy,
		q05:              q05,
		q95:              q95,
		dataPoints:       st.DataPoints,
	})

	return models.FlipResult{
		ItemID:    st.ItemID,
		Name:      st.Name,
		Score:     score,
		Tier:      tier,
		Buy:       buy,
		Sell:      sell,
		Qty:       1,
		Profit:    int64(math.Round(net)),
		ROI:       roi,
		AvgVolume: st.AvgVolume,
		Notes:     notes,
	}
}

// classify maps profitability onto the tier ladder; first match wins.
// Volatility never forces CRASH here; the crash penalties lower the
// score instead.
func classify(net, roi float64) models.Tier {
	switch {
	case net < 0:
		return models.TierCrash
	case roi > diamondROI || net > diamondProfit:
		return models.TierDiamond
	case roi > goldROI || net > goldProfit:
		return models.TierGold
	case roi > greenROI || net > greenProfit:
		return models.TierGreen
	default:
		return models.TierNormal
	}
}

type noteInputs struct {
	recentTrendCrash bool
	useRecent        bool
	priceCrashed     bool
	priceSpiked      bool
	outliersRemoved  int
	volatility       float64
	spread           int64
	q05, q95         float64
	dataPoints       int
}

// buildNotes renders the diagnostic annotation. Display text only; nothing
// downstream may parse it.
func buildNotes(in noteInputs) string {
	prefix := ""
	if in.recentTrendCrash {
		prefix = "VOLATILE-CRASHING | "
	} else if in.useRecent {
		if in.priceCrashed {
			prefix = "Crashed | "
		} else if in.priceSpiked {
			prefix = "Spiked | "
		}
	}
	if in.outliersRemoved > 0 {
		prefix += fmt.Sprintf("%d outliers | ", in.outliersRemoved)
	}

	return fmt.Sprintf("%sVol:%.0f%% | Spread:%dgp | Q5-Q95:%.0f-%.0f | Data:%dpts",
		prefix, in.volatility, in.spread,
		math.Round(in.q05), math.Round(in.q95), in.dataPoints)
}

// saturatingSum adds int32-range sub-scores without wrapping: the running
// total pins to the int32 bounds instead of overflowing.
func saturatingSum(scores ...int) int {
	total := int64(0)
	for _, s := range scores {
		total += int64(s)
		if total > math.MaxInt32 {
			total = math.MaxInt32
		} else if total < math.MinInt32 {
			total = math.MinInt32
		}
	}
	return int(total)
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func meanOf(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
