package models

import "time"

// Tier is the coarse quality bucket assigned to a flip candidate.
type Tier string

const (
	TierNone    Tier = "NONE" // insufficient data sentinel
	TierCrash   Tier = "CRASH"
	TierNormal  Tier = "NORMAL"
	TierGreen   Tier = "GREEN"
	TierGold    Tier = "GOLD"
	TierDiamond Tier = "DIAMOND"
)

// FlipResult is one item's flip recommendation for a single scan.
type FlipResult struct {
	ItemID int64  `json:"item_id"`
	Name   string `json:"name"`

	Score int  `json:"score"`
	Tier  Tier `json:"tier"`

	Buy  int64 `json:"buy"`
	Sell int64 `json:"sell"`

	// Qty and the totals are filled in by the scan use case when a budget
	// is supplied; the scorer itself always recommends a single unit.
	Qty         int64 `json:"qty"`
	Profit      int64 `json:"profit"` // net of tax, per unit
	TotalCost   int64 `json:"total_cost,omitempty"`
	TotalProfit int64 `json:"total_profit,omitempty"`

	ROI       float64 `json:"roi"`
	AvgVolume float64 `json:"avg_volume"`
	Trend     float64 `json:"trend"` // OLS slope, filled in by the scan use case

	// Notes is display text only; consumers must not parse it.
	Notes string `json:"notes"`
}

// EmptyFlipResult is the "not enough data to analyze" sentinel. Callers detect
// it by the NONE tier (score and prices are all zero).
func EmptyFlipResult() FlipResult {
	return FlipResult{Tier: TierNone, Qty: 0}
}

// ScanResult is the full output of one market scan.
type ScanResult struct {
	GeneratedAt time.Time    `json:"generated_at"`
	WindowDays  int          `json:"window_days"`
	ItemCount   int          `json:"item_count"` // items analyzed before filters
	Flips       []FlipResult `json:"flips"`
}

// ItemFlip pairs one item's statistics with its flip recommendation, for the
// single-item endpoint.
type ItemFlip struct {
	ItemID     int64      `json:"item_id"`
	Name       string     `json:"name"`
	GELimit    int64      `json:"ge_limit"`
	DataPoints int        `json:"data_points"`
	Current    float64    `json:"current_price"`
	Q10        float64    `json:"q10"`
	Q50        float64    `json:"q50"`
	Q90        float64    `json:"q90"`
	StdDev     float64    `json:"std_dev"`
	Trend      float64    `json:"trend"`
	Flip       FlipResult `json:"flip"`
}

// PricePoint is one (day, price) sample of an item's history, used by the
// single-item history view.
type PricePoint struct {
	Day   string  `json:"day"`
	Price float64 `json:"price"`
}
