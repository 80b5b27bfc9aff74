package models

import "time"

// Snapshot is one observed (item, day, price, volume) sample from the
// Grand Exchange dump. One row per item per sampled day. The JSON form is
// also the kafka wire format for the snapshots topic.
type Snapshot struct {
	ItemID  int64     `json:"item_id"`
	Name    string    `json:"name"`
	GELimit int64     `json:"ge_limit"` // daily buy limit for the item
	Day     time.Time `json:"day"`
	Price   int64     `json:"price"`
	Volume  int64     `json:"volume"`
}

// ItemStats summarizes one item's price history for a scan. Built once per
// scan by the stats aggregator and treated as immutable afterwards.
type ItemStats struct {
	ItemID  int64
	Name    string
	GELimit int64

	CurrentPrice float64 // most recent observed price
	PrevPrice    float64 // second most recent, or CurrentPrice if only one

	AvgVolume     float64
	CurrentVolume float64
	StdDev        float64

	// Distribution markers over the full sorted series.
	Q10 float64
	Q50 float64
	Q90 float64

	DataPoints int

	// Prices holds every observed price, sorted ascending.
	Prices []float64

	// FilteredPrices is Prices with IQR outliers removed; empty means the
	// filter was not applied. OutliersRemoved counts the dropped points.
	FilteredPrices  []float64
	OutliersRemoved int

	// RecentPrices holds the last RecentWindow observations sorted ascending;
	// RecentPricesChrono holds the same points in arrival order, which is what
	// within-window momentum checks need.
	RecentPrices       []float64
	RecentPricesChrono []float64

	// PriceTrend is the OLS slope of price against observation index.
	// Positive means rising.
	PriceTrend float64
}
