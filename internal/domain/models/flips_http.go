package models

// Requests for the flips HTTP endpoints. Defined in domain for consistency and reuse.

type ScanRequest struct {
	Budget int64 `query:"budget" json:"budget" default:"0" validate:"gte=0"`
	// Tax is a pointer so an omitted parameter falls back to the configured
	// rate instead of a hardcoded one.
	Tax       *float64 `query:"tax" json:"tax" validate:"omitempty,gte=0,lte=0.2"`
	MinVolume float64  `query:"min_volume" json:"min_volume" default:"0" validate:"gte=0"`
	Limit     int      `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}

type HistoryRequest struct {
	Item string `query:"item" json:"item" validate:"required"`
	Days int    `query:"days" json:"days" default:"365" validate:"gte=1,lte=1825"`
}

type ItemFlipRequest struct {
	Tax *float64 `query:"tax" json:"tax" validate:"omitempty,gte=0,lte=0.2"`
}

type BackfillRequest struct {
	// ItemIDs to backfill; empty means every known item.
	ItemIDs []int64 `json:"item_ids" validate:"dive,gt=0"`
}
