package gedump

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"FlipScan/internal/domain/models"
	drepo "FlipScan/internal/domain/repository"
	pkghttp "FlipScan/pkg/http"
	"FlipScan/pkg/util"
)

// defaultGELimit is assumed when the dump omits an item's buy limit.
const defaultGELimit = 10000

// Client fetches Grand Exchange market data over HTTP: the full daily price
// dump and per-item price history.
type Client struct {
	http       *pkghttp.Client
	dumpURL    string
	historyURL string
	userAgent  string
}

// New creates a SnapshotSource backed by the exchange data service.
func New(dumpURL, historyURL, userAgent string, timeout time.Duration) drepo.SnapshotSource {
	return &Client{
		http:       pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		dumpURL:    dumpURL,
		historyURL: historyURL,
		userAgent:  userAgent,
	}
}

// dumpEntry is one item in the daily dump. The dump is a single JSON object
// keyed by item id; a few keys are metadata rather than items, so fields are
// pointers and entries without a price are skipped.
type dumpEntry struct {
	Name   string `json:"name"`
	Limit  *int64 `json:"limit"`
	Price  *int64 `json:"price"`
	Volume *int64 `json:"volume"`
}

// FetchDump downloads the full daily dump and returns one snapshot per item,
// all dated with the given day (truncated to UTC midnight).
func (c *Client) FetchDump(ctx context.Context, day time.Time) ([]*models.Snapshot, error) {
	var raw map[string]json.RawMessage
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:  pkghttp.MethodGet,
		URL:     c.dumpURL,
		Headers: map[string]string{"User-Agent": c.userAgent},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("fetch dump: %w", err)
	}

	day = util.TruncateDay(day)

	snaps := make([]*models.Snapshot, 0, len(raw))
	for key, msg := range raw {
		itemID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue // metadata key, not an item
		}
		var e dumpEntry
		if err := json.Unmarshal(msg, &e); err != nil || e.Price == nil {
			continue
		}
		limit := int64(defaultGELimit)
		if e.Limit != nil {
			limit = *e.Limit
		}
		var volume int64
		if e.Volume != nil {
			volume = *e.Volume
		}
		snaps = append(snaps, &models.Snapshot{
			ItemID:  itemID,
			Name:    e.Name,
			GELimit: limit,
			Day:     day,
			Price:   *e.Price,
			Volume:  volume,
		})
	}

	// Map iteration order is random; keep the batch deterministic.
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ItemID < snaps[j].ItemID })

	return snaps, nil
}

// histRecord is one point of the per-item history endpoint. Timestamps are
// unix milliseconds; volume may be null for old records.
type histRecord struct {
	Timestamp int64  `json:"timestamp"`
	Price     int64  `json:"price"`
	Volume    *int64 `json:"volume"`
}

// FetchItemHistory downloads the complete price history for one item. The
// endpoint does not carry item names or limits; those come from the daily
// dump rows instead.
func (c *Client) FetchItemHistory(ctx context.Context, itemID int64) ([]*models.Snapshot, error) {
	id := strconv.FormatInt(itemID, 10)

	var raw map[string][]histRecord
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         c.historyURL,
		Headers:     map[string]string{"User-Agent": c.userAgent},
		QueryParams: map[string][]string{"id": {id}},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("fetch history for item %d: %w", itemID, err)
	}

	records := raw[id]
	snaps := make([]*models.Snapshot, 0, len(records))
	for _, r := range records {
		if r.Timestamp <= 0 {
			continue
		}
		var volume int64
		if r.Volume != nil {
			volume = *r.Volume
		}
		snaps = append(snaps, &models.Snapshot{
			ItemID: itemID,
			Day:    util.TruncateDay(time.UnixMilli(r.Timestamp).UTC()),
			Price:  r.Price,
			Volume: volume,
		})
	}

	return snaps, nil
}
