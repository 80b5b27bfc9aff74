package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlipScan/internal/domain/models"
	"FlipScan/internal/usecase"
)

type stubHistoryStore struct {
	snaps []models.Snapshot
}

func (s *stubHistoryStore) QueryWindow(context.Context, int) ([]models.Snapshot, error) {
	return s.snaps, nil
}

func (s *stubHistoryStore) QueryItemWindow(context.Context, int64, int) ([]models.Snapshot, error) {
	return s.snaps, nil
}

func (s *stubHistoryStore) QueryItemHistory(context.Context, string, int) ([]models.PricePoint, error) {
	return nil, nil
}

func (s *stubHistoryStore) KnownItemIDs(context.Context) ([]int64, error) { return nil, nil }

type silentMetrics struct{}

func (silentMetrics) RecordSnapshotStored(string)   {}
func (silentMetrics) RecordError(string)            {}
func (silentMetrics) RecordItemsScanned(int)        {}
func (silentMetrics) RecordLatency(string, float64) {}

func flatSeries(itemID int64, price int64, days int) []models.Snapshot {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snaps := make([]models.Snapshot, 0, days)
	for i := 0; i < days; i++ {
		snaps = append(snaps, models.Snapshot{
			ItemID:  itemID,
			Name:    "Yew logs",
			GELimit: 25000,
			Day:     day.AddDate(0, 0, i),
			Price:   price,
			Volume:  1000,
		})
	}
	return snaps
}

func newTestHandler(t *testing.T, taxRate float64, snaps []models.Snapshot) *FlipsEchoHandler {
	t.Helper()
	scan := usecase.NewScanUseCase(&stubHistoryStore{snaps: snaps}, silentMetrics{}, 90)
	return NewFlipsEchoHandler(nil, scan, nil, nil, taxRate)
}

func TestTaxOrDefault(t *testing.T) {
	h := newTestHandler(t, 0.05, nil)

	ptr := func(v float64) *float64 { return &v }

	assert.Equal(t, 0.05, h.taxOrDefault(nil))
	assert.Equal(t, 0.1, h.taxOrDefault(ptr(0.1)))
	// An explicit zero is a request for no tax, not an omission.
	assert.Equal(t, 0.0, h.taxOrDefault(ptr(0)))
}

func TestTaxDefaultFallsBackWhenUnconfigured(t *testing.T) {
	h := newTestHandler(t, 0, nil)
	assert.Equal(t, fallbackTaxRate, h.taxOrDefault(nil))
}

func TestItemFlipUsesConfiguredTaxWhenOmitted(t *testing.T) {
	// A flat price series has zero spread, so the per-unit profit is exactly
	// the sell-side tax: -price*rate. With scan.tax_rate 0.1 that is -10gp.
	h := newTestHandler(t, 0.1, flatSeries(1515, 100, 20))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/items/1515/flip", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1515")

	require.NoError(t, h.ItemFlip(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.ItemFlip `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(-10), body.Data.Flip.Profit)
}

func TestItemFlipExplicitTaxOverridesConfig(t *testing.T) {
	h := newTestHandler(t, 0.1, flatSeries(1515, 100, 20))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/items/1515/flip?tax=0.02", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1515")

	require.NoError(t, h.ItemFlip(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.ItemFlip `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(-2), body.Data.Flip.Profit)
}
