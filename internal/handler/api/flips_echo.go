package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	models "FlipScan/internal/domain/models"
	icache "FlipScan/internal/service/cache"
	"FlipScan/internal/service/metrics"
	"FlipScan/internal/service/ratelimit"
	"FlipScan/internal/usecase"
	xhttp "FlipScan/pkg/http"
	xlogger "FlipScan/pkg/logger"
)

// fallbackTaxRate applies when no rate is configured.
const fallbackTaxRate = 0.02

// FlipsEchoHandler exposes the scan, history and backfill endpoints.
type FlipsEchoHandler struct {
	logger   *xlogger.Logger
	scan     *usecase.ScanUseCase
	history  *usecase.HistoryUseCase
	backfill *usecase.BackfillUseCase
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
	cacheTTL time.Duration
	taxRate  float64
}

func NewFlipsEchoHandler(
	logger *xlogger.Logger,
	scan *usecase.ScanUseCase,
	history *usecase.HistoryUseCase,
	backfill *usecase.BackfillUseCase,
	taxRate float64,
) *FlipsEchoHandler {
	metrics.Register()
	if taxRate <= 0 {
		taxRate = fallbackTaxRate
	}
	return &FlipsEchoHandler{
		logger:   logger,
		scan:     scan,
		history:  history,
		backfill: backfill,
		rl:       ratelimit.New(),
		cacheTTL: 5 * time.Minute,
		taxRate:  taxRate,
	}
}

// taxOrDefault resolves a request's tax parameter against the configured rate.
func (h *FlipsEchoHandler) taxOrDefault(t *float64) float64 {
	if t != nil {
		return *t
	}
	return h.taxRate
}

// SetCache enables response caching for the scan endpoints. Daily data makes
// a generous TTL safe.
func (h *FlipsEchoHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

func (h *FlipsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/flips", h.Flips)
	g.GET("/history", h.History)
	g.GET("/items/:id/flip", h.ItemFlip)
	g.POST("/backfill", h.Backfill)
}

func (h *FlipsEchoHandler) Flips(c echo.Context) error {
	start := time.Now()
	endpoint := "flips"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.rl.Allow(c.RealIP()+":flips", 5, 2) {
		h.logger.Warn("flips rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.TooManyRequestsResponse(c)
	}

	tax := h.taxOrDefault(req.Tax)
	cacheKey := fmt.Sprintf("flips:%d:%g:%g:%d", req.Budget, tax, req.MinVolume, req.Limit)
	if b, ok := h.cacheGet(cacheKey); ok {
		var cached models.ScanResult
		if err := json.Unmarshal(b, &cached); err == nil {
			return xhttp.SuccessResponse(c, &cached)
		}
	}

	res, err := h.scan.Scan(c.Request().Context(), usecase.ScanParams{
		Budget:    req.Budget,
		Tax:       tax,
		MinVolume: req.MinVolume,
		Limit:     req.Limit,
	})
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("scan usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	h.cacheSet(cacheKey, res)
	return xhttp.SuccessResponse(c, res)
}

func (h *FlipsEchoHandler) History(c echo.Context) error {
	start := time.Now()
	endpoint := "history"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	points, err := h.history.GetHistory(c.Request().Context(), req.Item, req.Days)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, points, int64(len(points)))
}

func (h *FlipsEchoHandler) ItemFlip(c echo.Context) error {
	start := time.Now()
	endpoint := "item_flip"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || itemID <= 0 {
		return xhttp.BadRequestResponse(c, "invalid item id")
	}

	req := &models.ItemFlipRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.scan.ScanItem(c.Request().Context(), itemID, h.taxOrDefault(req.Tax))
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("item flip usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res.Flip.Tier == models.TierNone {
		return xhttp.NotFoundResponse(c, "no data for item")
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *FlipsEchoHandler) Backfill(c echo.Context) error {
	endpoint := "backfill"

	req := &models.BackfillRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	// One token per minute: a full backfill is thousands of upstream calls.
	if !h.rl.Allow(c.RealIP()+":backfill", 1, 1.0/60) {
		h.logger.Warn("backfill rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.TooManyRequestsResponse(c)
	}

	n, err := h.backfill.Enqueue(c.Request().Context(), *req)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("backfill enqueue error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, map[string]int{"enqueued": n})
}

func (h *FlipsEchoHandler) cacheGet(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.logger.Warn("cache get error", xlogger.Error(err))
		return nil, false
	}
	return b, ok
}

func (h *FlipsEchoHandler) cacheSet(key string, v interface{}) {
	if h.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := h.cache.SetBytes(key, b, h.cacheTTL); err != nil {
		h.logger.Warn("cache set error", xlogger.Error(err))
	}
}
