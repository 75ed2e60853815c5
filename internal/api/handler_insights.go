package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ady24s/Cloud9/internal/auth"
	"github.com/ady24s/Cloud9/internal/insights"
	"github.com/ady24s/Cloud9/internal/store"
)

// insightHistoryLimit caps how many recent samples feed the summary.
const insightHistoryLimit = 1000

// InsightHandler serves cost and utilization summaries computed on
// demand from stored metrics. Nothing is cached; an empty history
// yields an all-zero summary, not an error.
type InsightHandler struct {
	metrics *store.MetricStore
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(metrics *store.MetricStore) *InsightHandler {
	return &InsightHandler{metrics: metrics}
}

// Get returns the caller's current insight summary
// GET /api/v1/insights
func (h *InsightHandler) Get(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	rows, err := h.metrics.ListForUser(c.Request().Context(), userID, insightHistoryLimit)
	if err != nil {
		return ErrorInternal(c, "failed to load metric history")
	}

	return c.JSON(http.StatusOK, insights.Aggregate(rows))
}

// ListMetrics returns the caller's most recent raw samples
// GET /api/v1/metrics
func (h *InsightHandler) ListMetrics(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= insightHistoryLimit {
			limit = n
		}
	}

	rows, err := h.metrics.ListForUser(c.Request().Context(), userID, limit)
	if err != nil {
		return ErrorInternal(c, "failed to load metrics")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"metrics": rows,
		"total":   len(rows),
	})
}
