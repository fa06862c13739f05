package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/basket-tracker/internal/models"
	"github.com/codyseavey/basket-tracker/internal/services"
)

type AnalyticsHandler struct {
	snapshots *services.SnapshotService
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(snapshots *services.SnapshotService, analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{snapshots: snapshots, analytics: analytics}
}

// GetSnapshots returns the snapshot series for charting
func (h *AnalyticsHandler) GetSnapshots(c *gin.Context) {
	period := services.NormalizePeriod(c.DefaultQuery("period", "month"))

	snapshots, err := h.snapshots.GetHistory(c.Request.Context(), period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.SnapshotHistoryResponse{
		Snapshots: snapshots,
		Period:    period,
	})
}

// GetHistory returns the per-security contribution ledger
func (h *AnalyticsHandler) GetHistory(c *gin.Context) {
	rows, err := h.analytics.History(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *AnalyticsHandler) GetBenchmarks(c *gin.Context) {
	benchmarks, err := h.analytics.Benchmarks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, benchmarks)
}

// PutBenchmark records a benchmark return; the date defaults to today
func (h *AnalyticsHandler) PutBenchmark(c *gin.Context) {
	var req models.UpsertBenchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.analytics.SaveBenchmark(c.Request.Context(), req.Date, *req.ReturnPercent)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

// GetRolling returns rolling-window changes, e.g. ?windows=3,5,10
func (h *AnalyticsHandler) GetRolling(c *gin.Context) {
	windows, err := parseWindows(c.Query("windows"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rolling, err := h.analytics.Rolling(c.Request.Context(), windows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"windows": rolling})
}

// GetComparison returns the portfolio series joined with the benchmark
func (h *AnalyticsHandler) GetComparison(c *gin.Context) {
	cmp, err := h.analytics.Comparison(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func parseWindows(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var windows []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		windows = append(windows, n)
	}
	return windows, nil
}
