package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/basket-tracker/internal/services"
)

// FetcherStatusReporter exposes fetch counters
type FetcherStatusReporter interface {
	Status() services.FetcherStatus
}

// NextRunReporter reports when a scheduled job fires next
type NextRunReporter interface {
	NextRun(name string) (time.Time, bool)
}

type RunHandler struct {
	snapshots    *services.SnapshotService
	batchFetcher FetcherStatusReporter
	liveFetcher  FetcherStatusReporter
	schedule     NextRunReporter
	jobName      string
}

// NewRunHandler creates the run handler. schedule may be nil when the
// in-process scheduler is disabled.
func NewRunHandler(snapshots *services.SnapshotService, batch, live FetcherStatusReporter, schedule NextRunReporter, jobName string) *RunHandler {
	return &RunHandler{
		snapshots:    snapshots,
		batchFetcher: batch,
		liveFetcher:  live,
		schedule:     schedule,
		jobName:      jobName,
	}
}

// TriggerDaily runs the gated batch aggregation now
func (h *RunHandler) TriggerDaily(c *gin.Context) {
	report, err := h.snapshots.RunDaily(c.Request.Context(), services.TriggerManual)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetStatus returns the last run, fetcher counters and the next scheduled run
func (h *RunHandler) GetStatus(c *gin.Context) {
	resp := gin.H{
		"last_run": h.snapshots.LastRun(),
	}
	if h.batchFetcher != nil {
		resp["batch_fetcher"] = h.batchFetcher.Status()
	}
	if h.liveFetcher != nil {
		resp["live_fetcher"] = h.liveFetcher.Status()
	}
	if h.schedule != nil {
		if next, ok := h.schedule.NextRun(h.jobName); ok {
			resp["next_run"] = next
		}
	}
	c.JSON(http.StatusOK, resp)
}
