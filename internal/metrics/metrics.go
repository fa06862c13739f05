// Package metrics provides Prometheus metrics for the basket tracker.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "basket_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Return fetch metrics
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_fetch_requests_total",
			Help: "Return fetches by result",
		},
		[]string{"result"}, // "ok", "http_error", "status", "no_match", "read_error", "cancelled"
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "basket_fetch_duration_seconds",
			Help:    "Time taken to fetch one return source",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	FetchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basket_fetch_cache_hits_total",
			Help: "Return fetches served from the interactive cache",
		},
	)

	FetchCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basket_fetch_cache_misses_total",
			Help: "Return fetches that missed the interactive cache",
		},
	)

	// Trading day gate
	CalendarFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basket_calendar_fallbacks_total",
			Help: "Trading day checks that fell back to the weekday rule",
		},
	)

	// Aggregation runs
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_runs_total",
			Help: "Aggregation runs by trigger and outcome",
		},
		[]string{"trigger", "outcome"}, // trigger: "schedule", "catchup", "manual", "interactive"; outcome: "saved", "skipped", "failed"
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "basket_run_duration_seconds",
			Help:    "Time taken by one aggregation run including persistence",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	PortfolioReturnPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "basket_portfolio_return_percent",
			Help: "Most recently recorded portfolio return in percent",
		},
	)

	BasketEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "basket_entries",
			Help: "Number of securities in the basket at the last aggregation",
		},
	)
)

// GinMiddleware records request counts and latency by route template
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
