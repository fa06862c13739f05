package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/codyseavey/basket-tracker/internal/api/handlers"
	"github.com/codyseavey/basket-tracker/internal/metrics"
	"github.com/codyseavey/basket-tracker/internal/services"
)

// Dependencies are the services the HTTP API serves
type Dependencies struct {
	Portfolio    *services.PortfolioService
	Snapshots    *services.SnapshotService
	Analytics    *services.AnalyticsService
	BatchFetcher handlers.FetcherStatusReporter
	LiveFetcher  handlers.FetcherStatusReporter
	Schedule     handlers.NextRunReporter // nil when the scheduler is disabled
	DailyJobName string
	CORSOrigins  []string
	Log          zerolog.Logger
}

func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(deps.Log))
	router.Use(metrics.GinMiddleware())

	// CORS configuration - allow configured origins or local dev defaults
	config := cors.DefaultConfig()
	if len(deps.CORSOrigins) > 0 {
		config.AllowOrigins = deps.CORSOrigins
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	// Initialize handlers
	basketHandler := handlers.NewBasketHandler(deps.Portfolio)
	portfolioHandler := handlers.NewPortfolioHandler(deps.Portfolio)
	runHandler := handlers.NewRunHandler(deps.Snapshots, deps.BatchFetcher, deps.LiveFetcher, deps.Schedule, deps.DailyJobName)
	analyticsHandler := handlers.NewAnalyticsHandler(deps.Snapshots, deps.Analytics)

	// API routes
	api := router.Group("/api")
	{
		basket := api.Group("/basket")
		{
			basket.GET("", basketHandler.GetBasket)
			basket.POST("", basketHandler.SaveEntry)
			basket.PUT("/:symbol", basketHandler.UpdateEntry)
			basket.DELETE("/:symbol", basketHandler.DeleteEntry)
		}

		portfolio := api.Group("/portfolio")
		{
			portfolio.GET("/live", portfolioHandler.GetLive)
			portfolio.POST("/refresh", portfolioHandler.Refresh)
			portfolio.POST("/snapshot", portfolioHandler.SaveSnapshot)
		}

		runs := api.Group("/runs")
		{
			runs.POST("/daily", runHandler.TriggerDaily)
			runs.GET("/status", runHandler.GetStatus)
		}

		api.GET("/snapshots", analyticsHandler.GetSnapshots)
		api.GET("/history", analyticsHandler.GetHistory)
		api.GET("/benchmarks", analyticsHandler.GetBenchmarks)
		api.PUT("/benchmarks", analyticsHandler.PutBenchmark)

		analytics := api.Group("/analytics")
		{
			analytics.GET("/rolling", analyticsHandler.GetRolling)
			analytics.GET("/comparison", analyticsHandler.GetComparison)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

// requestLogger logs one line per request
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}
