package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/codyseavey/basket-tracker/internal/api"
	"github.com/codyseavey/basket-tracker/internal/api/handlers"
	"github.com/codyseavey/basket-tracker/internal/calendar"
	"github.com/codyseavey/basket-tracker/internal/config"
	"github.com/codyseavey/basket-tracker/internal/database"
	"github.com/codyseavey/basket-tracker/internal/logger"
	"github.com/codyseavey/basket-tracker/internal/scheduler"
	"github.com/codyseavey/basket-tracker/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger config is not available yet
		bootLog := logger.New(logger.Config{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := database.OpenStore(ctx, cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("Failed to initialize database")
	}
	defer st.Close()

	// Batch fetches go to the network every time; the live view is cached
	batchFetcher := services.NewReturnFetcher(services.FetcherConfig{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
		Interval:  cfg.FetchInterval,
	}, log)
	liveFetcher := services.NewReturnFetcher(services.FetcherConfig{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
		Interval:  cfg.FetchInterval,
		CacheTTL:  cfg.FetchCacheTTL,
	}, log)

	gate := services.NewTradingDayGate(loadCalendar(cfg.CalendarFile, log), log)

	snapshotService := services.NewSnapshotService(services.SnapshotServiceConfig{
		Store:        st,
		Basket:       st,
		Aggregator:   services.NewAggregator(batchFetcher, cfg.FetchConcurrency, log),
		Gate:         gate,
		Location:     cfg.Timezone,
		SnapshotHour: cfg.SnapshotHour,
	}, log)
	portfolioService := services.NewPortfolioService(st, services.NewAggregator(liveFetcher, cfg.FetchConcurrency, log), liveFetcher, snapshotService, log)
	analyticsService := services.NewAnalyticsService(st, snapshotService.Today, log)

	var schedule handlers.NextRunReporter
	if cfg.SchedulerEnabled {
		sched := scheduler.New(ctx, cfg.Timezone, log)
		if err := sched.AddJob(cfg.DailySchedule, scheduler.NewDailyRunJob(snapshotService)); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.DailySchedule).Msg("Invalid DAILY_SCHEDULE")
		}
		sched.Start()
		defer sched.Stop()
		schedule = sched

		// Record today's snapshot if the server was down at the scheduled time
		go func() {
			if _, err := snapshotService.CatchUp(ctx); err != nil {
				log.Error().Err(err).Msg("Startup catch-up failed")
			}
		}()
	} else {
		log.Info().Msg("In-process scheduler disabled, expecting an external daily-fetch")
	}

	// Setup router
	router := api.SetupRouter(api.Dependencies{
		Portfolio:    portfolioService,
		Snapshots:    snapshotService,
		Analytics:    analyticsService,
		BatchFetcher: batchFetcher,
		LiveFetcher:  liveFetcher,
		Schedule:     schedule,
		DailyJobName: scheduler.DailyRunJobName,
		CORSOrigins:  cfg.CORSOrigins,
		Log:          log,
	})

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Cancel the context to stop pending fetches
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// loadCalendar returns nil when the file cannot be used, which puts the
// trading-day gate on the weekday rule
func loadCalendar(path string, log zerolog.Logger) services.Calendar {
	if path == "" {
		return nil
	}
	cal, err := calendar.LoadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Trading calendar unavailable, using weekday rule")
		return nil
	}
	log.Info().
		Str("exchange", cal.Exchange()).
		Str("timezone", cal.Location().String()).
		Str("path", path).
		Msg("Loaded trading calendar")
	return cal
}
