// daily-fetch records one day's portfolio snapshot and ledger rows, for
// hosts that schedule the batch run externally (cron, systemd timers).
//
// Usage: daily-fetch [-db=<path>] [-date=YYYY-MM-DD] [-force]
//
// The tool:
// 1. Skips non-trading days unless -force is given
// 2. Fetches every basket entry's return, sequentially by default
// 3. Writes the snapshot and ledger rows in one transaction
//
// Exit status is 0 when the run was saved or skipped, 1 when it failed or
// could not be persisted, 2 for invalid flags.
//
// A plain invocation is recorded as a scheduled run; -date or -force mark it
// as a manual one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/codyseavey/basket-tracker/internal/calendar"
	"github.com/codyseavey/basket-tracker/internal/config"
	"github.com/codyseavey/basket-tracker/internal/database"
	"github.com/codyseavey/basket-tracker/internal/logger"
	"github.com/codyseavey/basket-tracker/internal/models"
	"github.com/codyseavey/basket-tracker/internal/services"
)

func main() {
	dbPath := flag.String("db", "", "Path to SQLite database (overrides PORTFOLIO_DB)")
	dateFlag := flag.String("date", "", "Run date YYYY-MM-DD (default: today in TIMEZONE)")
	force := flag.Bool("force", false, "Record even if the date is not a trading day")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBDriver = config.DriverSQLite
		cfg.DBPath = *dbPath
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	var runDate models.Date
	if *dateFlag != "" {
		runDate, err = models.ParseDate(*dateFlag)
		if err != nil {
			log.Error().Err(err).Msg("Invalid -date")
			os.Exit(2)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, runDate, *force, log))
}

func run(ctx context.Context, cfg *config.Config, runDate models.Date, force bool, log zerolog.Logger) int {
	st, err := database.OpenStore(ctx, cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database")
		return 1
	}
	defer st.Close()

	var cal services.Calendar
	if h, err := calendar.LoadFile(cfg.CalendarFile); err != nil {
		log.Warn().Err(err).Str("path", cfg.CalendarFile).Msg("Trading calendar unavailable, using weekday rule")
	} else {
		cal = h
	}

	fetcher := services.NewReturnFetcher(services.FetcherConfig{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
		Interval:  cfg.FetchInterval,
	}, log)

	svc := services.NewSnapshotService(services.SnapshotServiceConfig{
		Store:        st,
		Basket:       st,
		Aggregator:   services.NewAggregator(fetcher, cfg.FetchConcurrency, log),
		Gate:         services.NewTradingDayGate(cal, log),
		Location:     cfg.Timezone,
		SnapshotHour: cfg.SnapshotHour,
	}, log)

	report, err := svc.Run(ctx, services.RunOptions{
		Trigger: triggerFor(runDate, force),
		Date:    runDate,
		Force:   force,
	})
	if err != nil {
		log.Error().Err(err).Msg("Daily run failed")
		return 1
	}

	event := log.Info().
		Str("date", report.Date.String()).
		Str("trigger", string(report.Trigger)).
		Str("outcome", report.Outcome)
	if report.Outcome == services.OutcomeSaved {
		event = event.
			Str("run_id", report.RunID).
			Str("portfolio_return", models.SignedPercent(report.PortfolioReturnPercent, 2)).
			Int("positive", report.PositiveCount).
			Int("entries", report.Entries).
			Int("warnings", len(report.Warnings))
	} else {
		event = event.Str("reason", report.Reason)
	}
	event.Msg("Daily run finished")
	return 0
}

// triggerFor labels a run: overrides mean an operator is driving it
func triggerFor(runDate models.Date, force bool) services.RunTrigger {
	if force || !runDate.IsZero() {
		return services.TriggerManual
	}
	return services.TriggerSchedule
}
