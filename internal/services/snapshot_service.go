package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codyseavey/basket-tracker/internal/metrics"
	"github.com/codyseavey/basket-tracker/internal/models"
	"github.com/codyseavey/basket-tracker/internal/store"
)

// RunTrigger names what started an aggregation run
type RunTrigger string

const (
	TriggerSchedule    RunTrigger = "schedule"
	TriggerCatchUp     RunTrigger = "catchup"
	TriggerManual      RunTrigger = "manual"
	TriggerInteractive RunTrigger = "interactive"
)

// Run outcomes
const (
	OutcomeSaved   = "saved"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// RunReport describes one aggregation run
type RunReport struct {
	RunID                  string      `json:"run_id,omitempty"`
	Trigger                RunTrigger  `json:"trigger"`
	Date                   models.Date `json:"date"`
	Outcome                string      `json:"outcome"`
	Reason                 string      `json:"reason,omitempty"`
	PortfolioReturnPercent float64     `json:"portfolio_return_percent"`
	Entries                int         `json:"entries"`
	PositiveCount          int         `json:"positive_count"`
	Warnings               []string    `json:"warnings,omitempty"`
	Error                  string      `json:"error,omitempty"`
	StartedAt              time.Time   `json:"started_at"`
	FinishedAt             time.Time   `json:"finished_at"`
}

// RunOptions controls a batch run
type RunOptions struct {
	Trigger RunTrigger
	Date    models.Date // zero means today in the service's location
	Force   bool        // skip the trading-day gate
}

// SnapshotService records the daily portfolio snapshot and ledger rows
type SnapshotService struct {
	store        store.SnapshotStore
	basket       store.BasketStore
	aggregator   *Aggregator
	gate         *TradingDayGate
	loc          *time.Location
	snapshotHour int // Hour of day after which a missing snapshot is caught up (0-23)
	now          func() time.Time
	log          zerolog.Logger

	runMu sync.Mutex // one writer at a time

	mu      sync.RWMutex
	lastRun *RunReport
}

// SnapshotServiceConfig holds the collaborators of a SnapshotService
type SnapshotServiceConfig struct {
	Store        store.SnapshotStore
	Basket       store.BasketStore
	Aggregator   *Aggregator
	Gate         *TradingDayGate
	Location     *time.Location
	SnapshotHour int
	Now          func() time.Time // defaults to time.Now
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(cfg SnapshotServiceConfig, log zerolog.Logger) *SnapshotService {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SnapshotService{
		store:        cfg.Store,
		basket:       cfg.Basket,
		aggregator:   cfg.Aggregator,
		gate:         cfg.Gate,
		loc:          loc,
		snapshotHour: cfg.SnapshotHour,
		now:          now,
		log:          log.With().Str("component", "snapshot_service").Logger(),
	}
}

// Today returns the current date in the service's location
func (s *SnapshotService) Today() models.Date {
	return models.DateOf(s.now().In(s.loc))
}

// RunDaily runs the gated batch aggregation for today
func (s *SnapshotService) RunDaily(ctx context.Context, trigger RunTrigger) (*RunReport, error) {
	return s.Run(ctx, RunOptions{Trigger: trigger})
}

// Run fetches every basket entry, aggregates and persists the snapshot and
// ledger rows atomically. Non-trading days and an empty basket are skipped
// without error. A persistence failure is returned and leaves no rows behind.
func (s *SnapshotService) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if opts.Trigger == "" {
		opts.Trigger = TriggerManual
	}
	date := opts.Date
	if date.IsZero() {
		date = s.Today()
	}

	report := &RunReport{Trigger: opts.Trigger, Date: date, StartedAt: s.now()}

	if !opts.Force && s.gate != nil && !s.gate.IsTradingDay(ctx, date) {
		s.log.Info().Str("date", date.String()).Str("trigger", string(opts.Trigger)).Msg("Not a trading day, skipping run")
		return s.finish(report, OutcomeSkipped, "not a trading day", nil), nil
	}

	basket, err := s.basket.ListBasket(ctx)
	if err != nil {
		return s.finish(report, OutcomeFailed, "", err), fmt.Errorf("failed to load basket: %w", err)
	}

	agg, ok := s.aggregator.Aggregate(ctx, basket)
	if !ok {
		s.log.Info().Str("date", date.String()).Msg("Basket is empty, nothing to record")
		return s.finish(report, OutcomeSkipped, "basket is empty", nil), nil
	}

	if err := s.record(ctx, report, date, agg); err != nil {
		return report, err
	}
	return report, nil
}

// SaveAggregation persists an already computed aggregation for today. It is
// the interactive path and is not gated by the trading calendar.
func (s *SnapshotService) SaveAggregation(ctx context.Context, agg *models.Aggregation) (*RunReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	date := s.Today()
	report := &RunReport{Trigger: TriggerInteractive, Date: date, StartedAt: s.now()}
	if agg == nil || len(agg.Rows) == 0 {
		return s.finish(report, OutcomeSkipped, "basket is empty", nil), nil
	}

	if err := s.record(ctx, report, date, agg); err != nil {
		return report, err
	}
	return report, nil
}

// record stamps and writes the aggregation; the caller holds runMu
func (s *SnapshotService) record(ctx context.Context, report *RunReport, date models.Date, agg *models.Aggregation) error {
	report.RunID = uuid.New().String()
	report.PortfolioReturnPercent = agg.PortfolioReturnPercent
	report.Entries = len(agg.Rows)
	report.PositiveCount = agg.PositiveCount()
	report.Warnings = agg.Warnings

	agg.Stamp(date, report.RunID)
	if err := s.store.RecordRun(ctx, date, agg.PortfolioReturnPercent, agg.Rows); err != nil {
		s.finish(report, OutcomeFailed, "", err)
		return fmt.Errorf("failed to record run for %s: %w", date, err)
	}

	metrics.PortfolioReturnPercent.Set(agg.PortfolioReturnPercent)
	metrics.BasketEntries.Set(float64(len(agg.Rows)))
	s.finish(report, OutcomeSaved, "", nil)

	s.log.Info().
		Str("run_id", report.RunID).
		Str("date", date.String()).
		Str("trigger", string(report.Trigger)).
		Float64("portfolio_return", agg.PortfolioReturnPercent).
		Int("entries", report.Entries).
		Int("warnings", len(report.Warnings)).
		Msg("Recorded portfolio snapshot")
	return nil
}

// finish stamps the outcome, updates metrics and remembers the report
func (s *SnapshotService) finish(report *RunReport, outcome, reason string, err error) *RunReport {
	report.Outcome = outcome
	report.Reason = reason
	if err != nil {
		report.Error = err.Error()
		s.log.Error().Err(err).Str("date", report.Date.String()).Str("trigger", string(report.Trigger)).Msg("Aggregation run failed")
	}
	report.FinishedAt = s.now()

	metrics.RunsTotal.WithLabelValues(string(report.Trigger), outcome).Inc()
	metrics.RunDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	s.mu.Lock()
	s.lastRun = report
	s.mu.Unlock()
	return report
}

// CatchUp runs the daily batch when the snapshot hour has passed and today
// has no snapshot yet. It returns nil when nothing needed doing.
func (s *SnapshotService) CatchUp(ctx context.Context) (*RunReport, error) {
	now := s.now().In(s.loc)
	if now.Hour() < s.snapshotHour {
		return nil, nil
	}

	today := models.DateOf(now)
	exists, err := s.store.HasSnapshot(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to check snapshot for %s: %w", today, err)
	}
	if exists {
		return nil, nil
	}

	s.log.Info().Str("date", today.String()).Msg("No snapshot recorded yet today, catching up")
	return s.RunDaily(ctx, TriggerCatchUp)
}

// GetHistory retrieves snapshots for a given period
func (s *SnapshotService) GetHistory(ctx context.Context, period string) ([]models.PortfolioSnapshot, error) {
	snapshots, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	return FilterPeriod(snapshots, period, s.Today()), nil
}

// GetLastSnapshot returns the most recent snapshot
func (s *SnapshotService) GetLastSnapshot(ctx context.Context) (*models.PortfolioSnapshot, error) {
	snapshots, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	last := snapshots[len(snapshots)-1]
	return &last, nil
}

// LastRun returns the report of the most recent run, if any
func (s *SnapshotService) LastRun() *RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}
