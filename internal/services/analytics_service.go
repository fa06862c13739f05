package services

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/codyseavey/basket-tracker/internal/models"
	"github.com/codyseavey/basket-tracker/internal/store"
)

// Comparison is the joined portfolio/benchmark series with its summary
type Comparison struct {
	Points  []ComparisonPoint `json:"points"`
	Summary ComparisonSummary `json:"summary"`
}

// AnalyticsService derives views from the stored series and records
// benchmark returns
type AnalyticsService struct {
	store store.SnapshotStore
	today func() models.Date
	log   zerolog.Logger
}

// NewAnalyticsService creates an analytics service. today supplies the
// default date for benchmark entries.
func NewAnalyticsService(s store.SnapshotStore, today func() models.Date, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		store: s,
		today: today,
		log:   log.With().Str("component", "analytics_service").Logger(),
	}
}

// Rolling returns the rolling-window changes of the stored snapshot series
func (s *AnalyticsService) Rolling(ctx context.Context, windows []int) (map[int][]WindowPoint, error) {
	snapshots, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		windows = DefaultWindows
	}
	return RollingWindows(snapshots, windows), nil
}

// Comparison joins the snapshot series with the benchmark series
func (s *AnalyticsService) Comparison(ctx context.Context) (*Comparison, error) {
	snapshots, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	benchmarks, err := s.store.ListBenchmarks(ctx)
	if err != nil {
		return nil, err
	}

	points := JoinWithBenchmark(snapshots, benchmarks)
	return &Comparison{Points: points, Summary: Compare(points)}, nil
}

// History returns the contribution ledger
func (s *AnalyticsService) History(ctx context.Context) ([]models.ContributionRow, error) {
	return s.store.ListHistory(ctx)
}

// Benchmarks returns the benchmark series
func (s *AnalyticsService) Benchmarks(ctx context.Context) ([]models.BenchmarkReturn, error) {
	return s.store.ListBenchmarks(ctx)
}

// SaveBenchmark records the benchmark return for date, today when date is nil
func (s *AnalyticsService) SaveBenchmark(ctx context.Context, date *models.Date, returnPercent float64) (*models.BenchmarkReturn, error) {
	if math.IsNaN(returnPercent) || math.IsInf(returnPercent, 0) {
		return nil, fmt.Errorf("benchmark return must be a finite number")
	}

	d := s.today()
	if date != nil && !date.IsZero() {
		d = *date
	}
	if err := s.store.UpsertBenchmark(ctx, d, returnPercent); err != nil {
		return nil, err
	}

	s.log.Info().Str("date", d.String()).Float64("return", returnPercent).Msg("Saved benchmark return")
	return &models.BenchmarkReturn{Date: d, BenchmarkReturnPercent: returnPercent}, nil
}
