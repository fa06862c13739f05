package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/codyseavey/basket-tracker/internal/models"
	"github.com/codyseavey/basket-tracker/internal/store"
)

// ErrInvalidEntry is returned for a basket entry that cannot be saved
var ErrInvalidEntry = errors.New("invalid basket entry")

// Invalidator drops cached fetch results
type Invalidator interface {
	Invalidate()
}

// LiveRow is one security in the live view
type LiveRow struct {
	Symbol              string  `json:"symbol"`
	URL                 string  `json:"url"`
	Allocation          float64 `json:"allocation"`
	Weight              float64 `json:"weight"` // share of total allocation, 0-1
	ReturnPercent       float64 `json:"return_percent"`
	ContributionPercent float64 `json:"contribution_percent"`
	Display             string  `json:"display"`
}

// LiveView is the interactive, ungated portfolio aggregation
type LiveView struct {
	Date                   models.Date `json:"date"`
	AsOf                   time.Time   `json:"as_of"`
	Empty                  bool        `json:"empty"`
	PortfolioReturnPercent float64     `json:"portfolio_return_percent"`
	Display                string      `json:"display"`
	PositiveCount          int         `json:"positive_count"`
	Entries                int         `json:"entries"`
	TotalAllocation        float64     `json:"total_allocation"`
	Rows                   []LiveRow   `json:"rows"`
	Warnings               []string    `json:"warnings,omitempty"`
}

// PortfolioService serves the live view and manages the basket
type PortfolioService struct {
	basket     store.BasketStore
	aggregator *Aggregator
	cache      Invalidator
	snapshots  *SnapshotService
	log        zerolog.Logger
}

// NewPortfolioService creates a portfolio service. aggregator should sit on a
// cached fetcher; cache may be nil.
func NewPortfolioService(basket store.BasketStore, aggregator *Aggregator, cache Invalidator, snapshots *SnapshotService, log zerolog.Logger) *PortfolioService {
	return &PortfolioService{
		basket:     basket,
		aggregator: aggregator,
		cache:      cache,
		snapshots:  snapshots,
		log:        log.With().Str("component", "portfolio_service").Logger(),
	}
}

// Live aggregates the basket now, regardless of the trading calendar
func (s *PortfolioService) Live(ctx context.Context) (*LiveView, *models.Aggregation, error) {
	basket, err := s.basket.ListBasket(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load basket: %w", err)
	}

	view := &LiveView{
		Date:    s.snapshots.Today(),
		AsOf:    s.snapshots.now(),
		Display: models.SignedPercent(0, 2),
		Rows:    []LiveRow{},
	}

	agg, ok := s.aggregator.Aggregate(ctx, basket)
	if !ok {
		view.Empty = true
		return view, nil, nil
	}

	view.PortfolioReturnPercent = agg.PortfolioReturnPercent
	view.Display = models.SignedPercent(agg.PortfolioReturnPercent, 2)
	view.PositiveCount = agg.PositiveCount()
	view.Entries = len(agg.Rows)
	view.TotalAllocation = agg.TotalAllocation
	view.Warnings = agg.Warnings

	for i, row := range agg.Rows {
		weight := 0.0
		if agg.TotalAllocation > 0 {
			weight = row.Allocation / agg.TotalAllocation
		}
		view.Rows = append(view.Rows, LiveRow{
			Symbol:              row.Symbol,
			URL:                 basket[i].URL,
			Allocation:          row.Allocation,
			Weight:              weight,
			ReturnPercent:       row.ReturnPercent,
			ContributionPercent: row.ContributionPercent,
			Display:             models.SignedPercent(row.ReturnPercent, 2),
		})
	}
	slices.SortStableFunc(view.Rows, func(a, b LiveRow) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		default:
			return 0
		}
	})

	return view, agg, nil
}

// SaveLive aggregates the basket now and records it as today's snapshot
func (s *PortfolioService) SaveLive(ctx context.Context) (*RunReport, error) {
	_, agg, err := s.Live(ctx)
	if err != nil {
		return nil, err
	}
	return s.snapshots.SaveAggregation(ctx, agg)
}

// Refresh drops cached returns so the next live view refetches every source
func (s *PortfolioService) Refresh() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

// ListBasket returns the basket, largest allocation first
func (s *PortfolioService) ListBasket(ctx context.Context) ([]models.BasketEntry, error) {
	return s.basket.ListBasket(ctx)
}

// SaveEntry validates and upserts a basket entry
func (s *PortfolioService) SaveEntry(ctx context.Context, symbol, rawURL string, allocation float64) (*models.BasketEntry, error) {
	entry, err := newEntry(symbol, rawURL, allocation)
	if err != nil {
		return nil, err
	}
	if err := s.basket.SaveBasketEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.log.Info().Str("symbol", entry.Symbol).Float64("allocation", entry.Allocation).Msg("Saved basket entry")
	return &entry, nil
}

// UpdateEntry validates and replaces an existing basket entry; store.ErrNotFound
// if the symbol is not in the basket
func (s *PortfolioService) UpdateEntry(ctx context.Context, symbol, rawURL string, allocation float64) (*models.BasketEntry, error) {
	entry, err := newEntry(symbol, rawURL, allocation)
	if err != nil {
		return nil, err
	}
	if err := s.basket.UpdateBasketEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.log.Info().Str("symbol", entry.Symbol).Float64("allocation", entry.Allocation).Msg("Updated basket entry")
	return &entry, nil
}

// DeleteEntry removes a basket entry; store.ErrNotFound if it does not exist
func (s *PortfolioService) DeleteEntry(ctx context.Context, symbol string) error {
	symbol = models.NormalizeSymbol(symbol)
	if err := s.basket.DeleteBasketEntry(ctx, symbol); err != nil {
		return err
	}
	s.log.Info().Str("symbol", symbol).Msg("Deleted basket entry")
	return nil
}

func newEntry(symbol, rawURL string, allocation float64) (models.BasketEntry, error) {
	entry := models.BasketEntry{
		Symbol:     models.NormalizeSymbol(symbol),
		URL:        strings.TrimSpace(rawURL),
		Allocation: allocation,
	}
	return entry, validateEntry(entry)
}

func validateEntry(e models.BasketEntry) error {
	if e.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidEntry)
	}
	u, err := url.Parse(e.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalidEntry)
	}
	if math.IsNaN(e.Allocation) || math.IsInf(e.Allocation, 0) || e.Allocation <= 0 {
		return fmt.Errorf("%w: allocation must be positive", ErrInvalidEntry)
	}
	return nil
}
