package services

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/codyseavey/basket-tracker/internal/models"
)

// Aggregator combines per-security returns into a weighted portfolio return
type Aggregator struct {
	source      ReturnSource
	concurrency int
	log         zerolog.Logger
}

// NewAggregator creates an aggregator. concurrency below 2 fetches sequentially.
func NewAggregator(source ReturnSource, concurrency int, log zerolog.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{
		source:      source,
		concurrency: concurrency,
		log:         log.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate fetches every entry's return and weights it by the entry's share
// of the total allocation. It returns false for an empty basket. A failed
// fetch contributes 0 and adds a warning; it never fails the aggregation.
// Rows keep basket order and carry the raw allocation.
func (a *Aggregator) Aggregate(ctx context.Context, basket []models.BasketEntry) (*models.Aggregation, bool) {
	if len(basket) == 0 {
		return nil, false
	}

	results := make([]FetchResult, len(basket))
	if a.concurrency == 1 {
		for i, entry := range basket {
			results[i] = a.source.Fetch(ctx, entry.URL)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(a.concurrency)
		for i, entry := range basket {
			g.Go(func() error {
				results[i] = a.source.Fetch(ctx, entry.URL)
				return nil
			})
		}
		_ = g.Wait() // Fetch never returns an error
	}

	total := models.TotalAllocation(basket)
	agg := &models.Aggregation{
		TotalAllocation: total,
		Rows:            make([]models.ContributionRow, 0, len(basket)),
	}

	for i, entry := range basket {
		res := results[i]
		if res.Warning != "" {
			agg.Warnings = append(agg.Warnings, res.Warning)
		}

		normalized := 0.0
		if total > 0 {
			normalized = entry.Allocation / total
		}
		contribution := res.ReturnPercent * normalized
		agg.PortfolioReturnPercent += contribution

		agg.Rows = append(agg.Rows, models.ContributionRow{
			Symbol:              entry.Symbol,
			ReturnPercent:       res.ReturnPercent,
			Allocation:          entry.Allocation,
			ContributionPercent: contribution,
		})
	}

	if total <= 0 {
		a.log.Warn().Float64("total_allocation", total).Msg("Basket allocations sum to zero, all contributions are 0")
	}
	a.log.Debug().
		Int("entries", len(basket)).
		Int("warnings", len(agg.Warnings)).
		Float64("portfolio_return", agg.PortfolioReturnPercent).
		Msg("Aggregation complete")

	return agg, true
}
