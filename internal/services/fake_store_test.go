package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/codyseavey/basket-tracker/internal/models"
	"github.com/codyseavey/basket-tracker/internal/store"
)

// memStore is an in-memory store.Store for service tests
type memStore struct {
	mu         sync.Mutex
	basket     map[string]models.BasketEntry
	snapshots  map[models.Date]float64
	benchmarks map[models.Date]float64
	history    []models.ContributionRow
	failWrites error
}

func newMemStore(entries ...models.BasketEntry) *memStore {
	s := &memStore{
		basket:     map[string]models.BasketEntry{},
		snapshots:  map[models.Date]float64{},
		benchmarks: map[models.Date]float64{},
	}
	for _, e := range entries {
		s.basket[e.Symbol] = e
	}
	return s
}

func (s *memStore) UpsertSnapshot(_ context.Context, d models.Date, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return s.failWrites
	}
	s.snapshots[d] = v
	return nil
}

func (s *memStore) AppendHistory(_ context.Context, rows []models.ContributionRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return s.failWrites
	}
	for _, r := range rows {
		r.ID = uint(len(s.history) + 1)
		s.history = append(s.history, r)
	}
	return nil
}

func (s *memStore) UpsertBenchmark(_ context.Context, d models.Date, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return s.failWrites
	}
	s.benchmarks[d] = v
	return nil
}

func (s *memStore) RecordRun(ctx context.Context, d models.Date, v float64, rows []models.ContributionRow) error {
	if err := s.UpsertSnapshot(ctx, d, v); err != nil {
		return err
	}
	return s.AppendHistory(ctx, rows)
}

func (s *memStore) HasSnapshot(_ context.Context, d models.Date) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.snapshots[d]
	return ok, nil
}

func (s *memStore) ListSnapshots(context.Context) ([]models.PortfolioSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PortfolioSnapshot, 0, len(s.snapshots))
	for d, v := range s.snapshots {
		out = append(out, models.PortfolioSnapshot{Date: d, PortfolioReturnPercent: v})
	}
	slices.SortFunc(out, func(a, b models.PortfolioSnapshot) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (s *memStore) ListHistory(context.Context) ([]models.ContributionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history), nil
}

func (s *memStore) ListBenchmarks(context.Context) ([]models.BenchmarkReturn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BenchmarkReturn, 0, len(s.benchmarks))
	for d, v := range s.benchmarks {
		out = append(out, models.BenchmarkReturn{Date: d, BenchmarkReturnPercent: v})
	}
	slices.SortFunc(out, func(a, b models.BenchmarkReturn) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (s *memStore) ListBasket(context.Context) ([]models.BasketEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BasketEntry, 0, len(s.basket))
	for _, e := range s.basket {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b models.BasketEntry) int {
		if a.Allocation != b.Allocation {
			if a.Allocation > b.Allocation {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Symbol, b.Symbol)
	})
	return out, nil
}

func (s *memStore) SaveBasketEntry(_ context.Context, e models.BasketEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.basket[e.Symbol] = e
	return nil
}

func (s *memStore) UpdateBasketEntry(_ context.Context, e models.BasketEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.basket[e.Symbol]; !ok {
		return fmt.Errorf("basket entry %s: %w", e.Symbol, store.ErrNotFound)
	}
	s.basket[e.Symbol] = e
	return nil
}

func (s *memStore) DeleteBasketEntry(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.basket[symbol]; !ok {
		return fmt.Errorf("basket entry %s: %w", symbol, store.ErrNotFound)
	}
	delete(s.basket, symbol)
	return nil
}

func (s *memStore) Close() error { return nil }

var (
	_ store.Store = (*memStore)(nil)

	errDiskFull = errors.New("disk full")
)
