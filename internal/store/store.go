// Package store persists the basket, the daily portfolio snapshots, the
// benchmark series and the per-security contribution ledger.
//
// Snapshots and benchmarks are keyed by date and written with
// replace-on-conflict semantics. The ledger is append-only: running the same
// day twice leaves two sets of rows for that day.
package store

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/codyseavey/basket-tracker/internal/models"
)

// ErrNotFound is returned when a keyed row does not exist
var ErrNotFound = errors.New("not found")

// SnapshotStore holds the time series written by aggregation runs
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, date models.Date, portfolioReturnPercent float64) error
	AppendHistory(ctx context.Context, rows []models.ContributionRow) error
	UpsertBenchmark(ctx context.Context, date models.Date, benchmarkReturnPercent float64) error

	// RecordRun upserts the snapshot and appends the rows atomically
	RecordRun(ctx context.Context, date models.Date, portfolioReturnPercent float64, rows []models.ContributionRow) error
	HasSnapshot(ctx context.Context, date models.Date) (bool, error)

	ListSnapshots(ctx context.Context) ([]models.PortfolioSnapshot, error)
	ListHistory(ctx context.Context) ([]models.ContributionRow, error)
	ListBenchmarks(ctx context.Context) ([]models.BenchmarkReturn, error)
}

// BasketStore holds the operator-managed basket
type BasketStore interface {
	ListBasket(ctx context.Context) ([]models.BasketEntry, error)
	SaveBasketEntry(ctx context.Context, entry models.BasketEntry) error
	UpdateBasketEntry(ctx context.Context, entry models.BasketEntry) error
	DeleteBasketEntry(ctx context.Context, symbol string) error
}

// Store is the full persistence boundary
type Store interface {
	SnapshotStore
	BasketStore
	Close() error
}

// minStoredYear rejects the zero time some drivers substitute for DATE text
// they cannot parse.
const minStoredYear = 1900

func parseStoredDate(s sql.NullString) (models.Date, bool) {
	if !s.Valid {
		return models.Date{}, false
	}
	date, err := models.ParseDate(s.String)
	if err != nil || date.Year < minStoredYear {
		return models.Date{}, false
	}
	return date, true
}

// datedValue is the raw shape of snapshot and benchmark rows. Both columns
// are read as text so a malformed row can be dropped instead of failing the scan.
type datedValue struct {
	Date  sql.NullString
	Value sql.NullString
}

// parse returns the row's date and value, or ok=false for unusable rows
func (r datedValue) parse() (models.Date, float64, bool) {
	if !r.Value.Valid {
		return models.Date{}, 0, false
	}
	date, ok := parseStoredDate(r.Date)
	if !ok {
		return models.Date{}, 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(r.Value.String), 64)
	if err != nil {
		return models.Date{}, 0, false
	}
	return date, value, true
}

func snapshotsFrom(raw []datedValue) []models.PortfolioSnapshot {
	out := make([]models.PortfolioSnapshot, 0, len(raw))
	for _, r := range raw {
		date, value, ok := r.parse()
		if !ok {
			continue
		}
		out = append(out, models.PortfolioSnapshot{Date: date, PortfolioReturnPercent: value})
	}
	slices.SortStableFunc(out, func(a, b models.PortfolioSnapshot) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

func benchmarksFrom(raw []datedValue) []models.BenchmarkReturn {
	out := make([]models.BenchmarkReturn, 0, len(raw))
	for _, r := range raw {
		date, value, ok := r.parse()
		if !ok {
			continue
		}
		out = append(out, models.BenchmarkReturn{Date: date, BenchmarkReturnPercent: value})
	}
	slices.SortStableFunc(out, func(a, b models.BenchmarkReturn) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// ledgerLine is the raw shape of a history row
type ledgerLine struct {
	ID           int64
	Date         sql.NullString
	Symbol       sql.NullString
	Ret          sql.NullString
	Allocation   sql.NullString
	Contribution sql.NullString
	RunID        sql.NullString
}

func (l ledgerLine) parse() (models.ContributionRow, bool) {
	if !l.Symbol.Valid {
		return models.ContributionRow{}, false
	}
	date, ok := parseStoredDate(l.Date)
	if !ok {
		return models.ContributionRow{}, false
	}

	var nums [3]float64
	for i, s := range []sql.NullString{l.Ret, l.Allocation, l.Contribution} {
		if !s.Valid {
			return models.ContributionRow{}, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s.String), 64)
		if err != nil {
			return models.ContributionRow{}, false
		}
		nums[i] = v
	}

	return models.ContributionRow{
		ID:                  uint(l.ID),
		Date:                date,
		Symbol:              l.Symbol.String,
		ReturnPercent:       nums[0],
		Allocation:          nums[1],
		ContributionPercent: nums[2],
		RunID:               l.RunID.String,
	}, true
}

// historyFrom drops unusable lines and orders by (date, symbol, insertion)
func historyFrom(raw []ledgerLine) []models.ContributionRow {
	out := make([]models.ContributionRow, 0, len(raw))
	for _, l := range raw {
		if row, ok := l.parse(); ok {
			out = append(out, row)
		}
	}
	slices.SortStableFunc(out, func(a, b models.ContributionRow) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := strings.Compare(a.Symbol, b.Symbol); c != 0 {
			return c
		}
		return int(a.ID) - int(b.ID)
	})
	return out
}

// sortBasket orders entries by allocation, largest first, then symbol
func sortBasket(entries []models.BasketEntry) {
	slices.SortStableFunc(entries, func(a, b models.BasketEntry) int {
		switch {
		case a.Allocation > b.Allocation:
			return -1
		case a.Allocation < b.Allocation:
			return 1
		default:
			return strings.Compare(a.Symbol, b.Symbol)
		}
	})
}
