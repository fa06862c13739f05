package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/basket-tracker/internal/models"
)

// snapshotRecord maps portfolio_snapshots. Date is stored as YYYY-MM-DD text.
type snapshotRecord struct {
	Date            string  `gorm:"column:date;primaryKey;type:date"`
	PortfolioReturn float64 `gorm:"column:portfolio_return;not null"`
}

func (snapshotRecord) TableName() string { return "portfolio_snapshots" }

// benchmarkRecord maps mf_returns
type benchmarkRecord struct {
	Date     string   `gorm:"column:date;primaryKey;type:date"`
	MFReturn *float64 `gorm:"column:mf_return"`
}

func (benchmarkRecord) TableName() string { return "mf_returns" }

// historyRecord maps the append-only history ledger
type historyRecord struct {
	ID           uint    `gorm:"column:id;primaryKey;autoIncrement"`
	Date         string  `gorm:"column:date;type:date;not null;index"`
	Symbol       string  `gorm:"column:symbol;not null"`
	Ret          float64 `gorm:"column:ret;not null"`
	Allocation   float64 `gorm:"column:allocation;not null"`
	Contribution float64 `gorm:"column:contribution;not null"`
	RunID        string  `gorm:"column:run_id;index"`
}

func (historyRecord) TableName() string { return "history" }

// GormModels lists the tables managed through gorm, for AutoMigrate
func GormModels() []any {
	return []any{&models.BasketEntry{}, &historyRecord{}, &snapshotRecord{}, &benchmarkRecord{}}
}

// GormStore is the embedded (SQLite) backend
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open, migrated gorm handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Close releases the underlying connection pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func upsertSnapshot(tx *gorm.DB, date models.Date, value float64) error {
	rec := snapshotRecord{Date: date.String(), PortfolioReturn: value}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"portfolio_return"}),
	}).Create(&rec).Error
}

func appendHistory(tx *gorm.DB, rows []models.ContributionRow) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]historyRecord, len(rows))
	for i, r := range rows {
		records[i] = historyRecord{
			Date:         r.Date.String(),
			Symbol:       r.Symbol,
			Ret:          r.ReturnPercent,
			Allocation:   r.Allocation,
			Contribution: r.ContributionPercent,
			RunID:        r.RunID,
		}
	}
	return tx.Create(&records).Error
}

// UpsertSnapshot replaces the snapshot for date
func (s *GormStore) UpsertSnapshot(ctx context.Context, date models.Date, value float64) error {
	if err := upsertSnapshot(s.db.WithContext(ctx), date, value); err != nil {
		return fmt.Errorf("failed to upsert snapshot for %s: %w", date, err)
	}
	return nil
}

// AppendHistory inserts ledger rows without deduplication
func (s *GormStore) AppendHistory(ctx context.Context, rows []models.ContributionRow) error {
	if err := appendHistory(s.db.WithContext(ctx), rows); err != nil {
		return fmt.Errorf("failed to append %d history rows: %w", len(rows), err)
	}
	return nil
}

// UpsertBenchmark replaces the benchmark return for date
func (s *GormStore) UpsertBenchmark(ctx context.Context, date models.Date, value float64) error {
	rec := benchmarkRecord{Date: date.String(), MFReturn: &value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"mf_return"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert benchmark for %s: %w", date, err)
	}
	return nil
}

// RecordRun writes a run's snapshot and ledger rows in one transaction
func (s *GormStore) RecordRun(ctx context.Context, date models.Date, value float64, rows []models.ContributionRow) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertSnapshot(tx, date, value); err != nil {
			return err
		}
		return appendHistory(tx, rows)
	})
	if err != nil {
		return fmt.Errorf("failed to record run for %s: %w", date, err)
	}
	return nil
}

// HasSnapshot reports whether a snapshot exists for date
func (s *GormStore) HasSnapshot(ctx context.Context, date models.Date) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&snapshotRecord{}).
		Where("date = ?", date.String()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check snapshot for %s: %w", date, err)
	}
	return count > 0, nil
}

// ListSnapshots returns all readable snapshots ordered by date
func (s *GormStore) ListSnapshots(ctx context.Context) ([]models.PortfolioSnapshot, error) {
	var raw []datedValue
	err := s.db.WithContext(ctx).Table("portfolio_snapshots").
		Select("date, portfolio_return AS value").
		Order("date ASC").
		Scan(&raw).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshotsFrom(raw), nil
}

// ListBenchmarks returns all readable benchmark returns ordered by date
func (s *GormStore) ListBenchmarks(ctx context.Context) ([]models.BenchmarkReturn, error) {
	var raw []datedValue
	err := s.db.WithContext(ctx).Table("mf_returns").
		Select("date, mf_return AS value").
		Order("date ASC").
		Scan(&raw).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list benchmarks: %w", err)
	}
	return benchmarksFrom(raw), nil
}

// ListHistory returns all readable ledger rows ordered by (date, symbol)
func (s *GormStore) ListHistory(ctx context.Context) ([]models.ContributionRow, error) {
	var raw []ledgerLine
	err := s.db.WithContext(ctx).Table("history").
		Select("id, date, symbol, ret, allocation, contribution, run_id").
		Order("date ASC, symbol ASC, id ASC").
		Scan(&raw).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return historyFrom(raw), nil
}

// ListBasket returns the basket, largest allocation first
func (s *GormStore) ListBasket(ctx context.Context) ([]models.BasketEntry, error) {
	var entries []models.BasketEntry
	if err := s.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list basket: %w", err)
	}
	sortBasket(entries)
	return entries, nil
}

// SaveBasketEntry inserts or replaces the entry keyed by symbol
func (s *GormStore) SaveBasketEntry(ctx context.Context, entry models.BasketEntry) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "allocation"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to save basket entry %s: %w", entry.Symbol, err)
	}
	return nil
}

// UpdateBasketEntry changes the url and allocation of an existing entry
func (s *GormStore) UpdateBasketEntry(ctx context.Context, entry models.BasketEntry) error {
	result := s.db.WithContext(ctx).Model(&models.BasketEntry{}).
		Where("symbol = ?", entry.Symbol).
		Updates(map[string]any{"url": entry.URL, "allocation": entry.Allocation})
	if result.Error != nil {
		return fmt.Errorf("failed to update basket entry %s: %w", entry.Symbol, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("basket entry %s: %w", entry.Symbol, ErrNotFound)
	}
	return nil
}

// DeleteBasketEntry removes the entry for symbol
func (s *GormStore) DeleteBasketEntry(ctx context.Context, symbol string) error {
	result := s.db.WithContext(ctx).Where("symbol = ?", symbol).Delete(&models.BasketEntry{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete basket entry %s: %w", symbol, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("basket entry %s: %w", symbol, ErrNotFound)
	}
	return nil
}

var _ Store = (*GormStore)(nil)
