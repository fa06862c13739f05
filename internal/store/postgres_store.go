package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codyseavey/basket-tracker/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS stocks (
	symbol     TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	allocation DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS history (
	id           BIGSERIAL PRIMARY KEY,
	date         DATE NOT NULL,
	symbol       TEXT NOT NULL,
	ret          DOUBLE PRECISION NOT NULL,
	allocation   DOUBLE PRECISION NOT NULL,
	contribution DOUBLE PRECISION NOT NULL,
	run_id       TEXT
);
CREATE INDEX IF NOT EXISTS idx_history_date ON history (date);
CREATE TABLE IF NOT EXISTS portfolio_snapshots (
	date             DATE PRIMARY KEY,
	portfolio_return DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS mf_returns (
	date      DATE PRIMARY KEY,
	mf_return DOUBLE PRECISION
);
`

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresStore is the hosted backend
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection and creates missing tables
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func pgUpsertSnapshot(ctx context.Context, ex execer, date models.Date, value float64) error {
	query := `
		INSERT INTO portfolio_snapshots (date, portfolio_return)
		VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET portfolio_return = EXCLUDED.portfolio_return
	`
	_, err := ex.ExecContext(ctx, query, date.String(), value)
	return err
}

func pgAppendHistory(ctx context.Context, ex execer, rows []models.ContributionRow) error {
	query := `
		INSERT INTO history (date, symbol, ret, allocation, contribution, run_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, r := range rows {
		if _, err := ex.ExecContext(ctx, query,
			r.Date.String(), r.Symbol, r.ReturnPercent, r.Allocation, r.ContributionPercent, r.RunID,
		); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSnapshot replaces the snapshot for date
func (s *PostgresStore) UpsertSnapshot(ctx context.Context, date models.Date, value float64) error {
	if err := pgUpsertSnapshot(ctx, s.db, date, value); err != nil {
		return fmt.Errorf("failed to upsert snapshot for %s: %w", date, err)
	}
	return nil
}

// AppendHistory inserts ledger rows without deduplication
func (s *PostgresStore) AppendHistory(ctx context.Context, rows []models.ContributionRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := pgAppendHistory(ctx, tx, rows); err != nil {
		return fmt.Errorf("failed to append %d history rows: %w", len(rows), err)
	}
	return tx.Commit()
}

// UpsertBenchmark replaces the benchmark return for date
func (s *PostgresStore) UpsertBenchmark(ctx context.Context, date models.Date, value float64) error {
	query := `
		INSERT INTO mf_returns (date, mf_return)
		VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET mf_return = EXCLUDED.mf_return
	`
	if _, err := s.db.ExecContext(ctx, query, date.String(), value); err != nil {
		return fmt.Errorf("failed to upsert benchmark for %s: %w", date, err)
	}
	return nil
}

// RecordRun writes a run's snapshot and ledger rows in one transaction
func (s *PostgresStore) RecordRun(ctx context.Context, date models.Date, value float64, rows []models.ContributionRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := pgUpsertSnapshot(ctx, tx, date, value); err != nil {
		return fmt.Errorf("failed to record run for %s: %w", date, err)
	}
	if err := pgAppendHistory(ctx, tx, rows); err != nil {
		return fmt.Errorf("failed to record run for %s: %w", date, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run for %s: %w", date, err)
	}
	return nil
}

// HasSnapshot reports whether a snapshot exists for date
func (s *PostgresStore) HasSnapshot(ctx context.Context, date models.Date) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM portfolio_snapshots WHERE date = $1)`, date.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check snapshot for %s: %w", date, err)
	}
	return exists, nil
}

func (s *PostgresStore) listDated(ctx context.Context, query string) ([]datedValue, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []datedValue
	for rows.Next() {
		var r datedValue
		if err := rows.Scan(&r.Date, &r.Value); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListSnapshots returns all readable snapshots ordered by date
func (s *PostgresStore) ListSnapshots(ctx context.Context) ([]models.PortfolioSnapshot, error) {
	raw, err := s.listDated(ctx, `SELECT date::text, portfolio_return::text FROM portfolio_snapshots ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshotsFrom(raw), nil
}

// ListBenchmarks returns all readable benchmark returns ordered by date
func (s *PostgresStore) ListBenchmarks(ctx context.Context) ([]models.BenchmarkReturn, error) {
	raw, err := s.listDated(ctx, `SELECT date::text, mf_return::text FROM mf_returns ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to list benchmarks: %w", err)
	}
	return benchmarksFrom(raw), nil
}

// ListHistory returns all readable ledger rows ordered by (date, symbol)
func (s *PostgresStore) ListHistory(ctx context.Context) ([]models.ContributionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date::text, symbol, ret::text, allocation::text, contribution::text, run_id
		FROM history
		ORDER BY date, symbol, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var raw []ledgerLine
	for rows.Next() {
		var l ledgerLine
		if err := rows.Scan(&l.ID, &l.Date, &l.Symbol, &l.Ret, &l.Allocation, &l.Contribution, &l.RunID); err != nil {
			continue
		}
		raw = append(raw, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return historyFrom(raw), nil
}

// ListBasket returns the basket, largest allocation first
func (s *PostgresStore) ListBasket(ctx context.Context) ([]models.BasketEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, url, allocation FROM stocks`)
	if err != nil {
		return nil, fmt.Errorf("failed to list basket: %w", err)
	}
	defer rows.Close()

	var entries []models.BasketEntry
	for rows.Next() {
		var e models.BasketEntry
		if err := rows.Scan(&e.Symbol, &e.URL, &e.Allocation); err != nil {
			return nil, fmt.Errorf("failed to scan basket entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list basket: %w", err)
	}
	sortBasket(entries)
	return entries, nil
}

// SaveBasketEntry inserts or replaces the entry keyed by symbol
func (s *PostgresStore) SaveBasketEntry(ctx context.Context, entry models.BasketEntry) error {
	query := `
		INSERT INTO stocks (symbol, url, allocation)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET url = EXCLUDED.url, allocation = EXCLUDED.allocation
	`
	if _, err := s.db.ExecContext(ctx, query, entry.Symbol, entry.URL, entry.Allocation); err != nil {
		return fmt.Errorf("failed to save basket entry %s: %w", entry.Symbol, err)
	}
	return nil
}

// UpdateBasketEntry changes the url and allocation of an existing entry
func (s *PostgresStore) UpdateBasketEntry(ctx context.Context, entry models.BasketEntry) error {
	result, err := s.db.ExecContext(ctx, `UPDATE stocks SET url = $2, allocation = $3 WHERE symbol = $1`,
		entry.Symbol, entry.URL, entry.Allocation)
	if err != nil {
		return fmt.Errorf("failed to update basket entry %s: %w", entry.Symbol, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("basket entry %s: %w", entry.Symbol, ErrNotFound)
	}
	return nil
}

// DeleteBasketEntry removes the entry for symbol
func (s *PostgresStore) DeleteBasketEntry(ctx context.Context, symbol string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM stocks WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete basket entry %s: %w", symbol, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("basket entry %s: %w", symbol, ErrNotFound)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
