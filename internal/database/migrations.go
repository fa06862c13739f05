package database

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codyseavey/basket-tracker/internal/store"
)

// Migrate brings an embedded database up to date. Databases created by
// earlier versions of the tracker keep their tables; missing columns are added.
func Migrate(db *gorm.DB, log zerolog.Logger) error {
	if err := normalizeBasketSymbols(db, log); err != nil {
		return err
	}

	if err := db.AutoMigrate(store.GormModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return RunMigrations(db, log)
}

// normalizeBasketSymbols upper-cases legacy basket symbols before the schema
// is touched. A lower-case symbol whose upper-case twin already exists is
// dropped, keeping the upper-case entry.
func normalizeBasketSymbols(db *gorm.DB, log zerolog.Logger) error {
	if !db.Migrator().HasTable("stocks") {
		return nil
	}

	result := db.Exec(`
		DELETE FROM stocks
		WHERE symbol != UPPER(TRIM(symbol))
		AND UPPER(TRIM(symbol)) IN (SELECT symbol FROM stocks)
	`)
	if result.Error != nil {
		return fmt.Errorf("failed to remove duplicate basket symbols: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Warn().Int64("rows", result.RowsAffected).Msg("Removed basket entries shadowed by an upper-case symbol")
	}

	result = db.Exec(`UPDATE stocks SET symbol = UPPER(TRIM(symbol)) WHERE symbol != UPPER(TRIM(symbol))`)
	if result.Error != nil {
		return fmt.Errorf("failed to normalize basket symbols: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Info().Int64("rows", result.RowsAffected).Msg("Normalized basket symbols")
	}
	return nil
}

// RunMigrations runs data migrations after schema changes
func RunMigrations(db *gorm.DB, log zerolog.Logger) error {
	return backfillRunIDs(db, log)
}

// backfillRunIDs tags ledger rows written before run ids existed. Rows of the
// same date share one legacy id so they still group as a run.
func backfillRunIDs(db *gorm.DB, log zerolog.Logger) error {
	if !db.Migrator().HasColumn("history", "run_id") {
		return nil
	}

	result := db.Exec(`UPDATE history SET run_id = 'legacy-' || date WHERE run_id IS NULL OR run_id = ''`)
	if result.Error != nil {
		log.Warn().Err(result.Error).Msg("Failed to backfill ledger run ids")
		return nil
	}
	if result.RowsAffected > 0 {
		log.Info().Int64("rows", result.RowsAffected).Msg("Backfilled ledger run ids")
	}
	return nil
}
