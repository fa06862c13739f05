package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/basket-tracker/internal/models"
	"github.com/codyseavey/basket-tracker/internal/store"
)

func TestOpenStoreSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "portfolio.db")

	st, err := OpenStore(ctx, "sqlite", path, "", zerolog.Nop())
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.SaveBasketEntry(ctx, models.BasketEntry{Symbol: "INFY", URL: "https://example.com", Allocation: 10}))
	entries, err := st.ListBasket(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), "mysql", "", "", zerolog.Nop())
	assert.Error(t, err)
}

func TestMigrateNormalizesLegacySymbols(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, db.Exec(`INSERT INTO stocks (symbol, url, allocation) VALUES ('infy', 'https://a', 1), ('INFY', 'https://b', 2), (' tcs ', 'https://c', 3)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO history (date, symbol, ret, allocation, contribution) VALUES ('2025-01-02', 'INFY', 1, 1, 1)`).Error)
	require.NoError(t, Migrate(db, zerolog.Nop()))

	var symbols []string
	require.NoError(t, db.Raw(`SELECT symbol FROM stocks ORDER BY symbol`).Scan(&symbols).Error)
	assert.Equal(t, []string{"INFY", "TCS"}, symbols)

	var url string
	require.NoError(t, db.Raw(`SELECT url FROM stocks WHERE symbol = 'INFY'`).Scan(&url).Error)
	assert.Equal(t, "https://b", url)

	var runID string
	require.NoError(t, db.Raw(`SELECT run_id FROM history`).Scan(&runID).Error)
	assert.Equal(t, "legacy-2025-01-02", runID)

	require.NoError(t, store.NewGormStore(db).Close())
}
