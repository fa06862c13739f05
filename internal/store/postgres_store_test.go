package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/basket-tracker/internal/models"
)

// Runs against a disposable database: POSTGRES_TEST_DSN=postgres://... go test ./internal/store
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, db)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `TRUNCATE stocks, history, portfolio_snapshots, mf_returns RESTART IDENTITY`)
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresSnapshotAndLedgerSemantics(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSnapshot(ctx, day(3), 1))
	require.NoError(t, s.UpsertSnapshot(ctx, day(3), 2))

	rows := []models.ContributionRow{{Date: day(3), Symbol: "A", ReturnPercent: 2, Allocation: 1, ContributionPercent: 2, RunID: "r1"}}
	require.NoError(t, s.RecordRun(ctx, day(3), 2, rows))
	require.NoError(t, s.AppendHistory(ctx, rows))

	snaps, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 2.0, snaps[0].PortfolioReturnPercent)

	history, err := s.ListHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, s.UpsertBenchmark(ctx, day(3), 0.4))
	require.NoError(t, s.UpsertBenchmark(ctx, day(3), 0.5))
	bms, err := s.ListBenchmarks(ctx)
	require.NoError(t, err)
	require.Len(t, bms, 1)
	assert.Equal(t, 0.5, bms[0].BenchmarkReturnPercent)
}

func TestPostgresBasket(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBasketEntry(ctx, models.BasketEntry{Symbol: "A", URL: "u", Allocation: 1}))
	require.NoError(t, s.SaveBasketEntry(ctx, models.BasketEntry{Symbol: "A", URL: "v", Allocation: 2}))

	basket, err := s.ListBasket(ctx)
	require.NoError(t, err)
	require.Len(t, basket, 1)
	assert.Equal(t, "v", basket[0].URL)

	require.NoError(t, s.UpdateBasketEntry(ctx, models.BasketEntry{Symbol: "A", URL: "w", Allocation: 3}))
	assert.ErrorIs(t, s.UpdateBasketEntry(ctx, models.BasketEntry{Symbol: "B", URL: "w", Allocation: 3}), ErrNotFound)

	require.NoError(t, s.DeleteBasketEntry(ctx, "A"))
	assert.ErrorIs(t, s.DeleteBasketEntry(ctx, "A"), ErrNotFound)
}
