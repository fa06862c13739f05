package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/basket-tracker/internal/models"
)

// Monday 3 March 2025, 17:00 UTC
var testNow = time.Date(2025, time.March, 3, 17, 0, 0, 0, time.UTC)

func newTestSnapshotService(st *memStore, src ReturnSource, cal Calendar, now time.Time) *SnapshotService {
	return NewSnapshotService(SnapshotServiceConfig{
		Store:        st,
		Basket:       st,
		Aggregator:   NewAggregator(src, 1, zerolog.Nop()),
		Gate:         NewTradingDayGate(cal, zerolog.Nop()),
		Location:     time.UTC,
		SnapshotHour: 16,
		Now:          func() time.Time { return now },
	}, zerolog.Nop())
}

func testBasket() []models.BasketEntry {
	return []models.BasketEntry{
		{Symbol: "A", URL: "u/a", Allocation: 60},
		{Symbol: "B", URL: "u/b", Allocation: 40},
	}
}

func openCalendar(days ...models.Date) fakeCalendar {
	sessions := map[models.Date]int{}
	for _, d := range days {
		sessions[d] = 1
	}
	return fakeCalendar{sessions: sessions}
}

func TestRunDailyRecordsSnapshotAndLedger(t *testing.T) {
	st := newMemStore(testBasket()...)
	src := &mapSource{returns: map[string]float64{"u/a": 2.0, "u/b": -1.0}}
	today := models.DateOf(testNow)
	svc := newTestSnapshotService(st, src, openCalendar(today), testNow)

	report, err := svc.RunDaily(context.Background(), TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, report.Outcome)
	assert.Equal(t, today, report.Date)
	assert.NotEmpty(t, report.RunID)
	assert.InDelta(t, 0.8, report.PortfolioReturnPercent, 1e-9)
	assert.Equal(t, 2, report.Entries)
	assert.Equal(t, 1, report.PositiveCount)

	snaps, _ := st.ListSnapshots(context.Background())
	require.Len(t, snaps, 1)
	assert.InDelta(t, 0.8, snaps[0].PortfolioReturnPercent, 1e-9)

	history, _ := st.ListHistory(context.Background())
	require.Len(t, history, 2)
	for _, row := range history {
		assert.Equal(t, today, row.Date)
		assert.Equal(t, report.RunID, row.RunID)
	}
	assert.Same(t, report, svc.LastRun())
}

func TestRunDailyTwiceReplacesSnapshotAndAppendsLedger(t *testing.T) {
	st := newMemStore(testBasket()...)
	src := &mapSource{returns: map[string]float64{"u/a": 1.0, "u/b": 1.0}}
	svc := newTestSnapshotService(st, src, openCalendar(models.DateOf(testNow)), testNow)
	ctx := context.Background()

	first, err := svc.RunDaily(ctx, TriggerManual)
	require.NoError(t, err)
	src.returns["u/a"] = 3.0
	second, err := svc.RunDaily(ctx, TriggerManual)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	snaps, _ := st.ListSnapshots(ctx)
	require.Len(t, snaps, 1)
	assert.InDelta(t, 2.2, snaps[0].PortfolioReturnPercent, 1e-9)

	history, _ := st.ListHistory(ctx)
	assert.Len(t, history, 4)
}

func TestRunDailySkipsNonTradingDay(t *testing.T) {
	st := newMemStore(testBasket()...)
	src := &mapSource{returns: map[string]float64{"u/a": 2.0}}
	svc := newTestSnapshotService(st, src, openCalendar(), testNow)

	report, err := svc.RunDaily(context.Background(), TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, report.Outcome)
	assert.Equal(t, "not a trading day", report.Reason)
	assert.Empty(t, src.calls)

	snaps, _ := st.ListSnapshots(context.Background())
	assert.Empty(t, snaps)
}

func TestRunForceBypassesGateAndUsesDate(t *testing.T) {
	st := newMemStore(testBasket()...)
	src := &mapSource{returns: map[string]float64{"u/a": 1.0, "u/b": 1.0}}
	svc := newTestSnapshotService(st, src, openCalendar(), testNow)
	saturday := models.Date{Year: 2025, Month: time.March, Day: 1}

	report, err := svc.Run(context.Background(), RunOptions{Date: saturday, Force: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, report.Outcome)
	assert.Equal(t, TriggerManual, report.Trigger)

	ok, _ := st.HasSnapshot(context.Background(), saturday)
	assert.True(t, ok)
}

func TestRunDailyEmptyBasketIsBenign(t *testing.T) {
	st := newMemStore()
	svc := newTestSnapshotService(st, &mapSource{}, openCalendar(models.DateOf(testNow)), testNow)

	report, err := svc.RunDaily(context.Background(), TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, report.Outcome)
	assert.Equal(t, "basket is empty", report.Reason)
}

func TestRunDailyPersistenceFailure(t *testing.T) {
	st := newMemStore(testBasket()...)
	st.failWrites = errDiskFull
	src := &mapSource{returns: map[string]float64{"u/a": 1.0, "u/b": 1.0}}
	svc := newTestSnapshotService(st, src, openCalendar(models.DateOf(testNow)), testNow)

	report, err := svc.RunDaily(context.Background(), TriggerSchedule)
	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Contains(t, report.Error, "disk full")

	st.failWrites = nil
	history, _ := st.ListHistory(context.Background())
	assert.Empty(t, history)
}

func TestSaveAggregationIsNotGated(t *testing.T) {
	st := newMemStore()
	svc := newTestSnapshotService(st, &mapSource{}, openCalendar(), testNow)

	agg := &models.Aggregation{
		PortfolioReturnPercent: 1.5,
		Rows:                   []models.ContributionRow{{Symbol: "A", ReturnPercent: 1.5, Allocation: 1, ContributionPercent: 1.5}},
	}
	report, err := svc.SaveAggregation(context.Background(), agg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, report.Outcome)
	assert.Equal(t, TriggerInteractive, report.Trigger)

	history, _ := st.ListHistory(context.Background())
	require.Len(t, history, 1)
	assert.Equal(t, models.DateOf(testNow), history[0].Date)

	skipped, err := svc.SaveAggregation(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, skipped.Outcome)
}

func TestCatchUp(t *testing.T) {
	ctx := context.Background()
	today := models.DateOf(testNow)
	src := &mapSource{returns: map[string]float64{"u/a": 1.0, "u/b": 1.0}}

	t.Run("before snapshot hour", func(t *testing.T) {
		st := newMemStore(testBasket()...)
		early := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
		report, err := newTestSnapshotService(st, src, openCalendar(today), early).CatchUp(ctx)
		require.NoError(t, err)
		assert.Nil(t, report)
	})

	t.Run("already recorded", func(t *testing.T) {
		st := newMemStore(testBasket()...)
		require.NoError(t, st.UpsertSnapshot(ctx, today, 0.1))
		report, err := newTestSnapshotService(st, src, openCalendar(today), testNow).CatchUp(ctx)
		require.NoError(t, err)
		assert.Nil(t, report)
	})

	t.Run("missing snapshot", func(t *testing.T) {
		st := newMemStore(testBasket()...)
		report, err := newTestSnapshotService(st, src, openCalendar(today), testNow).CatchUp(ctx)
		require.NoError(t, err)
		require.NotNil(t, report)
		assert.Equal(t, TriggerCatchUp, report.Trigger)
		assert.Equal(t, OutcomeSaved, report.Outcome)
	})
}

func TestGetHistoryAndLastSnapshot(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	svc := newTestSnapshotService(st, &mapSource{}, nil, testNow)

	last, err := svc.GetLastSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	today := models.DateOf(testNow)
	require.NoError(t, st.UpsertSnapshot(ctx, today.AddDays(-60), 1))
	require.NoError(t, st.UpsertSnapshot(ctx, today.AddDays(-3), 2))
	require.NoError(t, st.UpsertSnapshot(ctx, today, 3))

	week, err := svc.GetHistory(ctx, "week")
	require.NoError(t, err)
	assert.Len(t, week, 2)

	all, err := svc.GetHistory(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	last, err = svc.GetLastSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, today, last.Date)
}
