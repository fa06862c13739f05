package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/basket-tracker/internal/models"
)

func series(start models.Date, values ...float64) []models.PortfolioSnapshot {
	out := make([]models.PortfolioSnapshot, len(values))
	for i, v := range values {
		out[i] = models.PortfolioSnapshot{Date: start.AddDays(i), PortfolioReturnPercent: v}
	}
	return out
}

func TestRollingWindowsUsesRowLag(t *testing.T) {
	start := date(2025, time.January, 1)
	snaps := series(start, 1, 2, 4, 7, 11)

	got := RollingWindows(snaps, []int{3})
	require.Len(t, got[3], 2)
	assert.Equal(t, start.AddDays(3), got[3][0].Date)
	assert.InDelta(t, 6.0, got[3][0].Change, 1e-9) // 7 - 1
	assert.InDelta(t, 9.0, got[3][1].Change, 1e-9) // 11 - 2
}

func TestRollingWindowsSortsAndIgnoresGapsInDates(t *testing.T) {
	// Dates two weeks apart still lag by one row each
	snaps := []models.PortfolioSnapshot{
		{Date: date(2025, time.March, 1), PortfolioReturnPercent: 5},
		{Date: date(2025, time.January, 1), PortfolioReturnPercent: 1},
		{Date: date(2025, time.January, 15), PortfolioReturnPercent: 2},
	}

	got := RollingWindows(snaps, []int{1})
	require.Len(t, got[1], 2)
	assert.Equal(t, date(2025, time.January, 15), got[1][0].Date)
	assert.InDelta(t, 1.0, got[1][0].Change, 1e-9)
	assert.InDelta(t, 3.0, got[1][1].Change, 1e-9)
}

func TestRollingWindowsShortSeriesAndBadWindows(t *testing.T) {
	snaps := series(date(2025, time.January, 1), 1, 2)

	got := RollingWindows(snaps, []int{0, -2, 5, 5})
	assert.Len(t, got, 1)
	assert.Empty(t, got[5])

	assert.Len(t, RollingWindows(nil, DefaultWindows), len(DefaultWindows))
}

func TestJoinWithBenchmarkIsLeftJoin(t *testing.T) {
	start := date(2025, time.January, 1)
	snaps := series(start, 1.0, 2.0, 3.0)
	benchmarks := []models.BenchmarkReturn{
		{Date: start.AddDays(1), BenchmarkReturnPercent: 0.5},
		{Date: start.AddDays(10), BenchmarkReturnPercent: 9.9}, // no snapshot
	}

	points := JoinWithBenchmark(snaps, benchmarks)
	require.Len(t, points, 3)
	assert.Nil(t, points[0].Benchmark)
	require.NotNil(t, points[1].Benchmark)
	assert.InDelta(t, 0.5, *points[1].Benchmark, 1e-9)
	assert.Nil(t, points[2].Benchmark)

	pairs := CompletePairs(points)
	require.Len(t, pairs, 1)
	assert.Equal(t, start.AddDays(1), pairs[0].Date)
}

func TestCompare(t *testing.T) {
	start := date(2025, time.January, 1)
	b := []models.BenchmarkReturn{
		{Date: start, BenchmarkReturnPercent: 1},
		{Date: start.AddDays(1), BenchmarkReturnPercent: 2},
		{Date: start.AddDays(2), BenchmarkReturnPercent: 3},
	}
	snaps := series(start, 2, 3, 4, 100) // last date has no benchmark

	s := Compare(JoinWithBenchmark(snaps, b))
	assert.Equal(t, 3, s.Pairs)
	assert.InDelta(t, 3.0, s.PortfolioMean, 1e-9)
	assert.InDelta(t, 2.0, s.BenchmarkMean, 1e-9)
	assert.InDelta(t, 1.0, s.MeanExcessReturn, 1e-9)
	assert.InDelta(t, 0.0, s.TrackingError, 1e-9)
	assert.InDelta(t, 1.0, s.Correlation, 1e-9)
	assert.InDelta(t, 9.0, s.PortfolioCumulative, 1e-9)
	assert.InDelta(t, 6.0, s.BenchmarkCumulative, 1e-9)
}

func TestCompareSparse(t *testing.T) {
	start := date(2025, time.January, 1)
	assert.Equal(t, ComparisonSummary{}, Compare(JoinWithBenchmark(series(start, 1), nil)))

	one := Compare(JoinWithBenchmark(series(start, 1.5), []models.BenchmarkReturn{{Date: start, BenchmarkReturnPercent: 1}}))
	assert.Equal(t, 1, one.Pairs)
	assert.InDelta(t, 0.5, one.MeanExcessReturn, 1e-9)
	assert.Zero(t, one.TrackingError)
	assert.Zero(t, one.Correlation)
}

func TestFilterPeriod(t *testing.T) {
	today := date(2025, time.June, 30)
	snaps := []models.PortfolioSnapshot{
		{Date: date(2024, time.June, 1), PortfolioReturnPercent: 1},
		{Date: date(2025, time.April, 15), PortfolioReturnPercent: 2},
		{Date: date(2025, time.June, 1), PortfolioReturnPercent: 3},
		{Date: date(2025, time.June, 25), PortfolioReturnPercent: 4},
	}

	assert.Len(t, FilterPeriod(snaps, "week", today), 1)
	assert.Len(t, FilterPeriod(snaps, "month", today), 2)
	assert.Len(t, FilterPeriod(snaps, "3month", today), 3)
	assert.Len(t, FilterPeriod(snaps, "year", today), 3)
	assert.Len(t, FilterPeriod(snaps, "all", today), 4)
	assert.Len(t, FilterPeriod(snaps, "bogus", today), 2)

	assert.Equal(t, "month", NormalizePeriod("bogus"))
	assert.Equal(t, "3month", NormalizePeriod("3month"))
}
