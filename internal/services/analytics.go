package services

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/codyseavey/basket-tracker/internal/models"
)

// DefaultWindows are the row lags reported by the rolling-return view
var DefaultWindows = []int{3, 5, 10, 15, 30}

// WindowPoint is the change in portfolio return over one rolling window
type WindowPoint struct {
	Date   models.Date `json:"date"`
	Change float64     `json:"change"`
}

// ComparisonPoint pairs the portfolio return with the benchmark return for a date
type ComparisonPoint struct {
	Date      models.Date `json:"date"`
	Portfolio float64     `json:"portfolio_return_percent"`
	Benchmark *float64    `json:"benchmark_return_percent"`
}

// ComparisonSummary describes how the portfolio tracked the benchmark over
// the dates where both are known
type ComparisonSummary struct {
	Pairs               int     `json:"pairs"`
	PortfolioMean       float64 `json:"portfolio_mean"`
	BenchmarkMean       float64 `json:"benchmark_mean"`
	MeanExcessReturn    float64 `json:"mean_excess_return"`
	TrackingError       float64 `json:"tracking_error"`
	Correlation         float64 `json:"correlation"`
	PortfolioCumulative float64 `json:"portfolio_cumulative"`
	BenchmarkCumulative float64 `json:"benchmark_cumulative"`
}

// RollingWindows computes, for each positive window n, the difference between
// each snapshot and the one n rows earlier in date order. Lag is counted in
// rows, not calendar days; the first n rows have no value and are omitted.
func RollingWindows(snapshots []models.PortfolioSnapshot, windows []int) map[int][]WindowPoint {
	series := sortedSnapshots(snapshots)

	out := make(map[int][]WindowPoint, len(windows))
	for _, n := range windows {
		if n <= 0 {
			continue
		}
		if _, done := out[n]; done {
			continue
		}
		points := make([]WindowPoint, 0, max(len(series)-n, 0))
		for i := n; i < len(series); i++ {
			points = append(points, WindowPoint{
				Date:   series[i].Date,
				Change: series[i].PortfolioReturnPercent - series[i-n].PortfolioReturnPercent,
			})
		}
		out[n] = points
	}
	return out
}

// JoinWithBenchmark keeps every snapshot date and attaches the benchmark
// return recorded for the same date, if any. Benchmark-only dates are dropped.
func JoinWithBenchmark(snapshots []models.PortfolioSnapshot, benchmarks []models.BenchmarkReturn) []ComparisonPoint {
	byDate := make(map[models.Date]float64, len(benchmarks))
	for _, b := range benchmarks {
		byDate[b.Date] = b.BenchmarkReturnPercent
	}

	series := sortedSnapshots(snapshots)
	out := make([]ComparisonPoint, 0, len(series))
	for _, s := range series {
		p := ComparisonPoint{Date: s.Date, Portfolio: s.PortfolioReturnPercent}
		if v, ok := byDate[s.Date]; ok {
			p.Benchmark = &v
		}
		out = append(out, p)
	}
	return out
}

// CompletePairs keeps the points that carry both values
func CompletePairs(points []ComparisonPoint) []ComparisonPoint {
	out := make([]ComparisonPoint, 0, len(points))
	for _, p := range points {
		if p.Benchmark != nil && !math.IsNaN(p.Portfolio) && !math.IsNaN(*p.Benchmark) {
			out = append(out, p)
		}
	}
	return out
}

// Compare summarizes the complete pairs among points. Dispersion fields stay
// zero with fewer than two pairs.
func Compare(points []ComparisonPoint) ComparisonSummary {
	pairs := CompletePairs(points)
	if len(pairs) == 0 {
		return ComparisonSummary{}
	}

	portfolio := make([]float64, len(pairs))
	benchmark := make([]float64, len(pairs))
	for i, p := range pairs {
		portfolio[i] = p.Portfolio
		benchmark[i] = *p.Benchmark
	}
	excess := make([]float64, len(pairs))
	floats.SubTo(excess, portfolio, benchmark)

	summary := ComparisonSummary{
		Pairs:               len(pairs),
		PortfolioMean:       stat.Mean(portfolio, nil),
		BenchmarkMean:       stat.Mean(benchmark, nil),
		MeanExcessReturn:    stat.Mean(excess, nil),
		PortfolioCumulative: floats.Sum(portfolio),
		BenchmarkCumulative: floats.Sum(benchmark),
	}

	if len(pairs) >= 2 {
		summary.TrackingError = stat.StdDev(excess, nil)
		if c := stat.Correlation(portfolio, benchmark, nil); !math.IsNaN(c) {
			summary.Correlation = c
		}
	}
	return summary
}

// FilterPeriod keeps the snapshots dated within period of today. Unknown
// periods fall back to one month.
func FilterPeriod(snapshots []models.PortfolioSnapshot, period string, today models.Date) []models.PortfolioSnapshot {
	t := today.Time()
	var start models.Date

	switch period {
	case "week":
		start = models.DateOf(t.AddDate(0, 0, -7))
	case "month":
		start = models.DateOf(t.AddDate(0, -1, 0))
	case "3month":
		start = models.DateOf(t.AddDate(0, -3, 0))
	case "year":
		start = models.DateOf(t.AddDate(-1, 0, 0))
	case "all":
		return sortedSnapshots(snapshots)
	default:
		start = models.DateOf(t.AddDate(0, -1, 0))
	}

	out := make([]models.PortfolioSnapshot, 0, len(snapshots))
	for _, s := range sortedSnapshots(snapshots) {
		if !s.Date.Before(start) {
			out = append(out, s)
		}
	}
	return out
}

// NormalizePeriod maps unknown period names to the default
func NormalizePeriod(period string) string {
	switch period {
	case "week", "month", "3month", "year", "all":
		return period
	default:
		return "month"
	}
}

func sortedSnapshots(snapshots []models.PortfolioSnapshot) []models.PortfolioSnapshot {
	out := slices.Clone(snapshots)
	slices.SortStableFunc(out, func(a, b models.PortfolioSnapshot) int {
		return a.Date.Compare(b.Date)
	})
	return out
}
