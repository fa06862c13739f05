package models

// ContributionRow is one ledger line: a security's return and its share of
// the portfolio return for one aggregation run. Allocation is the raw
// entered weight, not the normalized fraction.
type ContributionRow struct {
	ID                  uint    `json:"id,omitempty"`
	Date                Date    `json:"date"`
	Symbol              string  `json:"symbol"`
	ReturnPercent       float64 `json:"return_percent"`
	Allocation          float64 `json:"allocation"`
	ContributionPercent float64 `json:"contribution_percent"`
	RunID               string  `json:"run_id,omitempty"`
}

// PortfolioSnapshot is the single aggregated return recorded for a date
type PortfolioSnapshot struct {
	Date                   Date    `json:"date"`
	PortfolioReturnPercent float64 `json:"portfolio_return_percent"`
}

// BenchmarkReturn is an operator-entered benchmark (mutual fund) return for a date
type BenchmarkReturn struct {
	Date                   Date    `json:"date"`
	BenchmarkReturnPercent float64 `json:"benchmark_return_percent"`
}

// Aggregation is the outcome of combining a basket's fetched returns
type Aggregation struct {
	PortfolioReturnPercent float64           `json:"portfolio_return_percent"`
	TotalAllocation        float64           `json:"total_allocation"`
	Rows                   []ContributionRow `json:"rows"`
	Warnings               []string          `json:"warnings,omitempty"`
}

// PositiveCount returns how many rows had a positive return
func (a *Aggregation) PositiveCount() int {
	n := 0
	for _, r := range a.Rows {
		if r.ReturnPercent > 0 {
			n++
		}
	}
	return n
}

// Stamp assigns the run date and id to every row
func (a *Aggregation) Stamp(date Date, runID string) {
	for i := range a.Rows {
		a.Rows[i].Date = date
		a.Rows[i].RunID = runID
	}
}

// UpsertBenchmarkRequest is the body for manual benchmark entry.
// Date defaults to today when omitted.
type UpsertBenchmarkRequest struct {
	Date          *Date    `json:"date"`
	ReturnPercent *float64 `json:"return_percent" binding:"required"`
}

// SnapshotHistoryResponse is the API response for the snapshot series
type SnapshotHistoryResponse struct {
	Snapshots []PortfolioSnapshot `json:"snapshots"`
	Period    string              `json:"period"` // "week", "month", "3month", "year", "all"
}
