package models

import "strings"

// BasketEntry is one security in the operator-configured basket.
// Allocation is a user-entered weight; the basket need not sum to 100.
type BasketEntry struct {
	Symbol     string  `json:"symbol" gorm:"column:symbol;primaryKey"`
	URL        string  `json:"url" gorm:"column:url;not null"`
	Allocation float64 `json:"allocation" gorm:"column:allocation;not null"`
}

// TableName keeps the table name used by existing portfolio databases
func (BasketEntry) TableName() string {
	return "stocks"
}

// NormalizeSymbol trims and upper-cases a symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// TotalAllocation sums the raw allocation weights of a basket
func TotalAllocation(basket []BasketEntry) float64 {
	total := 0.0
	for _, e := range basket {
		total += e.Allocation
	}
	return total
}

// SaveBasketEntryRequest is the body for adding or updating an entry
type SaveBasketEntryRequest struct {
	Symbol     string  `json:"symbol"`
	URL        string  `json:"url" binding:"required"`
	Allocation float64 `json:"allocation" binding:"required"`
}
