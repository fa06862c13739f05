package models

import "github.com/shopspring/decimal"

// SignedPercent formats a percentage with an explicit sign, rounded half away
// from zero to places decimals, e.g. "+0.80%".
func SignedPercent(v float64, places int32) string {
	d := decimal.NewFromFloat(v).Round(places)
	s := d.StringFixed(places)
	if !d.IsNegative() {
		s = "+" + s
	}
	return s + "%"
}
