package catalog

import "github.com/shopspring/decimal"

// Precision is the number of decimals kept for stored amounts
const Precision = 3

// Round3 rounds an amount to the stored precision.
func Round3(v float64) float64 {
	return decimal.NewFromFloat(v).Round(Precision).InexactFloat64()
}

// SameCost reports whether a freshly computed amount equals a stored one once rounded.
func SameCost(stored, computed float64) bool {
	return decimal.NewFromFloat(stored).Round(Precision).Equal(decimal.NewFromFloat(computed).Round(Precision))
}
