package model

import "github.com/shopspring/decimal"

// Round rounds f half away from zero to places decimals.
func Round(f float64, places int32) float64 {
	return decimal.NewFromFloat(f).Round(places).InexactFloat64()
}
