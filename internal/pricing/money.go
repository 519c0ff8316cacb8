package pricing

import "github.com/shopspring/decimal"

// MoneyPlaces is the precision amounts are presented and totalled with.
const MoneyPlaces = 2

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// RoundMoney rounds to cents, half away from zero. Amounts produced by the
// engine are non-negative, so this is round-half-up.
//
// Only call it at presentation or total boundaries; unit prices that are
// multiplied further stay unrounded.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Percent converts a percentage (0-100) into a fraction.
func Percent(v decimal.Decimal) decimal.Decimal {
	return v.Div(hundred)
}
