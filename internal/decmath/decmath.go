// Package decmath holds the fixed-point arithmetic used on every
// cost-basis and valuation path. Nothing in the ledger does money math
// outside of it.
package decmath

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrDivisionByZero = errors.New("division by zero")

// Value returns quantity × price.
func Value(quantity int64, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}

// Div returns a/b, failing instead of panicking when b is zero.
func Div(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Decimal{}, ErrDivisionByZero
	}
	return a.Div(b), nil
}

// WeightedAverageCost blends an existing lot (quantity at avgCost) with
// a new purchase (addQuantity at price):
//
//	((quantity × avgCost) + (addQuantity × price)) / (quantity + addQuantity)
func WeightedAverageCost(quantity int64, avgCost decimal.Decimal, addQuantity int64, price decimal.Decimal) (decimal.Decimal, error) {
	totalCost := Value(quantity, avgCost).Add(Value(addQuantity, price))
	return Div(totalCost, decimal.NewFromInt(quantity+addQuantity))
}
