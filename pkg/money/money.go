// Package money holds the scalar price arithmetic shared by the resolver and
// the bulk price change engine.
package money

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tavola-backend/pkg/enums"
)

// Places is the currency precision every stored price is rounded to.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Change describes one bulk adjustment applied uniformly to every price field.
type Change struct {
	Type      enums.PriceChangeType
	ValueType enums.PriceValueType
	Value     decimal.Decimal
}

// Round2 rounds half away from zero to currency precision.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(Places)
}

// NewPrice applies the change to old and clamps the result at zero.
func NewPrice(old decimal.Decimal, change Change) decimal.Decimal {
	delta := change.Value
	if change.ValueType == enums.PriceValuePercentage {
		delta = old.Mul(change.Value).Div(hundred)
	}

	result := old.Add(delta)
	if change.Type == enums.PriceChangeDecrease {
		result = old.Sub(delta)
	}

	result = Round2(result)
	if result.IsNegative() {
		return decimal.Zero
	}
	return result
}

// Apply runs NewPrice over an optional price, leaving nil untouched.
func Apply(old *decimal.Decimal, change Change) *decimal.Decimal {
	if old == nil {
		return nil
	}
	next := NewPrice(*old, change)
	return &next
}
