package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Amount computes the discount the rule grants on subtotal, without checking
// eligibility. Percentage discounts round to 2 decimal places. Both kinds
// are capped at the subtotal.
func Amount(rule *Rule, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch rule.Kind {
	case KindPercentage:
		amount = decimal.Min(subtotal.Mul(rule.Value).Div(hundred), subtotal)
	case KindFixed:
		amount = decimal.Min(rule.Value, subtotal)
	default:
		return decimal.Zero
	}
	return floorAtZero(amount).Round(2)
}

// Discount returns the discount granted on subtotal at now. It is zero when
// rule is nil, inactive, or the subtotal is below the minimum order amount.
func Discount(rule *Rule, subtotal decimal.Decimal, now time.Time) decimal.Decimal {
	if rule == nil || !rule.Active(now) {
		return decimal.Zero
	}
	if subtotal.LessThan(rule.MinAmount) {
		return decimal.Zero
	}
	return Amount(rule, subtotal)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
