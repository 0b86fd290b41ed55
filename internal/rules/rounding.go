package rules

import (
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// EarnPoints computes the integer points earned for a purchase amount under
// the rule's earn percent and rounding mode: raw = amount * percent / 100,
// then FLOOR toward negative infinity, CEIL toward positive infinity, or
// ROUND half away from zero.
func EarnPoints(amount, earnPercent decimal.Decimal, mode models.RoundingMode) int64 {
	raw := amount.Mul(earnPercent).Div(hundred)
	switch mode {
	case models.RoundCeil:
		return raw.Ceil().IntPart()
	case models.RoundHalf:
		return raw.Round(0).IntPart()
	default:
		return raw.Floor().IntPart()
	}
}

// RedeemPoints converts a redemption amount to points. Always floored,
// regardless of the rule's mode: rounding a debit up would over-debit.
func RedeemPoints(amount decimal.Decimal) int64 {
	return amount.Floor().IntPart()
}
