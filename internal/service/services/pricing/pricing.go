// Package pricing computes payment processor fees and charged totals.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount, in minor units, accepted for a subtotal, a shipping
// cost or a fee. Keeping every input at or below it leaves int64 sums far from overflow.
const MaxAmount int64 = 1_000_000_000_000_000

// FeeBreakdown is a computed, never persisted, view of what the shopper is charged.
// All values are minor currency units.
type FeeBreakdown struct {
	Subtotal  int64 `json:"subtotal"`
	Shipping  int64 `json:"shipping"`
	BaseTotal int64 `json:"baseTotal"`
	Fees      int64 `json:"fees"`
	Total     int64 `json:"total"`
}

// Calculator applies the processor's published rate: a percentage of the base total plus
// a fixed fee.
type Calculator struct {
	feePercentage decimal.Decimal
	fixedFee      decimal.Decimal
}

// NewCalculator creates a Calculator. Negative rates are treated as zero.
func NewCalculator(feePercentage decimal.Decimal, fixedFee int64) *Calculator {
	if feePercentage.IsNegative() {
		feePercentage = decimal.Zero
	}
	if fixedFee < 0 {
		fixedFee = 0
	}

	return &Calculator{
		feePercentage: feePercentage,
		fixedFee:      decimal.NewFromInt(fixedFee),
	}
}

// Calculate returns the fee breakdown for a subtotal and shipping cost.
// Inputs are clamped to [0, MaxAmount] and fees are capped at MaxAmount.
// Fees round half-up to an integer minor unit.
func (c *Calculator) Calculate(subtotal, shipping int64) FeeBreakdown {
	subtotal = clampAmount(subtotal)
	shipping = clampAmount(shipping)

	base := subtotal + shipping
	fee := decimal.NewFromInt(base).
		Mul(c.feePercentage).
		Add(c.fixedFee).
		Round(0)

	fees := MaxAmount
	if fee.LessThan(decimal.NewFromInt(MaxAmount)) {
		fees = fee.IntPart()
	}

	return FeeBreakdown{
		Subtotal:  subtotal,
		Shipping:  shipping,
		BaseTotal: base,
		Fees:      fees,
		Total:     base + fees,
	}
}

// CoerceAmount converts a JSON number into minor units. NaN, infinities and negative
// values become zero, values above MaxAmount become MaxAmount and fractions round half-up.
func CoerceAmount(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	if v >= float64(MaxAmount) {
		return MaxAmount
	}

	return clampAmount(decimal.NewFromFloat(v).Round(0).IntPart())
}

func clampAmount(v int64) int64 {
	return min(max(v, 0), MaxAmount)
}
