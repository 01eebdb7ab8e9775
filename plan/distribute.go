/*
distribute.go - Exact-cents monthly proration

PURPOSE:
  Splits an annual two-decimal total into twelve monthly buckets whose sum
  is exactly the input. The algorithm works in integer cents so no precision
  is ever lost to floating point:

    cents     = total * 100, rounded half-up
    base      = cents / 12          (integer division)
    remainder = cents % 12          (0..11 leftover cents)

  Every bucket gets base cents; the first `remainder` buckets get one extra
  cent each. Early months therefore carry the rounding drift.

EXAMPLE:
  100.00 over 12 months:
    10000 cents -> base 833, remainder 4
    -> 8.34 8.34 8.34 8.34 8.33 8.33 8.33 8.33 8.33 8.33 8.33 8.33
    -> sums to exactly 100.00

SEE ALSO:
  - seeder.go: Prorates the uplifted baseline quantity
*/
package plan

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Distribute splits total into parts buckets summing exactly to total
// rounded to two decimals. Non-positive totals or parts yield all zeros.
func Distribute(total decimal.Decimal, parts int) []decimal.Decimal {
	out := make([]decimal.Decimal, max(parts, 0))
	for i := range out {
		out[i] = decimal.Zero
	}
	if parts <= 0 || total.Sign() <= 0 {
		return out
	}

	cents := total.Mul(hundred).Round(0).IntPart()
	base := cents / int64(parts)
	remainder := cents % int64(parts)

	for i := range out {
		c := base
		if int64(i) < remainder {
			c++
		}
		out[i] = decimal.New(c, -2)
	}
	return out
}

// DistributeMonths prorates an annual total across the twelve months.
func DistributeMonths(total decimal.Decimal) MonthlySeries {
	var out MonthlySeries
	copy(out[:], Distribute(total, Months))
	return out
}

// ApplyUplift grows qty by upliftPercent and rounds to two decimals.
// A 10 percent uplift turns 1200 into 1320.00.
func ApplyUplift(qty decimal.Decimal, upliftPercent float64) decimal.Decimal {
	factor := decimal.NewFromFloat(1 + upliftPercent/100)
	return qty.Mul(factor).Round(2)
}
