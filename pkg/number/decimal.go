package number

import (
	"github.com/shopspring/decimal"
)

func Decimal(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

// RoundHalfUp rounds half away from zero at the given precision
func RoundHalfUp(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Round(precision)
}

// ZeroFloor clamps rounding drift: subtraction results that dip below zero
// are treated as zero rather than an error
func ZeroFloor(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
