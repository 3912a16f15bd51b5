package lending

import (
	"github.com/shopspring/decimal"
)

var (
	// SecondsPerYear one accrual period is one second
	SecondsPerYear = decimal.NewFromInt(31536000)
	// MaxTotalValue ceiling for any ledger aggregate; accrual that would push
	// total borrows past it is fatal rather than silently wrapping
	MaxTotalValue = decimal.New(1, 30)
	// MaxPrecision max precision
	MaxPrecision int32 = 16

	one = decimal.New(1, 0)
)

// UtilizationRate utilization rate
// utilization_rate = borrows / (cash + borrows - reserves)
// An empty pool counts as one unit of total assets to avoid division by zero.
func UtilizationRate(cash, borrows, reserves decimal.Decimal) decimal.Decimal {
	if !borrows.IsPositive() {
		return decimal.Zero
	}

	total := cash.Add(borrows).Sub(reserves)
	if total.LessThanOrEqual(decimal.Zero) {
		total = one
	}

	return borrows.Div(total).Truncate(MaxPrecision)
}

// BorrowRatePerPeriod borrow rate for one accrual period
//
// With no outstanding borrows the pool pays the base rate regardless of cash
// or reserves; at full utilization (no cash left) the rate tops out at
// base + multiplier.
func BorrowRatePerPeriod(cash, borrows, reserves, baseRate, multiplier decimal.Decimal) decimal.Decimal {
	if !borrows.IsPositive() {
		return baseRate
	}

	util := UtilizationRate(cash, borrows, reserves)
	return baseRate.Add(util.Mul(multiplier)).Truncate(MaxPrecision)
}

// SupplyRatePerPeriod supply rate for one accrual period
func SupplyRatePerPeriod(cash, borrows, reserves, baseRate, multiplier, reserveFactor decimal.Decimal) decimal.Decimal {
	borrowRate := BorrowRatePerPeriod(cash, borrows, reserves, baseRate, multiplier)
	rateToPool := borrowRate.Mul(one.Sub(reserveFactor))
	return UtilizationRate(cash, borrows, reserves).Mul(rateToPool).Truncate(MaxPrecision)
}

// RatePerSecond converts an annual rate to a per-period rate
func RatePerSecond(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.Div(SecondsPerYear).Truncate(MaxPrecision)
}

// AnnualRate converts a per-period rate back to an annual rate
func AnnualRate(ratePerSecond decimal.Decimal) decimal.Decimal {
	return ratePerSecond.Mul(SecondsPerYear).Truncate(MaxPrecision)
}
