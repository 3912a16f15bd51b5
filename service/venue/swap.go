package venue

import (
	"context"
	"errors"
	"time"

	"lending/core"

	"github.com/shopspring/decimal"
)

var (
	// ErrDeadlineExceeded swap submitted past its deadline
	ErrDeadlineExceeded = errors.New("venue: deadline exceeded")
	// ErrSlippageExceeded output below the requested minimum
	ErrSlippageExceeded = errors.New("venue: amount out below minimum")
)

// SwapVenue oracle-priced converter charging a flat fee. Serves as the swap
// port for local runs and as the deterministic double in scanner tests.
type SwapVenue struct {
	prices core.PriceService
	fee    decimal.Decimal
	clock  func() time.Time
}

// NewSwap new swap venue; fee is a fraction in [0, 1)
func NewSwap(prices core.PriceService, fee decimal.Decimal, clock func() time.Time) *SwapVenue {
	if clock == nil {
		clock = time.Now
	}

	return &SwapVenue{prices: prices, fee: fee, clock: clock}
}

func (s *SwapVenue) Convert(ctx context.Context, assetIn, assetOut string, amountIn, minAmountOut decimal.Decimal, deadline time.Time) (decimal.Decimal, error) {
	if s.clock().After(deadline) {
		return decimal.Zero, ErrDeadlineExceeded
	}

	if !amountIn.IsPositive() {
		return decimal.Zero, core.ErrInvalidAmount
	}

	priceIn, err := s.prices.Price(ctx, assetIn)
	if err != nil {
		return decimal.Zero, err
	}

	priceOut, err := s.prices.Price(ctx, assetOut)
	if err != nil {
		return decimal.Zero, err
	}

	one := decimal.New(1, 0)
	amountOut := amountIn.Mul(priceIn).Div(priceOut).Mul(one.Sub(s.fee)).Truncate(8)
	if amountOut.LessThan(minAmountOut) {
		return decimal.Zero, ErrSlippageExceeded
	}

	return amountOut, nil
}
