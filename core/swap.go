package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SwapVenue asset conversion used by the liquidation scanner. Convert fails
// when the resulting amount is below minAmountOut or the deadline has passed.
type SwapVenue interface {
	Convert(ctx context.Context, assetIn, assetOut string, amountIn, minAmountOut decimal.Decimal, deadline time.Time) (decimal.Decimal, error)
}
