package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceFeed point-in-time price source for one asset. LatestPrice returns the
// raw feed value together with its decimal precision; value / 10^decimals is
// the USD price per unit.
type PriceFeed interface {
	LatestPrice(ctx context.Context) (decimal.Decimal, int32, error)
}

// PriceService normalized USD prices over the registered feeds
type PriceService interface {
	AddFeed(assetID string, feed PriceFeed)
	Price(ctx context.Context, assetID string) (decimal.Decimal, error)
}
