package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProtocolAccount holder id for funds owned by the protocol itself
const ProtocolAccount = "protocol"

var (
	// MinHealthFactor liquidation threshold, 1.0 in the health scale
	MinHealthFactor = decimal.New(1, 0)
	// MaxHealthFactor sentinel returned for accounts with zero debt
	MaxHealthFactor = decimal.New(1, 9)
)

// Controller cross-asset risk engine: asset registry, USD valuation, health
// factor, atomic borrow/withdraw gating and liquidation. Each public call is
// one serializable unit guarded by a call-scoped exclusive lock; a borrow or
// withdraw whose post-condition health check fails is rolled back completely.
type Controller interface {
	ListMarket(ctx context.Context, market *Market, ledger Ledger, token TokenPort, feed PriceFeed) error

	Supply(ctx context.Context, account, assetID string, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, account, assetID string, shares decimal.Decimal) (decimal.Decimal, error)
	Borrow(ctx context.Context, account, assetID string, amount decimal.Decimal) error
	Repay(ctx context.Context, account, assetID string, amount decimal.Decimal) (decimal.Decimal, error)

	Liquidate(ctx context.Context, liquidator, account, repayAssetID, rewardAssetID string) error
	CheckAndLiquidatePositions(ctx context.Context) error

	Valuation(ctx context.Context, assetID string, amount decimal.Decimal) (decimal.Decimal, error)
	AccountCollateralValue(ctx context.Context, account string) (decimal.Decimal, error)
	AccountBorrowedValue(ctx context.Context, account string) (decimal.Decimal, error)
	HealthFactor(ctx context.Context, account string) (decimal.Decimal, error)
	Account(ctx context.Context, account string) (*Account, error)

	AccrueMarkets(ctx context.Context) error
}
