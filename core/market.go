package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Market market info, one record per listed asset. All balances are kept in
// underlying units; ExchangeRate and BorrowIndex are fixed-point accumulators
// that start at 1 and never decrease once committed.
type Market struct {
	ID      uint64 `json:"id"`
	AssetID string `json:"asset_id"`
	Symbol  string `json:"symbol"`
	// 现金池, on-hand liquidity not routed to the yield venue
	TotalCash    decimal.Decimal `json:"total_cash"`
	TotalBorrows decimal.Decimal `json:"total_borrows"`
	// 保留金
	Reserves decimal.Decimal `json:"reserves"`
	// supply shares minted so far, redeemable at ExchangeRate
	TotalShares  decimal.Decimal `json:"total_shares"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	BorrowIndex  decimal.Decimal `json:"borrow_index"`
	// 抵押率, percent of supplied value usable as collateral, fixed per market
	LoanToValue decimal.Decimal `json:"loan_to_value"`
	// 平台保留金率 (0, 1), 默认为 0.10
	ReserveFactor decimal.Decimal `json:"reserve_factor"`
	// 基础利率 per accrual period (one second)
	BaseRate decimal.Decimal `json:"base_rate"`
	// The multiplier of utilization rate that gives the slope of the interest rate. per period
	Multiplier decimal.Decimal `json:"multiplier"`
	// fraction of each supplied amount routed to the yield venue
	StakeRatio      decimal.Decimal `json:"stake_ratio"`
	LastAccrualTime int64           `json:"last_accrual_time"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Copy returns a detached copy of the market record
func (m *Market) Copy() *Market {
	c := *m
	return &c
}

// MarketStore market store interface. Listings are append only: Create
// rejects an asset that is already listed, and All returns markets in listing
// order.
type MarketStore interface {
	Create(ctx context.Context, market *Market) error
	Find(ctx context.Context, assetID string) (*Market, error)
	FindBySymbol(ctx context.Context, symbol string) (*Market, error)
	All(ctx context.Context) ([]*Market, error)
	AllAsMap(ctx context.Context) (map[string]*Market, error)
	Update(ctx context.Context, market *Market) error
}
