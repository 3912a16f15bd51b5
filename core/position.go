package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Position per-account, per-market balances. BorrowPrincipal is stored scaled
// by the borrow index at the time of the last update, not as a raw currency
// amount; current debt = BorrowPrincipal * market.BorrowIndex. A position is
// zeroed on full withdraw/repay/liquidation, never deleted.
type Position struct {
	ID              uint64          `json:"id"`
	Account         string          `json:"account"`
	AssetID         string          `json:"asset_id"`
	SupplyShares    decimal.Decimal `json:"supply_shares"`
	BorrowPrincipal decimal.Decimal `json:"borrow_principal"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Copy returns a detached copy of the position record
func (p *Position) Copy() *Position {
	c := *p
	return &c
}

// PositionStore position store interface. Find returns a zero-value record
// (ID == 0) when the account has no position in the market yet.
type PositionStore interface {
	Save(ctx context.Context, position *Position) error
	Find(ctx context.Context, account, assetID string) (*Position, error)
	FindByAccount(ctx context.Context, account string) ([]*Position, error)
	FindByAsset(ctx context.Context, assetID string) ([]*Position, error)
	All(ctx context.Context) ([]*Position, error)
}
