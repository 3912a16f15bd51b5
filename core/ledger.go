package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerSnapshot captures the market and one account's position so the
// controller can restore both when a post-condition check fails.
type LedgerSnapshot struct {
	Market   *Market
	Position *Position
}

// Ledger per-asset money market: share accounting, borrow-index accounting,
// interest accrual and liquidity assurance against the asset's yield venue.
//
// Every mutating call accrues interest first. Withdraw, Borrow, Repay and
// LiquidateCollateral return pending transfers instead of paying out
// directly; the controller commits them after its checks (see Transfer).
//
// LiquidateCollateral burns the entirety of the account's shares in this
// market while paying out only the requested amount; the excess stays in the
// market as cash backing the remaining shares. That matches the reference
// behavior and is flagged as a stakeholder decision, not an oversight.
type Ledger interface {
	AssetID() string
	Market(ctx context.Context) (*Market, error)

	AccrueInterest(ctx context.Context) error
	ClaimAndUpdateRewards(ctx context.Context) error
	EnsureLiquidity(ctx context.Context, required decimal.Decimal) error

	Supply(ctx context.Context, account string, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, account string, shares decimal.Decimal) (*Transfer, error)
	Borrow(ctx context.Context, account string, amount decimal.Decimal) (*Transfer, error)
	Repay(ctx context.Context, account string, amount decimal.Decimal) (*Transfer, error)
	LiquidateCollateral(ctx context.Context, account, recipient string, amount decimal.Decimal) (*Transfer, error)

	BalanceOfUnderlying(ctx context.Context, account string) (decimal.Decimal, error)
	BorrowBalanceCurrent(ctx context.Context, account string) (decimal.Decimal, error)
	RedeemValue(ctx context.Context, shares decimal.Decimal) (decimal.Decimal, error)

	Snapshot(ctx context.Context, account string) (*LedgerSnapshot, error)
	Restore(ctx context.Context, snapshot *LedgerSnapshot) error
}
