package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StakeInfo current staking state of the ledger at its yield venue
type StakeInfo struct {
	StakedAmount   decimal.Decimal `json:"staked_amount"`
	Since          time.Time       `json:"since"`
	PendingRewards decimal.Decimal `json:"pending_rewards"`
}

// YieldVenue per-asset yield source the ledger routes idle liquidity to.
// Withdraw with a zero amount claims pending rewards without unstaking;
// a positive amount recalls staked principal only.
type YieldVenue interface {
	Stake(ctx context.Context, amount decimal.Decimal) error
	Withdraw(ctx context.Context, amount decimal.Decimal) error
	PendingRewards(ctx context.Context) (decimal.Decimal, error)
	StakeInfo(ctx context.Context) (*StakeInfo, error)
	AnnualRate() decimal.Decimal
}
