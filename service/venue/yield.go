package venue

import (
	"context"
	"sync"
	"time"

	"lending/core"
	"lending/internal/lending"

	"github.com/shopspring/decimal"
)

// YieldVenue fixed-rate staking venue for one asset. Rewards accrue linearly
// on the staked principal at AnnualRate; Withdraw(0) claims pending rewards
// without touching the principal.
type YieldVenue struct {
	mu         sync.Mutex
	annualRate decimal.Decimal
	clock      func() time.Time

	staked     decimal.Decimal
	since      time.Time
	pending    decimal.Decimal
	lastUpdate time.Time
}

// NewYield new yield venue at the given annual rate
func NewYield(annualRate decimal.Decimal, clock func() time.Time) *YieldVenue {
	if clock == nil {
		clock = time.Now
	}

	return &YieldVenue{annualRate: annualRate, clock: clock}
}

func (v *YieldVenue) accrue() {
	now := v.clock()
	if !v.lastUpdate.IsZero() && v.staked.IsPositive() {
		elapsed := decimal.NewFromInt(int64(now.Sub(v.lastUpdate) / time.Second))
		if elapsed.IsPositive() {
			reward := v.staked.Mul(v.annualRate).Mul(elapsed).Div(lending.SecondsPerYear).Truncate(lending.MaxPrecision)
			v.pending = v.pending.Add(reward)
		}
	}
	v.lastUpdate = now
}

func (v *YieldVenue) Stake(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.accrue()
	if v.since.IsZero() {
		v.since = v.clock()
	}
	v.staked = v.staked.Add(amount)
	return nil
}

func (v *YieldVenue) Withdraw(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return core.ErrInvalidAmount
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.accrue()
	if amount.IsZero() {
		// claim only
		v.pending = decimal.Zero
		return nil
	}

	if amount.GreaterThan(v.staked) {
		return core.ErrInsufficientFunds
	}

	v.staked = v.staked.Sub(amount)
	return nil
}

func (v *YieldVenue) PendingRewards(ctx context.Context) (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.accrue()
	return v.pending, nil
}

func (v *YieldVenue) StakeInfo(ctx context.Context) (*core.StakeInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.accrue()
	return &core.StakeInfo{
		StakedAmount:   v.staked,
		Since:          v.since,
		PendingRewards: v.pending,
	}, nil
}

func (v *YieldVenue) AnnualRate() decimal.Decimal {
	return v.annualRate
}
