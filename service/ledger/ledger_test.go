package ledger

import (
	"context"
	"testing"
	"time"

	"lending/core"
	"lending/pkg/number"
	"lending/service/venue"
	marketstore "lending/store/market"
	positionstore "lending/store/position"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	ledger    core.Ledger
	markets   core.MarketStore
	positions core.PositionStore
	yield     *venue.YieldVenue
	now       time.Time
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func newTestEnv(t *testing.T, market *core.Market, yieldRate decimal.Decimal) *testEnv {
	env := &testEnv{now: time.Unix(1700000000, 0)}
	clock := func() time.Time { return env.now }

	env.markets = marketstore.New()
	env.positions = positionstore.New()
	env.yield = venue.NewYield(yieldRate, clock)

	market.LastAccrualTime = env.now.Unix()
	require.Nil(t, env.markets.Create(context.Background(), market))

	env.ledger = New(market.AssetID, env.markets, env.positions, env.yield, clock)
	return env
}

func newMarket(stakeRatio string) *core.Market {
	return &core.Market{
		AssetID:       "btc",
		Symbol:        "BTC",
		ExchangeRate:  decimal.New(1, 0),
		BorrowIndex:   decimal.New(1, 0),
		LoanToValue:   number.Decimal("75"),
		ReserveFactor: number.Decimal("0.1"),
		BaseRate:      number.Decimal("0.01"),
		Multiplier:    decimal.Zero,
		StakeRatio:    number.Decimal(stakeRatio),
	}
}

func TestSupplyMintsShares(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMarket("0"), decimal.Zero)

	shares, err := env.ledger.Supply(ctx, "alice", number.Decimal("100"))
	require.Nil(t, err)
	require.True(t, shares.Equal(number.Decimal("100")), "bootstrap supply is 1:1")

	market, err := env.ledger.Market(ctx)
	require.Nil(t, err)
	require.True(t, market.TotalCash.Equal(number.Decimal("100")))
	require.True(t, market.TotalShares.Equal(number.Decimal("100")))

	_, err = env.ledger.Supply(ctx, "alice", decimal.Zero)
	require.Equal(t, core.ErrInvalidAmount, err)
}

func TestSupplyRoutesStakeRatio(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMarket("0.5"), number.Decimal("0.05"))

	_, err := env.ledger.Supply(ctx, "alice", number.Decimal("100"))
	require.Nil(t, err)

	market, err := env.ledger.Market(ctx)
	require.Nil(t, err)
	require.True(t, market.TotalCash.Equal(number.Decimal("50")))

	info, err := env.yield.StakeInfo(ctx)
	require.Nil(t, err)
	require.True(t, info.StakedAmount.Equal(number.Decimal("50")))
}

func TestAccrueInterest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMarket("0"), decimal.Zero)

	_, err := env.ledger.Supply(ctx, "alice", number.Decimal("100"))
	require.Nil(t, err)

	_, err = env.ledger.Borrow(ctx, "bob", number.Decimal("50"))
	require.Nil(t, err)

	env.advance(time.Second)
	require.Nil(t, env.ledger.AccrueInterest(ctx))

	// rate 0.01/period on 50 borrowed: interest 0.5, a tenth to reserves
	market, err := env.ledger.Market(ctx)
	require.Nil(t, err)
	require.True(t, market.TotalBorrows.Equal(number.Decimal("50.5")))
	require.True(t, market.Reserves.Equal(number.Decimal("0.05")))
	require.True(t, market.ExchangeRate.Equal(number.Decimal("1.0045")))
	require.True(t, market.BorrowIndex.Equal(number.Decimal("1.01")))

	// same period again is a no-op
	require.Nil(t, env.ledger.AccrueInterest(ctx))
	again, err := env.ledger.Market(ctx)
	require.Nil(t, err)
	require.True(t, again.TotalBorrows.Equal(market.TotalBorrows))

	debt, err := env.ledger.BorrowBalanceCurrent(ctx, "bob")
	require.Nil(t, err)
	require.True(t, debt.Equal(number.Decimal("50.5")))
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMarket("0"), decimal.Zero)

	_, err := env.ledger.Supply(ctx, "alice", number.Decimal("100"))
	require.Nil(t, err)

	_, err = env.ledger.Withdraw(ctx, "alice", number.Decimal("200"))
	require.Equal(t, core.ErrInsufficientShares, err)

	transfer, err := env.ledger.Withdraw(ctx, "alice", number.Decimal("40"))
	require.Nil(t, err)
	require.Equal(t, "alice", transfer.OpponentID)
	require.True(t, transfer.Amount.Equal(number.Decimal("40")))

	market, err := env.ledger.Market(ctx)
	require.Nil(t, err)
	require.True(t, market.TotalCash.Equal(number.Decimal("60")))
	require.True(t, market.TotalShares.Equal(number.Decimal("60")))
}

func TestWithdrawRecallsStakedFunds(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMarket("0.5"), decimal.Zero)

	_, err := env.ledger.Supply(ctx, "alice", number.Decimal("100"))
	require.Nil(t, err)

	// cash is 50; withdrawing 80 forces a recall of 30 from the venue
	transfer, err := env.ledger.Withdraw(ctx, "alice", number.Decimal("80"))
	require.Nil(t, err)
	require.True(t, transfer.Amount.Equal(number.Decimal("80")))

	info, err := env.yield.StakeInfo(ctx)
	require.Nil(t, err)
	require.True(t, info.StakedAmount.Equal(number.Decimal("20")))

	market, err := env.ledger.Market(ctx)
	require.Nil(t, err)
	require.True(t, market.TotalCash.Equal(decimal.Zero))
}

func TestBorrowInsufficientLiquidity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMarket("0"), decimal.Zero)

	_, err := env.ledger.Supply(ctx, "alice", number.Decimal("10"))
	require.Nil(t, err)

	_, err = env.ledger.Borrow(ctx, "bob", number.Decimal("50"))
	require.Equal(t, core.ErrInsufficientLiquidity, err)
}

func TestRepay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMarket("0"), decimal.Zero)

	_, err := env.ledger.Supply(ctx, "alice", number.Decimal("100"))
	require.Nil(t, err)

	_, err = env.ledger.Borrow(ctx, "bob", number.Decimal("50"))
	require.Nil(t, err)

	_, err = env.ledger.Repay(ctx, "carol", number.Decimal("1"))
	require.Equal(t, core.ErrBorrowNotFound, err)

	refund, err := env.ledger.Repay(ctx, "bob", number.Decimal("20"))
	require.Nil(t, err)
	require.Nil(t, refund)

	debt, err := env.ledger.BorrowBalanceCurrent(ctx, "bob")
	require.Nil(t, err)
	require.True(t, debt.Equal(number.Decimal("30")))

	// overpay closes the debt and refunds the rest
	refund, err = env.ledger.Repay(ctx, "bob", number.Decimal("42"))
	require.Nil(t, err)
	require.NotNil(t, refund)
	require.Equal(t, "bob", refund.OpponentID)
	require.True(t, refund.Amount.Equal(number.Decimal("12")))

	debt, err = env.ledger.BorrowBalanceCurrent(ctx, "bob")
	require.Nil(t, err)
	require.True(t, debt.IsZero())

	market, err := env.ledger.Market(ctx)
	require.Nil(t, err)
	require.True(t, market.TotalBorrows.IsZero())
	require.True(t, market.TotalCash.Equal(number.Decimal("100")))
}

// a full repay by the sole borrower followed by a full withdraw by the sole
// supplier must return at least the original principal once interest accrued
func TestInterestRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMarket("0"), decimal.Zero)

	supplied := number.Decimal("100")
	_, err := env.ledger.Supply(ctx, "alice", supplied)
	require.Nil(t, err)

	_, err = env.ledger.Borrow(ctx, "bob", number.Decimal("50"))
	require.Nil(t, err)

	// rate 0.01/period over 100 periods doubles the debt
	env.advance(100 * time.Second)
	require.Nil(t, env.ledger.AccrueInterest(ctx))

	debt, err := env.ledger.BorrowBalanceCurrent(ctx, "bob")
	require.Nil(t, err)
	require.True(t, debt.Equal(number.Decimal("100")))

	refund, err := env.ledger.Repay(ctx, "bob", number.Decimal("120"))
	require.Nil(t, err)
	require.NotNil(t, refund)
	require.True(t, refund.Amount.Equal(number.Decimal("20")))

	transfer, err := env.ledger.Withdraw(ctx, "alice", supplied)
	require.Nil(t, err)
	require.True(t, transfer.Amount.Equal(number.Decimal("145")))
	require.True(t, transfer.Amount.GreaterThanOrEqual(supplied), "supplier gets back at least the principal")

	// what remains in the pool is exactly the reserve cut
	market, err := env.ledger.Market(ctx)
	require.Nil(t, err)
	require.True(t, market.TotalShares.IsZero())
	require.True(t, market.TotalBorrows.IsZero())
	require.True(t, market.TotalCash.Equal(market.Reserves))
}

func TestClaimAndUpdateRewards(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMarket("0.5"), number.Decimal("31.536"))

	_, err := env.ledger.Supply(ctx, "alice", number.Decimal("100"))
	require.Nil(t, err)

	// 50 staked at 31.536/yr accrues 0.00005/s
	env.advance(100 * time.Second)
	require.Nil(t, env.ledger.ClaimAndUpdateRewards(ctx))

	market, err := env.ledger.Market(ctx)
	require.Nil(t, err)
	require.True(t, market.TotalCash.Equal(number.Decimal("50.005")))
	require.True(t, market.ExchangeRate.Equal(number.Decimal("1.00005")))

	info, err := env.yield.StakeInfo(ctx)
	require.Nil(t, err)
	require.True(t, info.PendingRewards.IsZero())
	require.True(t, info.StakedAmount.Equal(number.Decimal("50")))
}

func TestLiquidateCollateralSeizesAllShares(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMarket("0"), decimal.Zero)

	_, err := env.ledger.Supply(ctx, "alice", number.Decimal("100"))
	require.Nil(t, err)

	transfer, err := env.ledger.LiquidateCollateral(ctx, "alice", "liquidator", number.Decimal("30"))
	require.Nil(t, err)
	require.Equal(t, "liquidator", transfer.OpponentID)
	require.True(t, transfer.Amount.Equal(number.Decimal("30")))

	// every share is burned even though only 30 was paid out
	position, err := env.positions.Find(ctx, "alice", "btc")
	require.Nil(t, err)
	require.True(t, position.SupplyShares.IsZero())

	market, err := env.ledger.Market(ctx)
	require.Nil(t, err)
	require.True(t, market.TotalShares.IsZero())
	require.True(t, market.TotalCash.Equal(number.Decimal("70")))

	_, err = env.ledger.LiquidateCollateral(ctx, "alice", "liquidator", number.Decimal("1"))
	require.Equal(t, core.ErrSupplyNotFound, err)
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, newMarket("0"), decimal.Zero)

	_, err := env.ledger.Supply(ctx, "alice", number.Decimal("100"))
	require.Nil(t, err)

	snapshot, err := env.ledger.Snapshot(ctx, "alice")
	require.Nil(t, err)

	_, err = env.ledger.Withdraw(ctx, "alice", number.Decimal("60"))
	require.Nil(t, err)

	require.Nil(t, env.ledger.Restore(ctx, snapshot))

	market, err := env.ledger.Market(ctx)
	require.Nil(t, err)
	require.True(t, market.TotalCash.Equal(number.Decimal("100")))
	require.True(t, market.TotalShares.Equal(number.Decimal("100")))

	balance, err := env.ledger.BalanceOfUnderlying(ctx, "alice")
	require.Nil(t, err)
	require.True(t, balance.Equal(number.Decimal("100")))
}
