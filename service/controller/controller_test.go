package controller_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"lending/core"
	"lending/pkg/number"
	"lending/service/controller"
	"lending/service/ledger"
	"lending/service/oracle"
	"lending/service/venue"
	"lending/service/wallet"
	marketstore "lending/store/market"
	positionstore "lending/store/position"
	registrystore "lending/store/registry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type ctrlEnv struct {
	now time.Time

	controller core.Controller
	markets    core.MarketStore
	positions  core.PositionStore
	registry   core.BorrowerRegistry
	prices     core.PriceService

	feeds   map[string]*oracle.StaticFeed
	tokens  map[string]*wallet.TokenBook
	ledgers map[string]core.Ledger
}

func (e *ctrlEnv) clock() time.Time {
	return e.now
}

func newCtrlEnv(t *testing.T) *ctrlEnv {
	env := &ctrlEnv{
		now:     time.Unix(1700000000, 0),
		feeds:   make(map[string]*oracle.StaticFeed),
		tokens:  make(map[string]*wallet.TokenBook),
		ledgers: make(map[string]core.Ledger),
	}

	env.markets = marketstore.New()
	env.positions = positionstore.New()
	env.registry = registrystore.New()
	env.prices = oracle.New(oracle.Config{})

	swap := venue.NewSwap(env.prices, decimal.Zero, env.clock)
	env.controller = controller.New(env.markets, env.positions, env.registry, env.prices, swap, controller.Config{
		MaxPositionsPerScan: 10,
		LiquidationCooldown: time.Minute,
		MaxSlippage:         number.Decimal("0.01"),
		SwapDeadline:        time.Minute,
		AccrualCapacity:     2,
	}, env.clock)

	env.list(t, "btc", "BTC", "10000", "75")
	env.list(t, "usdc", "USDC", "1", "90")
	return env
}

func (e *ctrlEnv) list(t *testing.T, assetID, symbol, price, ltv string) {
	feed := oracle.NewStaticFeed(number.Decimal(price), 8)
	token := wallet.New(assetID, 8)
	yield := venue.NewYield(decimal.Zero, e.clock)

	market := &core.Market{
		AssetID:         assetID,
		Symbol:          symbol,
		ExchangeRate:    decimal.New(1, 0),
		BorrowIndex:     decimal.New(1, 0),
		LoanToValue:     number.Decimal(ltv),
		ReserveFactor:   number.Decimal("0.1"),
		BaseRate:        decimal.Zero,
		Multiplier:      decimal.Zero,
		StakeRatio:      decimal.Zero,
		LastAccrualTime: e.now.Unix(),
	}

	l := ledger.New(assetID, e.markets, e.positions, yield, e.clock)
	require.Nil(t, e.controller.ListMarket(context.Background(), market, l, token, feed))

	e.feeds[assetID] = feed
	e.tokens[assetID] = token
	e.ledgers[assetID] = l
}

func (e *ctrlEnv) balance(t *testing.T, assetID, holder string) decimal.Decimal {
	b, err := e.tokens[assetID].BalanceOf(context.Background(), holder)
	require.Nil(t, err)
	return b
}

// alice supplies one btc, bob funds the usdc pool
func (e *ctrlEnv) seed(t *testing.T) {
	ctx := context.Background()
	e.tokens["btc"].Mint("alice", number.Decimal("1"))
	e.tokens["usdc"].Mint("bob", number.Decimal("50000"))

	_, err := e.controller.Supply(ctx, "alice", "btc", number.Decimal("1"))
	require.Nil(t, err)

	_, err = e.controller.Supply(ctx, "bob", "usdc", number.Decimal("50000"))
	require.Nil(t, err)
}

func TestListMarketWriteOnce(t *testing.T) {
	env := newCtrlEnv(t)

	market := &core.Market{AssetID: "btc", Symbol: "BTC", ExchangeRate: decimal.New(1, 0), BorrowIndex: decimal.New(1, 0)}
	err := env.controller.ListMarket(context.Background(), market, env.ledgers["btc"], env.tokens["btc"], env.feeds["btc"])
	require.Equal(t, core.ErrMarketExists, err)
}

func TestSupplyPullsFunds(t *testing.T) {
	ctx := context.Background()
	env := newCtrlEnv(t)
	env.tokens["btc"].Mint("alice", number.Decimal("1"))

	_, err := env.controller.Supply(ctx, "alice", "btc", number.Decimal("2"))
	require.Equal(t, core.ErrInsufficientFunds, err)

	shares, err := env.controller.Supply(ctx, "alice", "btc", number.Decimal("1"))
	require.Nil(t, err)
	require.True(t, shares.Equal(number.Decimal("1")))
	require.True(t, env.balance(t, "btc", "alice").IsZero())
	require.True(t, env.balance(t, "btc", core.ProtocolAccount).Equal(number.Decimal("1")))
}

func TestBorrowAgainstCollateral(t *testing.T) {
	ctx := context.Background()
	env := newCtrlEnv(t)
	env.seed(t)

	// 1 btc at 10000 with 75% LTV backs 7500 of borrowing
	require.Nil(t, env.controller.Borrow(ctx, "alice", "usdc", number.Decimal("5000")))
	require.True(t, env.balance(t, "usdc", "alice").Equal(number.Decimal("5000")))

	registered, err := env.registry.Contains(ctx, "alice")
	require.Nil(t, err)
	require.True(t, registered)

	health, err := env.controller.HealthFactor(ctx, "alice")
	require.Nil(t, err)
	require.True(t, health.Equal(number.Decimal("1.5")))

	// pushing past the limit rolls everything back
	err = env.controller.Borrow(ctx, "alice", "usdc", number.Decimal("3000"))
	require.Equal(t, core.ErrInsufficientCollaterals, err)
	require.True(t, env.balance(t, "usdc", "alice").Equal(number.Decimal("5000")))

	borrowed, err := env.controller.AccountBorrowedValue(ctx, "alice")
	require.Nil(t, err)
	require.True(t, borrowed.Equal(number.Decimal("5000")))
}

func TestWithdrawHealthGate(t *testing.T) {
	ctx := context.Background()
	env := newCtrlEnv(t)
	env.seed(t)

	require.Nil(t, env.controller.Borrow(ctx, "alice", "usdc", number.Decimal("5000")))

	// dropping half the collateral would leave 3750 backing 5000
	_, err := env.controller.Withdraw(ctx, "alice", "btc", number.Decimal("0.5"))
	require.Equal(t, core.ErrInsufficientCollaterals, err)

	balance, err := env.ledgers["btc"].BalanceOfUnderlying(ctx, "alice")
	require.Nil(t, err)
	require.True(t, balance.Equal(number.Decimal("1")), "rollback keeps the position intact")

	amount, err := env.controller.Withdraw(ctx, "alice", "btc", number.Decimal("0.1"))
	require.Nil(t, err)
	require.True(t, amount.Equal(number.Decimal("0.1")))
	require.True(t, env.balance(t, "btc", "alice").Equal(number.Decimal("0.1")))
}

func TestHealthFactorSentinel(t *testing.T) {
	ctx := context.Background()
	env := newCtrlEnv(t)
	env.seed(t)

	health, err := env.controller.HealthFactor(ctx, "alice")
	require.Nil(t, err)
	require.True(t, health.Equal(core.MaxHealthFactor), "debt-free accounts report the sentinel")
}

func TestRepayRefundAndDeregister(t *testing.T) {
	ctx := context.Background()
	env := newCtrlEnv(t)
	env.seed(t)
	env.tokens["usdc"].Mint("alice", number.Decimal("2000"))

	require.Nil(t, env.controller.Borrow(ctx, "alice", "usdc", number.Decimal("5000")))

	refund, err := env.controller.Repay(ctx, "alice", "usdc", number.Decimal("6000"))
	require.Nil(t, err)
	require.True(t, refund.Equal(number.Decimal("1000")))
	require.True(t, env.balance(t, "usdc", "alice").Equal(number.Decimal("2000")))

	registered, err := env.registry.Contains(ctx, "alice")
	require.Nil(t, err)
	require.False(t, registered)
}

func TestLiquidate(t *testing.T) {
	ctx := context.Background()
	env := newCtrlEnv(t)
	env.seed(t)
	env.tokens["usdc"].Mint("carol", number.Decimal("10000"))

	require.Nil(t, env.controller.Borrow(ctx, "alice", "usdc", number.Decimal("6000")))

	// healthy accounts cannot be liquidated
	err := env.controller.Liquidate(ctx, "carol", "alice", "usdc", "btc")
	require.Equal(t, core.ErrLiquidationNotAllowed, err)

	// btc falls to 6000: collateral 4500 against 6000 borrowed
	env.feeds["btc"].SetPrice(number.Decimal("6000"))

	health, err := env.controller.HealthFactor(ctx, "alice")
	require.Nil(t, err)
	require.True(t, health.Equal(number.Decimal("0.75")))

	require.Nil(t, env.controller.Liquidate(ctx, "carol", "alice", "usdc", "btc"))

	// carol paid 6000 usdc and received the re-priced reward of 1 btc
	require.True(t, env.balance(t, "usdc", "carol").Equal(number.Decimal("4000")))
	require.True(t, env.balance(t, "btc", "carol").Equal(number.Decimal("1")))

	debt, err := env.ledgers["usdc"].BorrowBalanceCurrent(ctx, "alice")
	require.Nil(t, err)
	require.True(t, debt.IsZero())

	shares, err := env.ledgers["btc"].BalanceOfUnderlying(ctx, "alice")
	require.Nil(t, err)
	require.True(t, shares.IsZero(), "the whole position is seized")

	registered, err := env.registry.Contains(ctx, "alice")
	require.Nil(t, err)
	require.False(t, registered)
}

func TestAccountView(t *testing.T) {
	ctx := context.Background()
	env := newCtrlEnv(t)
	env.seed(t)

	require.Nil(t, env.controller.Borrow(ctx, "alice", "usdc", number.Decimal("5000")))

	account, err := env.controller.Account(ctx, "alice")
	require.Nil(t, err)
	require.Equal(t, "alice", account.Account)
	require.True(t, account.CollateralValue.Equal(number.Decimal("7500")))
	require.True(t, account.BorrowedValue.Equal(number.Decimal("5000")))
	require.True(t, account.HealthFactor.Equal(number.Decimal("1.5")))
	require.Len(t, account.Positions, 2)
}

// the accrual sweep and user calls share the controller lock, so totalBorrows
// stays equal to the sum of position debts no matter how the two interleave
func TestConcurrentAccrualKeepsBorrowsConsistent(t *testing.T) {
	ctx := context.Background()
	env := newCtrlEnv(t)
	env.seed(t)

	const rounds = 200
	errs := make(chan error, 2*rounds)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			errs <- env.controller.Borrow(ctx, "alice", "usdc", number.Decimal("1"))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			errs <- env.controller.AccrueMarkets(ctx)
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		require.Nil(t, err)
	}

	market, err := env.markets.Find(ctx, "usdc")
	require.Nil(t, err)
	require.True(t, market.TotalBorrows.Equal(number.Decimal("200")), "no borrow increment may be lost")

	debt, err := env.ledgers["usdc"].BorrowBalanceCurrent(ctx, "alice")
	require.Nil(t, err)
	require.True(t, debt.Equal(market.TotalBorrows))
}

func TestScannerLiquidatesUnhealthyPositions(t *testing.T) {
	ctx := context.Background()
	env := newCtrlEnv(t)
	env.seed(t)

	require.Nil(t, env.controller.Borrow(ctx, "alice", "usdc", number.Decimal("6000")))

	// a healthy sweep marks the attempt and leaves the position alone
	require.Nil(t, env.controller.CheckAndLiquidatePositions(ctx))

	last, err := env.registry.LastAttempt(ctx, "alice")
	require.Nil(t, err)
	require.True(t, last.Equal(env.now))

	debt, err := env.ledgers["usdc"].BorrowBalanceCurrent(ctx, "alice")
	require.Nil(t, err)
	require.True(t, debt.Equal(number.Decimal("6000")))

	env.feeds["btc"].SetPrice(number.Decimal("6000"))

	// inside the cooldown window the account is skipped
	env.now = env.now.Add(30 * time.Second)
	require.Nil(t, env.controller.CheckAndLiquidatePositions(ctx))

	debt, err = env.ledgers["usdc"].BorrowBalanceCurrent(ctx, "alice")
	require.Nil(t, err)
	require.True(t, debt.Equal(number.Decimal("6000")))

	// past the cooldown the collateral is seized, swapped and repaid
	env.now = env.now.Add(time.Minute)
	require.Nil(t, env.controller.CheckAndLiquidatePositions(ctx))

	debt, err = env.ledgers["usdc"].BorrowBalanceCurrent(ctx, "alice")
	require.Nil(t, err)
	require.True(t, debt.IsZero())

	balance, err := env.ledgers["btc"].BalanceOfUnderlying(ctx, "alice")
	require.Nil(t, err)
	require.True(t, balance.IsZero())

	registered, err := env.registry.Contains(ctx, "alice")
	require.Nil(t, err)
	require.False(t, registered)
}
