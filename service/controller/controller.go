package controller

import (
	"context"
	"sort"
	"sync"
	"time"

	"lending/core"
	"lending/internal/lending"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var hundred = decimal.New(1, 2)

// Config scanner tuning for CheckAndLiquidatePositions
type Config struct {
	// MaxPositionsPerScan positions examined per sweep
	MaxPositionsPerScan int
	// LiquidationCooldown min gap between attempts against one account
	LiquidationCooldown time.Duration
	// MaxSlippage fraction in [0, 1) bounding collateral conversion
	MaxSlippage decimal.Decimal
	// SwapDeadline how long a submitted conversion stays valid
	SwapDeadline time.Duration
	// AccrualCapacity bounds how many markets accrue at once
	AccrualCapacity int64
}

type controller struct {
	mu sync.Mutex

	marketStore   core.MarketStore
	positionStore core.PositionStore
	registry      core.BorrowerRegistry
	prices        core.PriceService
	swap          core.SwapVenue
	clock         func() time.Time
	cfg           Config

	ledgers map[string]core.Ledger
	tokens  map[string]core.TokenPort
	order   []string
}

// New new controller. Every public call takes the call-scoped exclusive lock,
// so one call is one serializable unit over all markets.
func New(
	marketStore core.MarketStore,
	positionStore core.PositionStore,
	registry core.BorrowerRegistry,
	prices core.PriceService,
	swap core.SwapVenue,
	cfg Config,
	clock func() time.Time,
) core.Controller {
	if clock == nil {
		clock = time.Now
	}

	return &controller{
		marketStore:   marketStore,
		positionStore: positionStore,
		registry:      registry,
		prices:        prices,
		swap:          swap,
		clock:         clock,
		cfg:           cfg,
		ledgers:       make(map[string]core.Ledger),
		tokens:        make(map[string]core.TokenPort),
	}
}

func (c *controller) ListMarket(ctx context.Context, market *core.Market, ledger core.Ledger, token core.TokenPort, feed core.PriceFeed) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.marketStore.Create(ctx, market); err != nil {
		return err
	}

	c.ledgers[market.AssetID] = ledger
	c.tokens[market.AssetID] = token
	c.order = append(c.order, market.AssetID)
	c.prices.AddFeed(market.AssetID, feed)
	return nil
}

func (c *controller) ledger(assetID string) (core.Ledger, core.TokenPort, error) {
	ledger, ok := c.ledgers[assetID]
	if !ok {
		return nil, nil, core.ErrMarketNotFound
	}

	return ledger, c.tokens[assetID], nil
}

// commit executes a pending transfer through the asset's token port. Payments
// to the protocol account never leave it, so there is nothing to move.
func (c *controller) commit(ctx context.Context, transfer *core.Transfer) error {
	if transfer == nil || transfer.OpponentID == core.ProtocolAccount {
		return nil
	}

	return c.tokens[transfer.AssetID].Transfer(ctx, transfer.OpponentID, transfer.Amount)
}

func (c *controller) Supply(ctx context.Context, account, assetID string, amount decimal.Decimal) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ledger, token, err := c.ledger(assetID)
	if err != nil {
		return decimal.Zero, err
	}

	if !amount.IsPositive() {
		return decimal.Zero, core.ErrInvalidAmount
	}

	// funds in first; a failed ledger write hands them straight back
	if err := token.TransferFrom(ctx, account, core.ProtocolAccount, amount); err != nil {
		return decimal.Zero, err
	}

	shares, err := ledger.Supply(ctx, account, amount)
	if err != nil {
		if e := token.Transfer(ctx, account, amount); e != nil {
			logger.FromContext(ctx).WithError(e).Errorln("supply refund failed")
		}
		return decimal.Zero, err
	}

	return shares, nil
}

func (c *controller) Withdraw(ctx context.Context, account, assetID string, shares decimal.Decimal) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ledger, _, err := c.ledger(assetID)
	if err != nil {
		return decimal.Zero, err
	}

	if !shares.IsPositive() {
		return decimal.Zero, core.ErrInvalidAmount
	}

	// venue movements (reward claim, liquidity recall) commit before the
	// snapshot so a rollback never has to unwind them
	if err := ledger.AccrueInterest(ctx); err != nil {
		return decimal.Zero, err
	}

	if err := ledger.ClaimAndUpdateRewards(ctx); err != nil {
		return decimal.Zero, err
	}

	amount, err := ledger.RedeemValue(ctx, shares)
	if err != nil {
		return decimal.Zero, err
	}

	if err := ledger.EnsureLiquidity(ctx, amount); err != nil {
		return decimal.Zero, err
	}

	snapshot, err := ledger.Snapshot(ctx, account)
	if err != nil {
		return decimal.Zero, err
	}

	transfer, err := ledger.Withdraw(ctx, account, shares)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.checkHealth(ctx, account); err != nil {
		if e := ledger.Restore(ctx, snapshot); e != nil {
			return decimal.Zero, e
		}
		return decimal.Zero, err
	}

	if err := c.commit(ctx, transfer); err != nil {
		if e := ledger.Restore(ctx, snapshot); e != nil {
			return decimal.Zero, e
		}
		return decimal.Zero, err
	}

	return transfer.Amount, nil
}

func (c *controller) Borrow(ctx context.Context, account, assetID string, amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ledger, _, err := c.ledger(assetID)
	if err != nil {
		return err
	}

	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	if err := ledger.AccrueInterest(ctx); err != nil {
		return err
	}

	if err := ledger.EnsureLiquidity(ctx, amount); err != nil {
		return err
	}

	snapshot, err := ledger.Snapshot(ctx, account)
	if err != nil {
		return err
	}

	transfer, err := ledger.Borrow(ctx, account, amount)
	if err != nil {
		return err
	}

	if err := c.checkHealth(ctx, account); err != nil {
		if e := ledger.Restore(ctx, snapshot); e != nil {
			return e
		}
		return err
	}

	if err := c.commit(ctx, transfer); err != nil {
		if e := ledger.Restore(ctx, snapshot); e != nil {
			return e
		}
		return err
	}

	return c.registry.Add(ctx, account)
}

func (c *controller) Repay(ctx context.Context, account, assetID string, amount decimal.Decimal) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ledger, token, err := c.ledger(assetID)
	if err != nil {
		return decimal.Zero, err
	}

	if !amount.IsPositive() {
		return decimal.Zero, core.ErrInvalidAmount
	}

	if err := token.TransferFrom(ctx, account, core.ProtocolAccount, amount); err != nil {
		return decimal.Zero, err
	}

	refund, err := ledger.Repay(ctx, account, amount)
	if err != nil {
		if e := token.Transfer(ctx, account, amount); e != nil {
			logger.FromContext(ctx).WithError(e).Errorln("repay refund failed")
		}
		return decimal.Zero, err
	}

	if err := c.commit(ctx, refund); err != nil {
		return decimal.Zero, err
	}

	if err := c.deregisterIfClear(ctx, account); err != nil {
		return decimal.Zero, err
	}

	if refund != nil {
		return refund.Amount, nil
	}

	return decimal.Zero, nil
}

// Liquidate repays the account's debt in repayAssetID out of the liquidator's
// balance and seizes the account's rewardAssetID collateral. The reward is the
// repaid value re-priced into the reward asset, no bonus on top.
func (c *controller) Liquidate(ctx context.Context, liquidator, account, repayAssetID, rewardAssetID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	repayLedger, repayToken, err := c.ledger(repayAssetID)
	if err != nil {
		return err
	}

	rewardLedger, _, err := c.ledger(rewardAssetID)
	if err != nil {
		return err
	}

	c.accrueAll(ctx)

	health, err := c.healthFactor(ctx, account)
	if err != nil {
		return err
	}

	if health.GreaterThanOrEqual(core.MinHealthFactor) {
		return core.ErrLiquidationNotAllowed
	}

	debt, err := repayLedger.BorrowBalanceCurrent(ctx, account)
	if err != nil {
		return err
	}

	if !debt.IsPositive() {
		return core.ErrBorrowNotFound
	}

	debtValue, err := c.valuation(ctx, repayAssetID, debt)
	if err != nil {
		return err
	}

	rewardPrice, err := c.prices.Price(ctx, rewardAssetID)
	if err != nil {
		return err
	}

	reward := debtValue.Div(rewardPrice).Truncate(8)

	collateral, err := rewardLedger.BalanceOfUnderlying(ctx, account)
	if err != nil {
		return err
	}

	if collateral.LessThan(reward) {
		return core.ErrSeizeNotAllowed
	}

	balance, err := repayToken.BalanceOf(ctx, liquidator)
	if err != nil {
		return err
	}

	if balance.LessThan(debt) {
		return core.ErrInsufficientFunds
	}

	if err := repayToken.TransferFrom(ctx, liquidator, core.ProtocolAccount, debt); err != nil {
		return err
	}

	refund, err := repayLedger.Repay(ctx, account, debt)
	if err != nil {
		return err
	}

	if err := c.commit(ctx, refund); err != nil {
		return err
	}

	seize, err := rewardLedger.LiquidateCollateral(ctx, account, liquidator, reward)
	if err != nil {
		return err
	}

	if err := c.commit(ctx, seize); err != nil {
		return err
	}

	return c.deregisterIfClear(ctx, account)
}

// CheckAndLiquidatePositions sweeps the borrower registry, bounded by
// MaxPositionsPerScan, skipping accounts still inside the cooldown window.
// Seized collateral is converted into the repay asset through the swap venue
// and fed back into the account's largest debt.
func (c *controller) CheckAndLiquidatePositions(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	accounts, err := c.registry.List(ctx)
	if err != nil {
		return err
	}
	sort.Strings(accounts)

	c.accrueAll(ctx)

	now := c.clock()
	examined := 0
	for _, account := range accounts {
		if examined >= c.cfg.MaxPositionsPerScan {
			break
		}

		last, err := c.registry.LastAttempt(ctx, account)
		if err != nil {
			return err
		}

		if !last.IsZero() && now.Sub(last) < c.cfg.LiquidationCooldown {
			continue
		}

		if err := c.registry.MarkAttempt(ctx, account, now); err != nil {
			return err
		}
		examined++

		health, err := c.healthFactor(ctx, account)
		if err != nil {
			return err
		}

		if health.GreaterThanOrEqual(core.MinHealthFactor) {
			continue
		}

		if err := c.liquidatePosition(ctx, account, now); err != nil {
			return err
		}
	}

	return nil
}

// liquidatePosition seizes everything the account supplied, converts it into
// the account's largest debt asset and repays with the proceeds
func (c *controller) liquidatePosition(ctx context.Context, account string, now time.Time) error {
	log := logger.FromContext(ctx).WithField("account", account)

	repayAssetID, debt, err := c.largestBorrow(ctx, account)
	if err != nil {
		return err
	}

	if !debt.IsPositive() {
		return c.registry.Remove(ctx, account)
	}

	proceeds := decimal.Zero
	for _, assetID := range c.order {
		balance, err := c.ledgers[assetID].BalanceOfUnderlying(ctx, account)
		if err != nil {
			return err
		}

		if !balance.IsPositive() {
			continue
		}

		seize, err := c.ledgers[assetID].LiquidateCollateral(ctx, account, core.ProtocolAccount, balance)
		if err != nil {
			return err
		}

		if err := c.commit(ctx, seize); err != nil {
			return err
		}

		if assetID == repayAssetID {
			proceeds = proceeds.Add(balance)
			continue
		}

		out, err := c.convert(ctx, assetID, repayAssetID, balance, now)
		if err != nil {
			return err
		}
		proceeds = proceeds.Add(out)
	}

	if proceeds.IsPositive() {
		refund, err := c.ledgers[repayAssetID].Repay(ctx, account, proceeds)
		if err != nil {
			return err
		}

		if err := c.commit(ctx, refund); err != nil {
			return err
		}

		log.WithField("asset", repayAssetID).Infof("repaid %s from seized collateral", proceeds)
	}

	return c.deregisterIfClear(ctx, account)
}

// convert swaps seized collateral into the repay asset with a slippage-bounded
// minimum out derived from oracle prices
func (c *controller) convert(ctx context.Context, assetIn, assetOut string, amountIn decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	priceIn, err := c.prices.Price(ctx, assetIn)
	if err != nil {
		return decimal.Zero, err
	}

	priceOut, err := c.prices.Price(ctx, assetOut)
	if err != nil {
		return decimal.Zero, err
	}

	expected := amountIn.Mul(priceIn).Div(priceOut)
	minOut := expected.Mul(decimal.New(1, 0).Sub(c.cfg.MaxSlippage)).Truncate(8)
	return c.swap.Convert(ctx, assetIn, assetOut, amountIn, minOut, now.Add(c.cfg.SwapDeadline))
}

// largestBorrow picks the account's biggest debt by USD value
func (c *controller) largestBorrow(ctx context.Context, account string) (string, decimal.Decimal, error) {
	var (
		bestAsset  string
		bestAmount decimal.Decimal
		bestValue  decimal.Decimal
	)

	for _, assetID := range c.order {
		debt, err := c.ledgers[assetID].BorrowBalanceCurrent(ctx, account)
		if err != nil {
			return "", decimal.Zero, err
		}

		if !debt.IsPositive() {
			continue
		}

		value, err := c.valuation(ctx, assetID, debt)
		if err != nil {
			return "", decimal.Zero, err
		}

		if value.GreaterThan(bestValue) {
			bestAsset, bestAmount, bestValue = assetID, debt, value
		}
	}

	return bestAsset, bestAmount, nil
}

func (c *controller) Valuation(ctx context.Context, assetID string, amount decimal.Decimal) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.valuation(ctx, assetID, amount)
}

func (c *controller) valuation(ctx context.Context, assetID string, amount decimal.Decimal) (decimal.Decimal, error) {
	price, err := c.prices.Price(ctx, assetID)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(price).Truncate(lending.MaxPrecision), nil
}

func (c *controller) AccountCollateralValue(ctx context.Context, account string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.collateralValue(ctx, account)
}

func (c *controller) collateralValue(ctx context.Context, account string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, assetID := range c.order {
		balance, err := c.ledgers[assetID].BalanceOfUnderlying(ctx, account)
		if err != nil {
			return decimal.Zero, err
		}

		if !balance.IsPositive() {
			continue
		}

		value, err := c.valuation(ctx, assetID, balance)
		if err != nil {
			return decimal.Zero, err
		}

		market, err := c.ledgers[assetID].Market(ctx)
		if err != nil {
			return decimal.Zero, err
		}

		total = total.Add(value.Mul(market.LoanToValue).Div(hundred))
	}

	return total.Truncate(lending.MaxPrecision), nil
}

func (c *controller) AccountBorrowedValue(ctx context.Context, account string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.borrowedValue(ctx, account)
}

func (c *controller) borrowedValue(ctx context.Context, account string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, assetID := range c.order {
		debt, err := c.ledgers[assetID].BorrowBalanceCurrent(ctx, account)
		if err != nil {
			return decimal.Zero, err
		}

		if !debt.IsPositive() {
			continue
		}

		value, err := c.valuation(ctx, assetID, debt)
		if err != nil {
			return decimal.Zero, err
		}

		total = total.Add(value)
	}

	return total.Truncate(lending.MaxPrecision), nil
}

func (c *controller) HealthFactor(ctx context.Context, account string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.healthFactor(ctx, account)
}

func (c *controller) healthFactor(ctx context.Context, account string) (decimal.Decimal, error) {
	borrowed, err := c.borrowedValue(ctx, account)
	if err != nil {
		return decimal.Zero, err
	}

	if !borrowed.IsPositive() {
		return core.MaxHealthFactor, nil
	}

	collateral, err := c.collateralValue(ctx, account)
	if err != nil {
		return decimal.Zero, err
	}

	return collateral.Div(borrowed).Truncate(lending.MaxPrecision), nil
}

// Account aggregate view over one account: positions plus derived values
func (c *controller) Account(ctx context.Context, account string) (*core.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	positions, err := c.positionStore.FindByAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	collateral, err := c.collateralValue(ctx, account)
	if err != nil {
		return nil, err
	}

	borrowed, err := c.borrowedValue(ctx, account)
	if err != nil {
		return nil, err
	}

	health := core.MaxHealthFactor
	if borrowed.IsPositive() {
		health = collateral.Div(borrowed).Truncate(lending.MaxPrecision)
	}

	return &core.Account{
		Account:         account,
		CollateralValue: collateral,
		BorrowedValue:   borrowed,
		HealthFactor:    health,
		Positions:       positions,
	}, nil
}

func (c *controller) checkHealth(ctx context.Context, account string) error {
	health, err := c.healthFactor(ctx, account)
	if err != nil {
		return err
	}

	if health.LessThan(core.MinHealthFactor) {
		return core.ErrInsufficientCollaterals
	}

	return nil
}

// deregisterIfClear drops the account from the borrower registry once its
// aggregate debt across every market is zero
func (c *controller) deregisterIfClear(ctx context.Context, account string) error {
	for _, assetID := range c.order {
		debt, err := c.ledgers[assetID].BorrowBalanceCurrent(ctx, account)
		if err != nil {
			return err
		}

		if debt.IsPositive() {
			return nil
		}
	}

	return c.registry.Remove(ctx, account)
}

// AccrueMarkets advances interest and folds pending yield rewards across
// every market. It holds the call lock, so the periodic sweep serializes with
// user calls; ledger mutations never run outside the lock.
func (c *controller) AccrueMarkets(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accrueAll(ctx)
	return nil
}

// accrueAll advances every market, fanning out with bounded parallelism.
// Markets are independent records, so distinct assets can accrue at once
// while the call lock keeps the sweep exclusive against everything else.
// A failing market is logged and skipped so one bad listing cannot stall
// the rest.
func (c *controller) accrueAll(ctx context.Context) {
	capacity := c.cfg.AccrualCapacity
	if capacity <= 0 {
		capacity = 1
	}

	sem := semaphore.NewWeighted(capacity)
	var g errgroup.Group

	for _, assetID := range c.order {
		l := c.ledgers[assetID]
		log := logger.FromContext(ctx).WithField("asset", assetID)

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		g.Go(func() error {
			defer sem.Release(1)

			if err := l.AccrueInterest(ctx); err != nil {
				log.WithError(err).Errorln("accrue failed")
				return nil
			}

			if err := l.ClaimAndUpdateRewards(ctx); err != nil {
				log.WithError(err).Errorln("claim rewards failed")
			}

			return nil
		})
	}

	_ = g.Wait()
}
