package ledger

import (
	"context"
	"fmt"
	"time"

	"lending/core"
	"lending/internal/lending"
	"lending/pkg/id"
	"lending/pkg/number"

	"github.com/fox-one/pkg/logger"
	uuidutil "github.com/fox-one/pkg/uuid"
	"github.com/shopspring/decimal"
)

var one = decimal.New(1, 0)

type ledgerService struct {
	assetID       string
	marketStore   core.MarketStore
	positionStore core.PositionStore
	yield         core.YieldVenue
	clock         func() time.Time
}

// New new money market ledger for one asset. The clock is injectable so
// accrual can be driven deterministically in tests; nil means time.Now.
func New(
	assetID string,
	marketStore core.MarketStore,
	positionStore core.PositionStore,
	yield core.YieldVenue,
	clock func() time.Time,
) core.Ledger {
	if clock == nil {
		clock = time.Now
	}

	return &ledgerService{
		assetID:       assetID,
		marketStore:   marketStore,
		positionStore: positionStore,
		yield:         yield,
		clock:         clock,
	}
}

func (s *ledgerService) AssetID() string {
	return s.assetID
}

func (s *ledgerService) Market(ctx context.Context) (*core.Market, error) {
	return s.marketStore.Find(ctx, s.assetID)
}

// accrue advances the market to the current period. Idempotent within a
// period: a second call with zero elapsed time changes nothing.
func (s *ledgerService) accrue(ctx context.Context, market *core.Market) error {
	now := s.clock().Unix()
	elapsed := now - market.LastAccrualTime
	if elapsed <= 0 {
		return nil
	}

	rate := lending.BorrowRatePerPeriod(market.TotalCash, market.TotalBorrows, market.Reserves, market.BaseRate, market.Multiplier)
	timesRate := rate.Mul(decimal.NewFromInt(elapsed))
	interest := market.TotalBorrows.Mul(timesRate).Truncate(lending.MaxPrecision)

	newBorrows := market.TotalBorrows.Add(interest)
	if newBorrows.GreaterThan(lending.MaxTotalValue) {
		return core.ErrInterestOverflow
	}

	reserveDelta := interest.Mul(market.ReserveFactor).Truncate(lending.MaxPrecision)
	supplierShare := interest.Sub(reserveDelta)
	if market.TotalShares.IsPositive() && supplierShare.IsPositive() {
		market.ExchangeRate = market.ExchangeRate.Add(supplierShare.Div(market.TotalShares).Truncate(lending.MaxPrecision))
	}

	if timesRate.IsPositive() {
		newIndex := market.BorrowIndex.Mul(one.Add(timesRate)).Truncate(lending.MaxPrecision)
		if newIndex.LessThanOrEqual(market.BorrowIndex) {
			// the index must strictly increase while debt accrues
			return core.ErrInterestOverflow
		}
		market.BorrowIndex = newIndex
	}

	market.TotalBorrows = newBorrows
	market.Reserves = market.Reserves.Add(reserveDelta)
	market.LastAccrualTime = now
	return nil
}

// claim pulls pending yield rewards and folds them into the exchange rate
// proportionally to total shares, the same fold supplier interest uses
func (s *ledgerService) claim(ctx context.Context, market *core.Market) error {
	pending, err := s.yield.PendingRewards(ctx)
	if err != nil {
		return err
	}

	if !pending.IsPositive() {
		return nil
	}

	if err := s.yield.Withdraw(ctx, decimal.Zero); err != nil {
		return err
	}

	market.TotalCash = market.TotalCash.Add(pending)
	if market.TotalShares.IsPositive() {
		market.ExchangeRate = market.ExchangeRate.Add(pending.Div(market.TotalShares).Truncate(lending.MaxPrecision))
	}

	return nil
}

// ensureLiquidity recalls the shortfall (or everything staked, whichever is
// smaller) from the yield venue; failing that the whole call aborts
func (s *ledgerService) ensureLiquidity(ctx context.Context, market *core.Market, required decimal.Decimal) error {
	if market.TotalCash.GreaterThanOrEqual(required) {
		return nil
	}

	info, err := s.yield.StakeInfo(ctx)
	if err != nil {
		return err
	}

	recall := decimal.Min(required.Sub(market.TotalCash), info.StakedAmount)
	if recall.IsPositive() {
		if err := s.yield.Withdraw(ctx, recall); err != nil {
			return err
		}
		market.TotalCash = market.TotalCash.Add(recall)
	}

	if market.TotalCash.LessThan(required) {
		return core.ErrInsufficientLiquidity
	}

	return nil
}

func (s *ledgerService) AccrueInterest(ctx context.Context) error {
	market, err := s.Market(ctx)
	if err != nil {
		return err
	}

	if err := s.accrue(ctx, market); err != nil {
		return err
	}

	return s.marketStore.Update(ctx, market)
}

func (s *ledgerService) ClaimAndUpdateRewards(ctx context.Context) error {
	market, err := s.Market(ctx)
	if err != nil {
		return err
	}

	if err := s.claim(ctx, market); err != nil {
		return err
	}

	return s.marketStore.Update(ctx, market)
}

func (s *ledgerService) EnsureLiquidity(ctx context.Context, required decimal.Decimal) error {
	market, err := s.Market(ctx)
	if err != nil {
		return err
	}

	if err := s.ensureLiquidity(ctx, market, required); err != nil {
		return err
	}

	return s.marketStore.Update(ctx, market)
}

func (s *ledgerService) Supply(ctx context.Context, account string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, core.ErrInvalidAmount
	}

	market, err := s.Market(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.accrue(ctx, market); err != nil {
		return decimal.Zero, err
	}

	position, err := s.positionStore.Find(ctx, account, s.assetID)
	if err != nil {
		return decimal.Zero, err
	}

	// bootstrap 1:1, then at the current exchange rate
	shares := amount
	if market.TotalShares.IsPositive() {
		shares = amount.Div(market.ExchangeRate).Truncate(lending.MaxPrecision)
	}

	position.SupplyShares = position.SupplyShares.Add(shares)
	market.TotalShares = market.TotalShares.Add(shares)
	market.TotalCash = market.TotalCash.Add(amount)

	if stakeAmount := amount.Mul(market.StakeRatio).Truncate(8); stakeAmount.IsPositive() {
		// fire and forget: a failed stake keeps the funds as cash
		if err := s.yield.Stake(ctx, stakeAmount); err != nil {
			logger.FromContext(ctx).WithField("ledger", s.assetID).WithError(err).Warnln("yield stake failed")
		} else {
			market.TotalCash = market.TotalCash.Sub(stakeAmount)
		}
	}

	if err := s.positionStore.Save(ctx, position); err != nil {
		return decimal.Zero, err
	}

	if err := s.marketStore.Update(ctx, market); err != nil {
		return decimal.Zero, err
	}

	return shares, nil
}

func (s *ledgerService) Withdraw(ctx context.Context, account string, shares decimal.Decimal) (*core.Transfer, error) {
	if !shares.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	market, err := s.Market(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.accrue(ctx, market); err != nil {
		return nil, err
	}

	// realize pending yield into the exchange rate before pricing the shares
	if err := s.claim(ctx, market); err != nil {
		return nil, err
	}

	position, err := s.positionStore.Find(ctx, account, s.assetID)
	if err != nil {
		return nil, err
	}

	if position.SupplyShares.LessThan(shares) {
		return nil, core.ErrInsufficientShares
	}

	amount := shares.Mul(market.ExchangeRate).Truncate(8)
	if err := s.ensureLiquidity(ctx, market, amount); err != nil {
		return nil, err
	}

	position.SupplyShares = position.SupplyShares.Sub(shares)
	market.TotalShares = number.ZeroFloor(market.TotalShares.Sub(shares))
	market.TotalCash = market.TotalCash.Sub(amount)

	if err := s.positionStore.Save(ctx, position); err != nil {
		return nil, err
	}

	if err := s.marketStore.Update(ctx, market); err != nil {
		return nil, err
	}

	return s.transfer(account, amount, "withdraw"), nil
}

func (s *ledgerService) Borrow(ctx context.Context, account string, amount decimal.Decimal) (*core.Transfer, error) {
	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	market, err := s.Market(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.accrue(ctx, market); err != nil {
		return nil, err
	}

	if err := s.ensureLiquidity(ctx, market, amount); err != nil {
		return nil, err
	}

	position, err := s.positionStore.Find(ctx, account, s.assetID)
	if err != nil {
		return nil, err
	}

	position.BorrowPrincipal = position.BorrowPrincipal.Add(number.RoundHalfUp(amount.Div(market.BorrowIndex), lending.MaxPrecision))
	market.TotalBorrows = market.TotalBorrows.Add(amount)
	market.TotalCash = market.TotalCash.Sub(amount)

	if err := s.positionStore.Save(ctx, position); err != nil {
		return nil, err
	}

	if err := s.marketStore.Update(ctx, market); err != nil {
		return nil, err
	}

	return s.transfer(account, amount, "borrow"), nil
}

func (s *ledgerService) Repay(ctx context.Context, account string, amount decimal.Decimal) (*core.Transfer, error) {
	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	market, err := s.Market(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.accrue(ctx, market); err != nil {
		return nil, err
	}

	position, err := s.positionStore.Find(ctx, account, s.assetID)
	if err != nil {
		return nil, err
	}

	debt := position.BorrowPrincipal.Mul(market.BorrowIndex).Truncate(lending.MaxPrecision)
	if !debt.IsPositive() {
		return nil, core.ErrBorrowNotFound
	}

	var refund *core.Transfer
	if amount.GreaterThanOrEqual(debt) {
		position.BorrowPrincipal = decimal.Zero
		market.TotalBorrows = number.ZeroFloor(market.TotalBorrows.Sub(debt))
		market.TotalCash = market.TotalCash.Add(debt)

		if overpaid := amount.Sub(debt).Truncate(8); overpaid.IsPositive() {
			refund = s.transfer(account, overpaid, "repay refund")
			refund.TraceID = uuidutil.Modify(refund.TraceID, "refund")
		}
	} else {
		position.BorrowPrincipal = number.ZeroFloor(position.BorrowPrincipal.Sub(number.RoundHalfUp(amount.Div(market.BorrowIndex), lending.MaxPrecision)))
		market.TotalBorrows = number.ZeroFloor(market.TotalBorrows.Sub(amount))
		market.TotalCash = market.TotalCash.Add(amount)
	}

	if err := s.positionStore.Save(ctx, position); err != nil {
		return nil, err
	}

	if err := s.marketStore.Update(ctx, market); err != nil {
		return nil, err
	}

	return refund, nil
}

// LiquidateCollateral burns the account's entire share balance in this
// market and pays out only the requested amount to the recipient
func (s *ledgerService) LiquidateCollateral(ctx context.Context, account, recipient string, amount decimal.Decimal) (*core.Transfer, error) {
	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	market, err := s.Market(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.accrue(ctx, market); err != nil {
		return nil, err
	}

	position, err := s.positionStore.Find(ctx, account, s.assetID)
	if err != nil {
		return nil, err
	}

	if !position.SupplyShares.IsPositive() {
		return nil, core.ErrSupplyNotFound
	}

	market.TotalShares = number.ZeroFloor(market.TotalShares.Sub(position.SupplyShares))
	position.SupplyShares = decimal.Zero

	if err := s.ensureLiquidity(ctx, market, amount); err != nil {
		return nil, err
	}
	market.TotalCash = market.TotalCash.Sub(amount)

	if err := s.positionStore.Save(ctx, position); err != nil {
		return nil, err
	}

	if err := s.marketStore.Update(ctx, market); err != nil {
		return nil, err
	}

	return s.transfer(recipient, amount, "seize"), nil
}

func (s *ledgerService) BalanceOfUnderlying(ctx context.Context, account string) (decimal.Decimal, error) {
	market, err := s.Market(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	position, err := s.positionStore.Find(ctx, account, s.assetID)
	if err != nil {
		return decimal.Zero, err
	}

	return position.SupplyShares.Mul(market.ExchangeRate).Truncate(8), nil
}

func (s *ledgerService) BorrowBalanceCurrent(ctx context.Context, account string) (decimal.Decimal, error) {
	market, err := s.Market(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	position, err := s.positionStore.Find(ctx, account, s.assetID)
	if err != nil {
		return decimal.Zero, err
	}

	return number.RoundHalfUp(position.BorrowPrincipal.Mul(market.BorrowIndex), 8), nil
}

func (s *ledgerService) RedeemValue(ctx context.Context, shares decimal.Decimal) (decimal.Decimal, error) {
	market, err := s.Market(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	return shares.Mul(market.ExchangeRate).Truncate(8), nil
}

func (s *ledgerService) Snapshot(ctx context.Context, account string) (*core.LedgerSnapshot, error) {
	market, err := s.Market(ctx)
	if err != nil {
		return nil, err
	}

	position, err := s.positionStore.Find(ctx, account, s.assetID)
	if err != nil {
		return nil, err
	}

	return &core.LedgerSnapshot{Market: market, Position: position}, nil
}

func (s *ledgerService) Restore(ctx context.Context, snapshot *core.LedgerSnapshot) error {
	if err := s.positionStore.Save(ctx, snapshot.Position.Copy()); err != nil {
		return err
	}

	return s.marketStore.Update(ctx, snapshot.Market.Copy())
}

func (s *ledgerService) transfer(opponent string, amount decimal.Decimal, memo string) *core.Transfer {
	now := s.clock()
	return &core.Transfer{
		CreatedAt:  now,
		TraceID:    id.TraceIDFrom(fmt.Sprintf("%s-%s-%s-%d", memo, s.assetID, opponent, now.UnixNano())),
		OpponentID: opponent,
		AssetID:    s.assetID,
		Amount:     amount,
		Memo:       memo,
	}
}
