package cmd

import (
	"context"
	"time"

	"lending/core"
	"lending/internal/lending"
	"lending/pkg/number"
	"lending/service/controller"
	"lending/service/ledger"
	"lending/service/oracle"
	"lending/service/venue"
	"lending/service/wallet"
	"lending/store/market"
	"lending/store/position"
	"lending/store/registry"
)

// engine everything the subcommands run against, wired from config
type engine struct {
	controller  core.Controller
	marketStore core.MarketStore
}

func provideConfig() *core.Config {
	return &cfg
}

// ---------------store-----------------------------------------

func provideMarketStore() core.MarketStore {
	return market.New()
}

func providePositionStore() core.PositionStore {
	return position.New()
}

func provideBorrowerRegistry() core.BorrowerRegistry {
	return registry.New()
}

// ------------------service------------------------------------

func providePriceService() core.PriceService {
	return oracle.New(oracle.Config{
		CacheSize: 128,
		Expiry:    time.Second,
	})
}

func provideSwapVenue(prices core.PriceService) core.SwapVenue {
	return venue.NewSwap(prices, number.Decimal("0.003"), nil)
}

func provideControllerConfig() controller.Config {
	scanner := cfg.Scanner
	return controller.Config{
		MaxPositionsPerScan: scanner.MaxPositions,
		LiquidationCooldown: time.Duration(scanner.CooldownSeconds) * time.Second,
		MaxSlippage:         scanner.MaxSlippage,
		SwapDeadline:        time.Minute,
		AccrualCapacity:     scanner.Capacity,
	}
}

// provideEngine lists every configured market on a fresh controller. Rates in
// the config are annual and converted to per-period here.
func provideEngine(ctx context.Context) *engine {
	marketStore := provideMarketStore()
	positionStore := providePositionStore()
	prices := providePriceService()

	ctrl := controller.New(
		marketStore,
		positionStore,
		provideBorrowerRegistry(),
		prices,
		provideSwapVenue(prices),
		provideControllerConfig(),
		nil,
	)

	e := &engine{controller: ctrl, marketStore: marketStore}
	for _, mc := range cfg.Markets {
		feed := oracle.NewStaticFeed(mc.Price, mc.PriceDecimals)
		token := wallet.New(mc.AssetID, mc.Decimals)
		yield := venue.NewYield(mc.YieldRate, nil)
		l := ledger.New(mc.AssetID, marketStore, positionStore, yield, nil)

		record := &core.Market{
			AssetID:         mc.AssetID,
			Symbol:          mc.Symbol,
			ExchangeRate:    number.Decimal("1"),
			BorrowIndex:     number.Decimal("1"),
			LoanToValue:     mc.LoanToValue,
			ReserveFactor:   mc.ReserveFactor,
			BaseRate:        lending.RatePerSecond(mc.BaseRate),
			Multiplier:      lending.RatePerSecond(mc.Multiplier),
			StakeRatio:      mc.StakeRatio,
			LastAccrualTime: time.Now().Unix(),
		}

		if err := ctrl.ListMarket(ctx, record, l, token, feed); err != nil {
			panic(err)
		}
	}

	return e
}
