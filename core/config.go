package core

import (
	"github.com/shopspring/decimal"
)

// Config lending engine config
type Config struct {
	App     App            `json:"app"`
	Markets []MarketConfig `json:"markets" valid:"required"`
	Scanner ScannerConfig  `json:"scanner"`
}

// App app config
type App struct {
	Location string `json:"location"`
}

// MarketConfig one listed asset
type MarketConfig struct {
	AssetID       string          `json:"asset_id" valid:"required"`
	Symbol        string          `json:"symbol" valid:"required"`
	Decimals      int32           `json:"decimals"`
	Price         decimal.Decimal `json:"price"`
	PriceDecimals int32           `json:"price_decimals"`
	LoanToValue   decimal.Decimal `json:"loan_to_value"`
	ReserveFactor decimal.Decimal `json:"reserve_factor"`
	// annual rates, converted to per-second at wiring time
	BaseRate   decimal.Decimal `json:"base_rate"`
	Multiplier decimal.Decimal `json:"multiplier"`
	StakeRatio decimal.Decimal `json:"stake_ratio"`
	YieldRate  decimal.Decimal `json:"yield_rate"`
}

// ScannerConfig liquidation scanner limits
type ScannerConfig struct {
	MaxPositions    int             `json:"max_positions"`
	CooldownSeconds int64           `json:"cooldown_seconds"`
	MaxSlippage     decimal.Decimal `json:"max_slippage"`
	IntervalSeconds int64           `json:"interval_seconds"`
	Capacity        int64           `json:"capacity"`
}
