package config

import (
	"lending/core"
	"lending/pkg/number"

	"github.com/asaskevich/govalidator"
	"github.com/fox-one/pkg/config"
)

// Load load config file
func Load(cfgFile string, cfg *core.Config) error {
	config.AutomaticLoadEnv("LENDING")
	if err := config.LoadYaml(cfgFile, cfg); err != nil {
		return err
	}

	defaults(cfg)

	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		return err
	}

	return nil
}

func defaults(cfg *core.Config) {
	for i := range cfg.Markets {
		m := &cfg.Markets[i]
		if m.Decimals <= 0 {
			m.Decimals = 8
		}
		if m.PriceDecimals <= 0 {
			m.PriceDecimals = 8
		}
		if m.ReserveFactor.IsZero() {
			m.ReserveFactor = number.Decimal("0.10")
		}
	}

	if cfg.Scanner.MaxPositions <= 0 {
		cfg.Scanner.MaxPositions = 100
	}
	if cfg.Scanner.CooldownSeconds <= 0 {
		cfg.Scanner.CooldownSeconds = 60
	}
	if cfg.Scanner.MaxSlippage.IsZero() {
		cfg.Scanner.MaxSlippage = number.Decimal("0.01")
	}
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 10
	}
	if cfg.Scanner.Capacity <= 0 {
		cfg.Scanner.Capacity = 4
	}
}
