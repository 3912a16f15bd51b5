package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Account 借贷账户, derived aggregate view over an account's positions
type Account struct {
	Account         string          `json:"account"`
	CollateralValue decimal.Decimal `json:"collateral_value"`
	BorrowedValue   decimal.Decimal `json:"borrowed_value"`
	HealthFactor    decimal.Decimal `json:"health_factor"`
	Positions       []*Position     `json:"positions"`
}

// BorrowerRegistry membership of accounts with nonzero aggregate debt, plus
// the last liquidation-attempt timestamp used for scanner cooldowns. Backed
// by a map: removal is O(1) and iteration order is not a guaranteed property.
type BorrowerRegistry interface {
	Add(ctx context.Context, account string) error
	Remove(ctx context.Context, account string) error
	Contains(ctx context.Context, account string) (bool, error)
	List(ctx context.Context) ([]string, error)
	LastAttempt(ctx context.Context, account string) (time.Time, error)
	MarkAttempt(ctx context.Context, account string, at time.Time) error
}
