package wallet

import (
	"context"
	"sync"

	"lending/core"

	"github.com/shopspring/decimal"
)

// TokenBook in-process token port keeping per-holder balances for one asset.
// It backs local runs and deterministic tests; a production deployment plugs
// the chain's own transfer surface in behind core.TokenPort instead.
type TokenBook struct {
	mu       sync.Mutex
	assetID  string
	decimals int32
	balances map[string]decimal.Decimal
}

// New new token book
func New(assetID string, decimals int32) *TokenBook {
	return &TokenBook{
		assetID:  assetID,
		decimals: decimals,
		balances: make(map[string]decimal.Decimal),
	}
}

// Mint credits a holder out of thin air; genesis and test seeding only
func (b *TokenBook) Mint(holder string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.balances[holder] = b.balances[holder].Add(amount)
}

func (b *TokenBook) Transfer(ctx context.Context, to string, amount decimal.Decimal) error {
	return b.TransferFrom(ctx, core.ProtocolAccount, to, amount)
}

func (b *TokenBook) TransferFrom(ctx context.Context, from, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[from].LessThan(amount) {
		return core.ErrInsufficientFunds
	}

	b.balances[from] = b.balances[from].Sub(amount)
	b.balances[to] = b.balances[to].Add(amount)
	return nil
}

func (b *TokenBook) BalanceOf(ctx context.Context, holder string) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.balances[holder], nil
}

func (b *TokenBook) Decimals() int32 {
	return b.decimals
}
