package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// TokenPort transfer surface of one underlying asset. All operations fail
// closed: a returned error aborts the enclosing call before any further
// mutation is committed.
type TokenPort interface {
	// Transfer pays out of the protocol account
	Transfer(ctx context.Context, to string, amount decimal.Decimal) error
	TransferFrom(ctx context.Context, from, to string, amount decimal.Decimal) error
	BalanceOf(ctx context.Context, holder string) (decimal.Decimal, error)
	Decimals() int32
}
