package core

import "strconv"

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unknown
	ErrUnknown ErrorCode = 100000
	// ErrOperationForbidden operation forbidden
	ErrOperationForbidden ErrorCode = 100001

	// ErrMarketNotFound no market
	ErrMarketNotFound ErrorCode = 100100
	// ErrMarketExists market already listed, listings are write once
	ErrMarketExists ErrorCode = 100101
	// ErrInvalidAmount invalid amount
	ErrInvalidAmount ErrorCode = 100102
	// ErrSupplyNotFound no supply
	ErrSupplyNotFound ErrorCode = 100103
	// ErrBorrowNotFound no borrow
	ErrBorrowNotFound ErrorCode = 100104
	// ErrInsufficientCollaterals insufficient collaterals
	ErrInsufficientCollaterals ErrorCode = 100105
	// ErrInsufficientLiquidity insufficient liquidity
	ErrInsufficientLiquidity ErrorCode = 100106
	// ErrInsufficientShares not enough supply shares to redeem
	ErrInsufficientShares ErrorCode = 100107
	// ErrSeizeNotAllowed seize not allowed
	ErrSeizeNotAllowed ErrorCode = 100108
	// ErrInvalidPrice invalid price
	ErrInvalidPrice ErrorCode = 100109
	// ErrLiquidationNotAllowed account is healthy
	ErrLiquidationNotAllowed ErrorCode = 100110
	// ErrInsufficientFunds caller cannot cover the repay amount
	ErrInsufficientFunds ErrorCode = 100111
	// ErrInterestOverflow interest accrual would corrupt the ledger
	ErrInterestOverflow ErrorCode = 100112
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}
