package oracle

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// StaticFeed price feed holding an operator-set price. It reports values in
// raw feed units at a fixed decimal precision, the way external feeds do.
type StaticFeed struct {
	mu        sync.RWMutex
	value     decimal.Decimal
	precision int32
}

// NewStaticFeed new feed at the given USD price and feed precision
func NewStaticFeed(price decimal.Decimal, precision int32) *StaticFeed {
	return &StaticFeed{
		value:     price.Shift(precision),
		precision: precision,
	}
}

// SetPrice updates the quoted USD price
func (f *StaticFeed) SetPrice(price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.value = price.Shift(f.precision)
}

func (f *StaticFeed) LatestPrice(ctx context.Context) (decimal.Decimal, int32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.value, f.precision, nil
}
