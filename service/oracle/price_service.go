package oracle

import (
	"context"
	"sync"
	"time"

	"lending/core"

	"github.com/bluele/gcache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Config price service config. A non-positive Expiry disables caching so
// every read hits the feed; risk checks inside one call always observe one
// consistent price either way.
type Config struct {
	CacheSize int
	Expiry    time.Duration
}

type priceService struct {
	mu     sync.RWMutex
	feeds  map[string]core.PriceFeed
	cache  gcache.Cache
	sf     singleflight.Group
	expiry time.Duration
}

// New new price service over the registered per-asset feeds
func New(cfg Config) core.PriceService {
	size := cfg.CacheSize
	if size <= 0 {
		size = 128
	}

	return &priceService{
		feeds:  make(map[string]core.PriceFeed),
		cache:  gcache.New(size).LRU().Build(),
		expiry: cfg.Expiry,
	}
}

func (s *priceService) AddFeed(assetID string, feed core.PriceFeed) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feeds[assetID] = feed
}

// Price returns the normalized USD price per unit: feed value shifted by the
// feed's own decimal precision
func (s *priceService) Price(ctx context.Context, assetID string) (decimal.Decimal, error) {
	if s.expiry > 0 {
		if v, err := s.cache.Get(assetID); err == nil {
			if price, ok := v.(decimal.Decimal); ok {
				return price, nil
			}
		}
	}

	v, err, _ := s.sf.Do(assetID, func() (interface{}, error) {
		s.mu.RLock()
		feed, ok := s.feeds[assetID]
		s.mu.RUnlock()

		if !ok {
			return nil, core.ErrMarketNotFound
		}

		value, precision, err := feed.LatestPrice(ctx)
		if err != nil {
			return nil, err
		}

		price := value.Shift(-precision)
		if !price.IsPositive() {
			return nil, core.ErrInvalidPrice
		}

		if s.expiry > 0 {
			_ = s.cache.SetWithExpire(assetID, price, s.expiry)
		}

		return price, nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return v.(decimal.Decimal), nil
}
