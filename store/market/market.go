package market

import (
	"context"
	"sync"
	"time"

	"lending/core"
)

type marketStore struct {
	mu      sync.RWMutex
	markets map[string]*core.Market
	order   []string
	nextID  uint64
}

// New new in-memory market store
func New() core.MarketStore {
	return &marketStore{
		markets: make(map[string]*core.Market),
		nextID:  1,
	}
}

func (s *marketStore) Create(ctx context.Context, market *core.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markets[market.AssetID]; ok {
		return core.ErrMarketExists
	}

	market.ID = s.nextID
	s.nextID++
	market.CreatedAt = time.Now()
	market.UpdatedAt = market.CreatedAt

	s.markets[market.AssetID] = market.Copy()
	s.order = append(s.order, market.AssetID)
	return nil
}

func (s *marketStore) Find(ctx context.Context, assetID string) (*core.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	market, ok := s.markets[assetID]
	if !ok {
		return nil, core.ErrMarketNotFound
	}

	return market.Copy(), nil
}

func (s *marketStore) FindBySymbol(ctx context.Context, symbol string) (*core.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, assetID := range s.order {
		if m := s.markets[assetID]; m.Symbol == symbol {
			return m.Copy(), nil
		}
	}

	return nil, core.ErrMarketNotFound
}

// All returns markets in listing order
func (s *marketStore) All(ctx context.Context) ([]*core.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markets := make([]*core.Market, 0, len(s.order))
	for _, assetID := range s.order {
		markets = append(markets, s.markets[assetID].Copy())
	}

	return markets, nil
}

func (s *marketStore) AllAsMap(ctx context.Context) (map[string]*core.Market, error) {
	markets, e := s.All(ctx)
	if e != nil {
		return nil, e
	}

	maps := make(map[string]*core.Market, len(markets))
	for _, m := range markets {
		maps[m.AssetID] = m
	}

	return maps, nil
}

func (s *marketStore) Update(ctx context.Context, market *core.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markets[market.AssetID]; !ok {
		return core.ErrMarketNotFound
	}

	market.Version++
	market.UpdatedAt = time.Now()
	s.markets[market.AssetID] = market.Copy()
	return nil
}
