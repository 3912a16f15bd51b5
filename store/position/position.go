package position

import (
	"context"
	"sort"
	"sync"
	"time"

	"lending/core"
)

type positionStore struct {
	mu        sync.RWMutex
	positions map[string]*core.Position
	nextID    uint64
}

// New new in-memory position store
func New() core.PositionStore {
	return &positionStore{
		positions: make(map[string]*core.Position),
		nextID:    1,
	}
}

func key(account, assetID string) string {
	return account + "/" + assetID
}

func (s *positionStore) Save(ctx context.Context, position *core.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(position.Account, position.AssetID)
	if position.ID == 0 {
		if existing, ok := s.positions[k]; ok {
			position.ID = existing.ID
			position.CreatedAt = existing.CreatedAt
		} else {
			position.ID = s.nextID
			s.nextID++
			position.CreatedAt = time.Now()
		}
	}

	position.Version++
	position.UpdatedAt = time.Now()
	s.positions[k] = position.Copy()
	return nil
}

// Find returns a zero-value record (ID == 0) when the account has no
// position in the market yet
func (s *positionStore) Find(ctx context.Context, account, assetID string) (*core.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.positions[key(account, assetID)]; ok {
		return p.Copy(), nil
	}

	return &core.Position{Account: account, AssetID: assetID}, nil
}

func (s *positionStore) FindByAccount(ctx context.Context, account string) ([]*core.Position, error) {
	return s.filter(func(p *core.Position) bool { return p.Account == account })
}

func (s *positionStore) FindByAsset(ctx context.Context, assetID string) ([]*core.Position, error) {
	return s.filter(func(p *core.Position) bool { return p.AssetID == assetID })
}

func (s *positionStore) All(ctx context.Context) ([]*core.Position, error) {
	return s.filter(func(p *core.Position) bool { return true })
}

func (s *positionStore) filter(match func(*core.Position) bool) ([]*core.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var positions []*core.Position
	for _, p := range s.positions {
		if match(p) {
			positions = append(positions, p.Copy())
		}
	}

	sort.Slice(positions, func(i, j int) bool { return positions[i].ID < positions[j].ID })
	return positions, nil
}
