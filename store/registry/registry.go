package registry

import (
	"context"
	"sync"
	"time"

	"lending/core"
)

type borrowerRegistry struct {
	mu       sync.RWMutex
	members  map[string]bool
	attempts map[string]time.Time
}

// New new map-backed borrower registry. Membership removal is O(1);
// iteration order is not guaranteed.
func New() core.BorrowerRegistry {
	return &borrowerRegistry{
		members:  make(map[string]bool),
		attempts: make(map[string]time.Time),
	}
}

func (r *borrowerRegistry) Add(ctx context.Context, account string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[account] = true
	return nil
}

func (r *borrowerRegistry) Remove(ctx context.Context, account string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.members, account)
	delete(r.attempts, account)
	return nil
}

func (r *borrowerRegistry) Contains(ctx context.Context, account string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.members[account], nil
}

func (r *borrowerRegistry) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]string, 0, len(r.members))
	for account := range r.members {
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func (r *borrowerRegistry) LastAttempt(ctx context.Context, account string) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.attempts[account], nil
}

func (r *borrowerRegistry) MarkAttempt(ctx context.Context, account string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts[account] = at
	return nil
}
