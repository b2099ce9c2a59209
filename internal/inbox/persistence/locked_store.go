package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
)

// LockedStore guards a store so that captures, replies and sync merges made
// by one process never interleave their load and save.
type LockedStore struct {
	mu    sync.Mutex
	inner domain.Store
}

var _ domain.Updater = (*LockedStore)(nil)

// NewLockedStore wraps inner.
func NewLockedStore(inner domain.Store) *LockedStore {
	return &LockedStore{inner: inner}
}

func (s *LockedStore) Load(ctx context.Context) ([]domain.InboxItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Load(ctx)
}

func (s *LockedStore) Save(ctx context.Context, items []domain.InboxItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Save(ctx, items)
}

// Update holds the lock across the load, fn and the save.
func (s *LockedStore) Update(ctx context.Context, fn domain.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.inner.Load(ctx)
	if err != nil {
		return fmt.Errorf("load local inbox: %w", err)
	}
	updated, save, err := fn(items)
	if err != nil || !save {
		return err
	}
	if err := s.inner.Save(ctx, updated); err != nil {
		return fmt.Errorf("save local inbox: %w", err)
	}
	return nil
}
