package handler

import (
	"context"
	"sync"
	"time"

	"github.com/dermaclinic/backend/internal/domain/shared"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }

// mapStore is a minimal idempotency store for handler tests
type mapStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMapStore() *mapStore {
	return &mapStore{keys: make(map[string]bool)}
}

func (s *mapStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *mapStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *mapStore) Close() error { return nil }

func testIdemConfig() shared.IdempotencyConfig {
	return shared.IdempotencyConfig{TTL: time.Hour, Enabled: true}
}
