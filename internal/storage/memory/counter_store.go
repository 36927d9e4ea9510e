package memory

import (
	"context"
	"sync"
	"time"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/storage"
)

// CounterStore is an in-memory implementation of storage.CounterStore.
type CounterStore struct {
	mu   sync.Mutex
	data map[string]*domain.AnalyticsCounter // keyed by counter key
	now  func() time.Time
}

// NewCounterStore creates a new in-memory counter store.
func NewCounterStore() *CounterStore {
	return &CounterStore{
		data: make(map[string]*domain.AnalyticsCounter),
		now:  time.Now,
	}
}

// Increment adds 1 to the counter, creating it if missing.
func (s *CounterStore) Increment(_ context.Context, key string) (int64, error) {
	if key == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[key]
	if !exists {
		c = &domain.AnalyticsCounter{Key: key}
		s.data[key] = c
	}
	c.Count++
	c.UpdatedAt = s.now().UnixMilli()
	return c.Count, nil
}

// Get returns the current count. Returns ErrNotFound if missing.
func (s *CounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[key]
	if !exists {
		return 0, storage.ErrNotFound
	}
	return c.Count, nil
}

var _ storage.CounterStore = (*CounterStore)(nil)
