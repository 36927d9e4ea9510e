package postgres

import (
	"context"
	"fmt"
	"time"

	"lbp-lab/internal/observability"
	"lbp-lab/internal/storage"
)

// CounterStore implements storage.CounterStore using PostgreSQL.
// Single table analytics_counters(key PRIMARY KEY, count, updated_at).
type CounterStore struct {
	pool *Pool
}

// NewCounterStore creates a new CounterStore.
func NewCounterStore(pool *Pool) *CounterStore {
	return &CounterStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CounterStore = (*CounterStore)(nil)

// Increment adds 1 to the counter in a single upsert and returns the new count.
func (s *CounterStore) Increment(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, storage.ErrInvalidInput
	}

	start := time.Now()
	var count int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO analytics_counters (key, count, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (key) DO UPDATE
		SET count = analytics_counters.count + 1,
		    updated_at = NOW()
		RETURNING count
	`, key).Scan(&count)
	observability.RecordDBQuery("postgres", "counter_increment", time.Since(start).Seconds(), err)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", key, err)
	}

	return count, nil
}

// Get returns the current count. Returns ErrNotFound if missing.
func (s *CounterStore) Get(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT count FROM analytics_counters WHERE key = $1
	`, key).Scan(&count)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get counter %s: %w", key, err)
	}

	return count, nil
}
