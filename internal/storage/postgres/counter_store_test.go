package postgres_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/storage"
	pgstore "lbp-lab/internal/storage/postgres"
)

func TestCounterStore_IncrementUpsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewCounterStore(pool)

	count, err := store.Increment(ctx, domain.CounterReportDownload)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.Increment(ctx, domain.CounterReportDownload)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	got, err := store.Get(ctx, domain.CounterReportDownload)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestCounterStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := pgstore.NewCounterStore(pool).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCounterStore_EmptyKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := pgstore.NewCounterStore(pool).Increment(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCounterStore_ConcurrentIncrements(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewCounterStore(pool)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Increment(ctx, "concurrent")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "concurrent")
	require.NoError(t, err)
	assert.Equal(t, int64(20), got)
}
