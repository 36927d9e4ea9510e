package clickhouse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/storage"
	chstore "lbp-lab/internal/storage/clickhouse"
)

func testLog(kind string, id uint64, at int64) *domain.RequestLog {
	return &domain.RequestLog{
		RequestID:   id,
		Kind:        kind,
		ConfigKey:   "Fq3k",
		Steps:       48,
		Scenarios:   3,
		Status:      domain.ResponseSuccess,
		DurationMs:  2,
		RequestedAt: at,
	}
}

func TestRequestLogStore_InsertAndGetByKind(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewRequestLogStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testLog(domain.KindCalculate, 2, 2000)))
	require.NoError(t, store.Insert(ctx, testLog(domain.KindCalculate, 1, 1000)))
	require.NoError(t, store.Insert(ctx, testLog(domain.KindRunSimulation, 1, 1000)))

	got, err := store.GetByKind(ctx, domain.KindCalculate)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].RequestID)
	assert.Equal(t, uint64(2), got[1].RequestID)
	assert.Equal(t, 48, got[0].Steps)
	assert.Equal(t, 3, got[0].Scenarios)
}

func TestRequestLogStore_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewRequestLogStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testLog(domain.KindCalculate, 1, 1000)))
	err := store.Insert(ctx, testLog(domain.KindCalculate, 1, 1000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	batch := []*domain.RequestLog{
		testLog(domain.KindRunSimulation, 5, 5000),
		testLog(domain.KindRunSimulation, 5, 5000),
	}
	err = store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRequestLogStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewRequestLogStore(conn)
	ctx := context.Background()

	logs := []*domain.RequestLog{
		testLog(domain.KindCalculate, 1, 1000),
		testLog(domain.KindCalculate, 2, 2000),
		testLog(domain.KindRunSimulation, 1, 2000),
		testLog(domain.KindCalculate, 3, 4000),
	}
	require.NoError(t, store.InsertBulk(ctx, logs))

	got, err := store.GetByTimeRange(ctx, 2000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.KindCalculate, got[0].Kind)
	assert.Equal(t, domain.KindRunSimulation, got[1].Kind)
}

func TestRequestLogStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewRequestLogStore(conn)
	err := store.Insert(context.Background(), &domain.RequestLog{Kind: domain.KindCalculate})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
