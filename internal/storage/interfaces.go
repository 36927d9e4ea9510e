// Package storage defines persistence for host-side telemetry: analytics
// counters and the request log. Simulation results are never stored.
package storage

import (
	"context"

	"lbp-lab/internal/domain"
)

// CounterStore provides access to analytics_counters storage.
type CounterStore interface {
	// Increment adds 1 to the counter, creating it at 1 if missing.
	// Returns the new count. Returns ErrInvalidInput for an empty key.
	Increment(ctx context.Context, key string) (int64, error)

	// Get returns the current count. Returns ErrNotFound if the counter was never incremented.
	Get(ctx context.Context, key string) (int64, error)
}

// RequestLogStore provides access to request_logs storage (append-only).
type RequestLogStore interface {
	// Insert adds a log row. Returns ErrDuplicateKey if (kind, request_id, requested_at) exists.
	Insert(ctx context.Context, l *domain.RequestLog) error

	// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, logs []*domain.RequestLog) error

	// GetByKind retrieves all rows of a kind, ordered by requested_at ASC, request_id ASC.
	GetByKind(ctx context.Context, kind string) ([]*domain.RequestLog, error)

	// GetByTimeRange retrieves rows requested within [start, end] (inclusive),
	// ordered by requested_at ASC, kind ASC, request_id ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.RequestLog, error)
}
