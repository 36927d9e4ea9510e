package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/observability"
	"lbp-lab/internal/storage"
)

// RequestLogStore implements storage.RequestLogStore using PostgreSQL.
type RequestLogStore struct {
	pool *Pool
}

// NewRequestLogStore creates a new RequestLogStore.
func NewRequestLogStore(pool *Pool) *RequestLogStore {
	return &RequestLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RequestLogStore = (*RequestLogStore)(nil)

const insertRequestLogQuery = `
	INSERT INTO request_logs (
		kind, request_id, requested_at,
		config_key, steps, scenarios,
		status, duration_ms, error_msg
	) VALUES (
		$1, $2, $3,
		$4, $5, $6,
		$7, $8, $9
	)
`

const selectRequestLogColumns = `
	SELECT
		kind, request_id, requested_at,
		config_key, steps, scenarios,
		status, duration_ms, error_msg
	FROM request_logs
`

func requestLogArgs(l *domain.RequestLog) []any {
	return []any{
		l.Kind, int64(l.RequestID), l.RequestedAt,
		l.ConfigKey, l.Steps, l.Scenarios,
		l.Status, l.DurationMs, l.ErrorMsg,
	}
}

// Insert adds a log row. Returns ErrDuplicateKey if the key exists.
func (s *RequestLogStore) Insert(ctx context.Context, l *domain.RequestLog) error {
	if err := storage.ValidateRequestLog(l); err != nil {
		return err
	}

	start := time.Now()
	_, err := s.pool.Exec(ctx, insertRequestLogQuery, requestLogArgs(l)...)
	observability.RecordDBQuery("postgres", "request_log_insert", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *RequestLogStore) InsertBulk(ctx context.Context, logs []*domain.RequestLog) error {
	if len(logs) == 0 {
		return nil
	}
	for _, l := range logs {
		if err := storage.ValidateRequestLog(l); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, l := range logs {
		if _, err := tx.Exec(ctx, insertRequestLogQuery, requestLogArgs(l)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert request log in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByKind retrieves all rows of a kind, ordered by requested_at, request_id.
func (s *RequestLogStore) GetByKind(ctx context.Context, kind string) ([]*domain.RequestLog, error) {
	rows, err := s.pool.Query(ctx, selectRequestLogColumns+`
		WHERE kind = $1
		ORDER BY requested_at ASC, request_id ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("get request logs by kind: %w", err)
	}
	defer rows.Close()

	return scanRequestLogs(rows)
}

// GetByTimeRange retrieves rows requested within [start, end] (inclusive).
func (s *RequestLogStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.RequestLog, error) {
	rows, err := s.pool.Query(ctx, selectRequestLogColumns+`
		WHERE requested_at >= $1 AND requested_at <= $2
		ORDER BY requested_at ASC, kind ASC, request_id ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("get request logs by time range: %w", err)
	}
	defer rows.Close()

	return scanRequestLogs(rows)
}

func scanRequestLogs(rows pgx.Rows) ([]*domain.RequestLog, error) {
	var logs []*domain.RequestLog

	for rows.Next() {
		var l domain.RequestLog
		var requestID int64

		err := rows.Scan(
			&l.Kind, &requestID, &l.RequestedAt,
			&l.ConfigKey, &l.Steps, &l.Scenarios,
			&l.Status, &l.DurationMs, &l.ErrorMsg,
		)
		if err != nil {
			return nil, fmt.Errorf("scan request log row: %w", err)
		}
		l.RequestID = uint64(requestID)

		logs = append(logs, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request log rows: %w", err)
	}

	return logs, nil
}
