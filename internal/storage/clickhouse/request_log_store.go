package clickhouse

import (
	"context"
	"fmt"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/storage"
)

// RequestLogStore implements storage.RequestLogStore using ClickHouse.
// MergeTree does not enforce keys, so duplicates are checked before insert.
type RequestLogStore struct {
	conn *Conn
}

// NewRequestLogStore creates a new RequestLogStore.
func NewRequestLogStore(conn *Conn) *RequestLogStore {
	return &RequestLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RequestLogStore = (*RequestLogStore)(nil)

const selectRequestLogs = `
	SELECT
		kind, request_id, requested_at,
		config_key, steps, scenarios,
		status, duration_ms, error_msg
	FROM request_logs
`

// Insert adds a log row. Returns ErrDuplicateKey if the key exists.
func (s *RequestLogStore) Insert(ctx context.Context, l *domain.RequestLog) error {
	return s.InsertBulk(ctx, []*domain.RequestLog{l})
}

// InsertBulk adds multiple rows in one batch. Fails entire batch on any duplicate.
func (s *RequestLogStore) InsertBulk(ctx context.Context, logs []*domain.RequestLog) error {
	if len(logs) == 0 {
		return nil
	}

	type key struct {
		kind        string
		requestID   uint64
		requestedAt int64
	}
	seen := make(map[key]struct{}, len(logs))
	for _, l := range logs {
		if err := storage.ValidateRequestLog(l); err != nil {
			return err
		}
		k := key{l.Kind, l.RequestID, l.RequestedAt}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, l := range logs {
		exists, err := s.exists(ctx, l.Kind, l.RequestID, l.RequestedAt)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO request_logs (
			kind, request_id, requested_at,
			config_key, steps, scenarios,
			status, duration_ms, error_msg
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, l := range logs {
		err = batch.Append(
			l.Kind, l.RequestID, l.RequestedAt,
			l.ConfigKey, uint32(l.Steps), uint32(l.Scenarios),
			l.Status, l.DurationMs, l.ErrorMsg,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByKind retrieves all rows of a kind, ordered by requested_at, request_id.
func (s *RequestLogStore) GetByKind(ctx context.Context, kind string) ([]*domain.RequestLog, error) {
	rows, err := s.conn.Query(ctx, selectRequestLogs+`
		WHERE kind = ?
		ORDER BY requested_at ASC, request_id ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("query by kind: %w", err)
	}
	defer rows.Close()

	return scanRequestLogs(rows)
}

// GetByTimeRange retrieves rows requested within [start, end] (inclusive).
func (s *RequestLogStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.RequestLog, error) {
	rows, err := s.conn.Query(ctx, selectRequestLogs+`
		WHERE requested_at >= ? AND requested_at <= ?
		ORDER BY requested_at ASC, kind ASC, request_id ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanRequestLogs(rows)
}

func (s *RequestLogStore) exists(ctx context.Context, kind string, requestID uint64, requestedAt int64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM request_logs
		WHERE kind = ? AND request_id = ? AND requested_at = ?
	`, kind, requestID, requestedAt).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanRequestLogs(rows chRows) ([]*domain.RequestLog, error) {
	var logs []*domain.RequestLog

	for rows.Next() {
		var l domain.RequestLog
		var steps, scenarios uint32
		err := rows.Scan(
			&l.Kind, &l.RequestID, &l.RequestedAt,
			&l.ConfigKey, &steps, &scenarios,
			&l.Status, &l.DurationMs, &l.ErrorMsg,
		)
		if err != nil {
			return nil, fmt.Errorf("scan request log row: %w", err)
		}
		l.Steps = int(steps)
		l.Scenarios = int(scenarios)
		logs = append(logs, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request log rows: %w", err)
	}

	return logs, nil
}
