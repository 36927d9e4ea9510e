package memory

import (
	"context"
	"sort"
	"sync"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/storage"
)

type requestLogKey struct {
	kind        string
	requestID   uint64
	requestedAt int64
}

// RequestLogStore is an in-memory implementation of storage.RequestLogStore.
type RequestLogStore struct {
	mu   sync.RWMutex
	data map[requestLogKey]*domain.RequestLog
}

// NewRequestLogStore creates a new in-memory request log store.
func NewRequestLogStore() *RequestLogStore {
	return &RequestLogStore{
		data: make(map[requestLogKey]*domain.RequestLog),
	}
}

func keyOf(l *domain.RequestLog) requestLogKey {
	return requestLogKey{kind: l.Kind, requestID: l.RequestID, requestedAt: l.RequestedAt}
}

// Insert adds a log row. Returns ErrDuplicateKey if the key exists.
func (s *RequestLogStore) Insert(_ context.Context, l *domain.RequestLog) error {
	if err := storage.ValidateRequestLog(l); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := keyOf(l)
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *l
	s.data[k] = &copy
	return nil
}

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *RequestLogStore) InsertBulk(_ context.Context, logs []*domain.RequestLog) error {
	if len(logs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[requestLogKey]struct{}, len(logs))
	for _, l := range logs {
		if err := storage.ValidateRequestLog(l); err != nil {
			return err
		}
		k := keyOf(l)
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, l := range logs {
		copy := *l
		s.data[keyOf(l)] = &copy
	}
	return nil
}

// GetByKind retrieves all rows of a kind, ordered by requested_at, request_id.
func (s *RequestLogStore) GetByKind(_ context.Context, kind string) ([]*domain.RequestLog, error) {
	return s.filter(func(l *domain.RequestLog) bool { return l.Kind == kind }), nil
}

// GetByTimeRange retrieves rows requested within [start, end] (inclusive).
func (s *RequestLogStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.RequestLog, error) {
	return s.filter(func(l *domain.RequestLog) bool {
		return l.RequestedAt >= start && l.RequestedAt <= end
	}), nil
}

func (s *RequestLogStore) filter(match func(*domain.RequestLog) bool) []*domain.RequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RequestLog
	for _, l := range s.data {
		if match(l) {
			copy := *l
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.RequestedAt != b.RequestedAt {
			return a.RequestedAt < b.RequestedAt
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.RequestID < b.RequestID
	})

	return result
}

var _ storage.RequestLogStore = (*RequestLogStore)(nil)
