package metrics

import (
	"context"
	"fmt"
	"sort"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/storage"
)

// RequestAggregate summarizes request telemetry for one kind.
type RequestAggregate struct {
	Kind           string  `json:"kind"`
	Total          int     `json:"total"`
	Success        int     `json:"success"`
	Errors         int     `json:"errors"`
	Timeouts       int     `json:"timeouts"`
	Stale          int     `json:"stale"`
	SuccessRate    float64 `json:"successRate"`
	MeanDurationMs float64 `json:"meanDurationMs"`
	P90DurationMs  float64 `json:"p90DurationMs"`
	DistinctConfig int     `json:"distinctConfigs"`
}

// Aggregator computes request aggregates from the request log.
type Aggregator struct {
	logs storage.RequestLogStore
}

// NewAggregator creates a new request aggregator.
func NewAggregator(logs storage.RequestLogStore) *Aggregator {
	return &Aggregator{logs: logs}
}

// Aggregate loads rows requested within [start, end] and aggregates them per kind.
// Results are sorted by kind.
func (a *Aggregator) Aggregate(ctx context.Context, start, end int64) ([]RequestAggregate, error) {
	rows, err := a.logs.GetByTimeRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load request logs: %w", err)
	}
	return AggregateRequestLogs(rows), nil
}

// AggregateRequestLogs groups rows by kind and computes outcome counts and duration stats.
func AggregateRequestLogs(rows []*domain.RequestLog) []RequestAggregate {
	byKind := make(map[string][]*domain.RequestLog)
	for _, r := range rows {
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}

	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	out := make([]RequestAggregate, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, computeFromLogs(kind, byKind[kind]))
	}
	return out
}

func computeFromLogs(kind string, rows []*domain.RequestLog) RequestAggregate {
	agg := RequestAggregate{Kind: kind, Total: len(rows)}
	configs := make(map[string]struct{})
	var durations []float64

	for _, r := range rows {
		switch r.Status {
		case domain.ResponseSuccess:
			agg.Success++
		case domain.ResponseError:
			agg.Errors++
		case domain.StatusTimeout:
			agg.Timeouts++
		case domain.StatusStale:
			agg.Stale++
		}
		if r.ConfigKey != "" {
			configs[r.ConfigKey] = struct{}{}
		}
		if r.Status != domain.StatusTimeout {
			durations = append(durations, float64(r.DurationMs))
		}
	}

	if agg.Total > 0 {
		agg.SuccessRate = float64(agg.Success) / float64(agg.Total)
	}
	agg.MeanDurationMs = computeMean(durations)
	sort.Float64s(durations)
	agg.P90DurationMs = computePercentile(durations, 0.90)
	agg.DistinctConfig = len(configs)
	return agg
}
