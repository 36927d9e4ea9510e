// Package metrics computes descriptive statistics over price series and
// aggregates request telemetry.
package metrics

import (
	"math"
	"sort"
)

// PriceStats summarizes a price series.
type PriceStats struct {
	Count          int     `json:"count"`
	Mean           float64 `json:"mean"`
	Stddev         float64 `json:"stddev"` // sample (n-1)
	P10            float64 `json:"p10"`
	Median         float64 `json:"median"`
	P90            float64 `json:"p90"`
	MaxDrawdownPct float64 `json:"maxDrawdownPct"` // worst peak-to-trough fall, percent of the peak
}

// ComputePriceStats computes PriceStats for prices in chronological order.
func ComputePriceStats(prices []float64) PriceStats {
	s := PriceStats{Count: len(prices)}
	if len(prices) == 0 {
		return s
	}

	s.Mean = computeMean(prices)
	s.Stddev = computeStddev(prices, s.Mean)

	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)
	s.P10 = computePercentile(sorted, 0.10)
	s.Median = computePercentile(sorted, 0.50)
	s.P90 = computePercentile(sorted, 0.90)

	s.MaxDrawdownPct = computeMaxDrawdownPct(prices)
	return s
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdownPct returns the largest (peak - trough) / peak * 100
// over the series. Non-positive peaks are skipped.
func computeMaxDrawdownPct(prices []float64) float64 {
	peak := 0.0
	maxDrawdown := 0.0

	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p) / peak * 100; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}
