package schedule

import (
	"math"

	"lbp-lab/internal/domain"
)

// Curve shape constants.
const (
	bearishEndScale = 0.35
	bearishExponent = 1.8
	bullishExponent = 0.9
	maxMultiplier   = 1_000_000
)

// EndTotal returns the total collateral inflow over the whole sale.
func EndTotal(cfg domain.DemandPressureConfig) float64 {
	multiplier := clamp(cfg.Multiplier, 0, maxMultiplier)
	endScale := 1.0
	if cfg.Preset == domain.DemandPresetBearish {
		endScale = bearishEndScale
	}
	return cfg.MagnitudeBase * multiplier * endScale
}

// CumulativeBuyCurve returns cumulative collateral inflow for steps 0..steps.
// The result has steps+1 entries, starts at exactly 0, ends at exactly
// EndTotal(cfg) and is non-decreasing.
//
// Bearish demand is back-loaded (progress^1.8); any other preset is
// front-loaded (progress^0.9).
func CumulativeBuyCurve(steps int, cfg domain.DemandPressureConfig) []float64 {
	safeSteps := SafeSteps(steps)
	endTotal := EndTotal(cfg)

	exponent := bullishExponent
	if cfg.Preset == domain.DemandPresetBearish {
		exponent = bearishExponent
	}

	curve := make([]float64, safeSteps+1)
	for i := 0; i <= safeSteps; i++ {
		progress := float64(i) / float64(safeSteps)
		normalized := math.Pow(progress, exponent)
		curve[i] = endTotal * clamp(normalized, 0, 1)
	}

	curve[0] = 0
	curve[safeSteps] = endTotal
	for i := 1; i < len(curve); i++ {
		curve[i] = math.Max(curve[i], curve[i-1])
	}

	return curve
}

// PerStepFlow converts a cumulative curve into per-step inflow.
// flow[0] is 0 and every entry is non-negative.
func PerStepFlow(cumulative []float64) []float64 {
	if len(cumulative) == 0 {
		return nil
	}

	flow := make([]float64, len(cumulative))
	for i := 1; i < len(cumulative); i++ {
		flow[i] = math.Max(0, cumulative[i]-cumulative[i-1])
	}
	return flow
}

// BuyFlow returns the per-step collateral inflow for steps 0..steps.
func BuyFlow(steps int, cfg domain.DemandPressureConfig) []float64 {
	return PerStepFlow(CumulativeBuyCurve(steps, cfg))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
