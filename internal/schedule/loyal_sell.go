package schedule

import "math"

// Gaussian half-width bounds for the edge bumps.
const (
	sigmaMax      = 0.25
	sigmaMinFloor = 0.03
)

// LoyalSellSchedule returns per-step sell weights for steps 0..steps that sum
// to 1. concentrationPct (clamped to [0, 100]) shifts weight toward the start
// and end of the sale: 0 is flat, 100 puts narrow Gaussian bumps at both edges.
func LoyalSellSchedule(steps int, concentrationPct float64) []float64 {
	safeSteps := SafeSteps(steps)

	a := clamp(concentrationPct, 0, 100) / 100

	sigmaMin := math.Max(1/float64(safeSteps), sigmaMinFloor)
	sigma := sigmaMax + (sigmaMin-sigmaMax)*a

	gauss := func(t float64) float64 {
		z := t / sigma
		return math.Exp(-0.5 * z * z)
	}

	// Unit peak height at the edge.
	bumpScale := 1.0
	if edge := gauss(0) + gauss(1); edge > 0 {
		bumpScale = 1 / edge
	}

	weights := make([]float64, safeSteps+1)
	total := 0.0
	for i := 0; i <= safeSteps; i++ {
		x := float64(i) / float64(safeSteps)
		bump := (gauss(x) + gauss(1-x)) * bumpScale
		weights[i] = 1 + a*bump
		total += weights[i]
	}

	if total == 0 {
		return make([]float64, safeSteps+1)
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}
