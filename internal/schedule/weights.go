// Package schedule generates the time-indexed inputs of a sale: pool weights,
// cumulative buy pressure and the loyal-seller timing distribution.
package schedule

// SafeSteps floors a step count at 1.
func SafeSteps(steps int) int {
	if steps < 1 {
		return 1
	}
	return steps
}

// Progress returns step/totalSteps using the floored step count.
func Progress(step, totalSteps int) float64 {
	return float64(step) / float64(SafeSteps(totalSteps))
}

// WeightAt linearly interpolates a pool weight between its start and end
// value: weightIn + (weightOut - weightIn) * step/totalSteps.
// No clamping is applied; steps outside [0, totalSteps] extrapolate.
func WeightAt(step, totalSteps int, weightIn, weightOut float64) float64 {
	return weightIn + (weightOut-weightIn)*Progress(step, totalSteps)
}
