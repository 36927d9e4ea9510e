package simulation

import (
	"fmt"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/schedule"
	"lbp-lab/internal/strategy"
)

// DefaultScenarios are the projection multipliers used when none are given:
// no further buying, baseline, and doubled demand.
var DefaultScenarios = []float64{0, 1, 2}

// Project computes one future price path per scenario multiplier, from
// currentStep to the end of the sale. Each path has totalSteps-currentStep+1
// prices; currentStep is clamped to [0, totalSteps].
//
// A nil checkpoint starts from the sale's initial balances with an empty
// community. Weights always follow the schedule. The first price of every path
// is the checkpoint's spot price with no trade applied.
//
// Per-step buy flow comes from the full-duration curve. A scenario's multiplier
// ramps in linearly and reaches full effect at the last step. Scenarios share
// no state.
func Project(
	cfg domain.PoolConfig,
	demand domain.DemandPressureConfig,
	sell domain.SellPressureConfig,
	steps int,
	scenarios []float64,
	currentStep int,
	checkpoint *domain.CheckpointState,
) ([][]float64, error) {
	totalSteps := schedule.SafeSteps(steps)
	startStep := min(max(currentStep, 0), totalSteps)

	policy, err := strategy.FromConfig(sell, cfg.TknBalanceIn, totalSteps)
	if err != nil {
		return nil, fmt.Errorf("build sell policy: %w", err)
	}

	engine := NewEngine(cfg, totalSteps, policy)
	flow := schedule.BuyFlow(totalSteps, demand)

	startPool := domain.PoolState{TknBalance: cfg.TknBalanceIn, UsdcBalance: cfg.UsdcBalanceIn}
	var startCommunity domain.CommunityState
	if checkpoint != nil {
		startPool = domain.PoolState{TknBalance: checkpoint.TknBalance, UsdcBalance: checkpoint.UsdcBalance}
		startCommunity = domain.CommunityState{
			TokensHeld: checkpoint.CommunityTokensHeld,
			AvgCost:    checkpoint.CommunityAvgCost,
		}
	}

	remaining := max(1, totalSteps-startStep)
	startPrice := engine.SpotPrice(startStep, startPool)

	paths := make([][]float64, 0, len(scenarios))
	for _, multiplier := range scenarios {
		path := make([]float64, 0, totalSteps-startStep+1)
		path = append(path, startPrice)

		pool, community := startPool, startCommunity
		for i := startStep + 1; i <= totalSteps; i++ {
			factor := ScenarioFactor(multiplier, i-startStep, remaining)

			var trades StepTrades
			pool, community, trades = engine.Step(i, flow[i]*factor, pool, community)
			path = append(path, trades.Price)
		}

		paths = append(paths, path)
	}

	return paths, nil
}

// ScenarioFactor returns the demand factor localStep steps into a projection
// of remaining steps: 1 at the origin, multiplier at the end.
func ScenarioFactor(multiplier float64, localStep, remaining int) float64 {
	progress := float64(localStep) / float64(max(1, remaining))
	progress = min(1, max(0, progress))
	return 1 + (multiplier-1)*progress
}
