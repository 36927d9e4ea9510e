package simulation

import (
	"fmt"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/schedule"
	"lbp-lab/internal/strategy"
)

// Run simulates the whole sale from its initial state and returns one snapshot
// per step, steps+1 in total. Non-positive steps are treated as 1.
// Snapshot 0 is the initial pool: step 0 carries no buy flow and the community
// holds nothing to sell.
//
// The only error is an unknown sell preset.
func Run(cfg domain.PoolConfig, demand domain.DemandPressureConfig, sell domain.SellPressureConfig, steps int) ([]domain.StepSnapshot, error) {
	totalSteps := schedule.SafeSteps(steps)

	policy, err := strategy.FromConfig(sell, cfg.TknBalanceIn, totalSteps)
	if err != nil {
		return nil, fmt.Errorf("build sell policy: %w", err)
	}

	engine := NewEngine(cfg, totalSteps, policy)
	flow := schedule.BuyFlow(totalSteps, demand)

	pool := domain.PoolState{TknBalance: cfg.TknBalanceIn, UsdcBalance: cfg.UsdcBalanceIn}
	var community domain.CommunityState

	snapshots := make([]domain.StepSnapshot, 0, totalSteps+1)
	for i := 0; i <= totalSteps; i++ {
		var trades StepTrades
		pool, community, trades = engine.Step(i, flow[i], pool, community)
		snapshots = append(snapshots, buildSnapshot(i, totalSteps, cfg.Duration, pool, community, trades))
	}

	return snapshots, nil
}

// buildSnapshot records the state after step i.
func buildSnapshot(i, totalSteps int, duration float64, pool domain.PoolState, community domain.CommunityState, trades StepTrades) domain.StepSnapshot {
	t := TimeAt(i, totalSteps, duration)
	return domain.StepSnapshot{
		Index:               i,
		Time:                t,
		TimeLabel:           fmt.Sprintf("%.1fh", t),
		Price:               trades.Price,
		TknBalance:          pool.TknBalance,
		UsdcBalance:         pool.UsdcBalance,
		TknWeight:           trades.TknWeight,
		UsdcWeight:          trades.UsdcWeight,
		TVLUSD:              pool.UsdcBalance + pool.TknBalance*trades.Price,
		CommunityTokensHeld: community.TokensHeld,
		CommunityAvgCost:    community.AvgCost,
		BuyVolumeUSDC:       trades.BuyUSDC,
		BuyVolumeTKN:        trades.BuyTKN,
		SellVolumeUSDC:      trades.SellUSDC,
		SellVolumeTKN:       trades.SellTKN,
	}
}

// TimeAt returns hours elapsed at step i. Exact at 0 and totalSteps.
func TimeAt(i, totalSteps int, duration float64) float64 {
	if i == totalSteps {
		return duration
	}
	return schedule.Progress(i, totalSteps) * duration
}
