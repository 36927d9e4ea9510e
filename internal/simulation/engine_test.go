package simulation

import (
	"math"
	"testing"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/strategy"
)

// heavyCollateralPool fixes the collateral side at 9x the token weight, so a
// buy swaps with weightIn/weightOut = 9.
func heavyCollateralPool() domain.PoolConfig {
	return domain.PoolConfig{
		TknBalanceIn:  1_000_000,
		TknWeightIn:   10,
		UsdcBalanceIn: 100_000,
		UsdcWeightIn:  90,
		TknWeightOut:  10,
		UsdcWeightOut: 90,
		Duration:      48,
	}
}

func initialPool(cfg domain.PoolConfig) domain.PoolState {
	return domain.PoolState{TknBalance: cfg.TknBalanceIn, UsdcBalance: cfg.UsdcBalanceIn}
}

func TestEngine_Step_BuyBlendsCostBasis(t *testing.T) {
	cfg := referencePool()
	engine := NewEngine(cfg, 100, strategy.NonePolicy{})

	prior := domain.CommunityState{TokensHeld: 1000, AvgCost: 0.05}
	buyFlow := 5000.0
	_, community, trades := engine.Step(1, buyFlow, initialPool(cfg), prior)

	out := trades.BuyTKN
	if out <= 0 {
		t.Fatalf("expected tokens bought, got %f", out)
	}
	pricePaid := buyFlow / out
	want := (prior.AvgCost*prior.TokensHeld + pricePaid*out) / (prior.TokensHeld + out)
	if math.Abs(community.AvgCost-want) > 1e-12 {
		t.Errorf("expected volume-weighted cost %.15f, got %.15f", want, community.AvgCost)
	}
	if community.TokensHeld != prior.TokensHeld+out {
		t.Errorf("expected %f tokens held, got %f", prior.TokensHeld+out, community.TokensHeld)
	}
	if community.AvgCost <= prior.AvgCost || community.AvgCost >= pricePaid {
		t.Errorf("blended cost %f should lie between %f and %f", community.AvgCost, prior.AvgCost, pricePaid)
	}
}

func TestEngine_Step_FirstBuySetsCostToPricePaid(t *testing.T) {
	cfg := referencePool()
	engine := NewEngine(cfg, 100, nil)

	_, community, trades := engine.Step(1, 2500, initialPool(cfg), domain.CommunityState{})

	if want := trades.BuyUSDC / trades.BuyTKN; math.Abs(community.AvgCost-want) > 1e-12 {
		t.Errorf("expected cost %f, got %f", want, community.AvgCost)
	}
}

func TestEngine_Step_FullSellResetsCost(t *testing.T) {
	cfg := referencePool()
	engine := NewEngine(cfg, 100, strategy.NewGreedyPolicy(0, 100, cfg.TknBalanceIn))

	prior := domain.CommunityState{TokensHeld: 500, AvgCost: 1e-9}
	pool, community, trades := engine.Step(1, 0, initialPool(cfg), prior)

	if trades.SellTKN != prior.TokensHeld {
		t.Fatalf("expected all %f tokens sold, got %f", prior.TokensHeld, trades.SellTKN)
	}
	if community.TokensHeld != 0 {
		t.Errorf("expected no holdings, got %f", community.TokensHeld)
	}
	if community.AvgCost != 0 {
		t.Errorf("expected cost basis reset to 0, got %f", community.AvgCost)
	}
	if trades.SellUSDC <= 0 || math.Abs(pool.UsdcBalance-(cfg.UsdcBalanceIn-trades.SellUSDC)) > 1e-9 {
		t.Errorf("unexpected sell proceeds %f for collateral balance %f", trades.SellUSDC, pool.UsdcBalance)
	}
}

func TestEngine_Step_PartialSellKeepsCost(t *testing.T) {
	cfg := referencePool()
	engine := NewEngine(cfg, 100, strategy.NewGreedyPolicy(0, 10, cfg.TknBalanceIn))

	prior := domain.CommunityState{TokensHeld: 500, AvgCost: 1e-9}
	_, community, trades := engine.Step(1, 0, initialPool(cfg), prior)

	if trades.SellTKN != 50 {
		t.Fatalf("expected 50 tokens sold, got %f", trades.SellTKN)
	}
	if community.TokensHeld != 450 {
		t.Errorf("expected 450 tokens held, got %f", community.TokensHeld)
	}
	if community.AvgCost != prior.AvgCost {
		t.Errorf("partial sell changed cost basis: %g -> %g", prior.AvgCost, community.AvgCost)
	}
}

func TestEngine_Step_UnprofitableSmallHoldingIsKept(t *testing.T) {
	cfg := referencePool()
	engine := NewEngine(cfg, 100, strategy.NewGreedyPolicy(20, 10, cfg.TknBalanceIn))

	prior := domain.CommunityState{TokensHeld: 500, AvgCost: 10}
	_, community, trades := engine.Step(1, 0, initialPool(cfg), prior)

	if trades.SellTKN != 0 || community != prior {
		t.Errorf("expected no sell, got trades %+v community %+v", trades, community)
	}
}

func TestEngine_Step_OversizedBuyNeverDrainsPool(t *testing.T) {
	cfg := heavyCollateralPool()
	engine := NewEngine(cfg, 100, nil)

	pool, community, trades := engine.Step(1, 1e9, initialPool(cfg), domain.CommunityState{})

	if pool.TknBalance <= 0 {
		t.Fatalf("token balance drained: %g", pool.TknBalance)
	}
	if pool.TknBalance >= cfg.TknBalanceIn {
		t.Errorf("token balance did not decrease: %g", pool.TknBalance)
	}
	if trades.BuyTKN != cfg.TknBalanceIn-pool.TknBalance {
		t.Errorf("volume %f does not match balance change to %g", trades.BuyTKN, pool.TknBalance)
	}
	if trades.Price <= 0 || math.IsInf(trades.Price, 0) || math.IsNaN(trades.Price) {
		t.Errorf("expected finite positive price, got %g", trades.Price)
	}
	if math.IsInf(community.AvgCost, 0) || math.IsNaN(community.AvgCost) {
		t.Errorf("expected finite cost basis, got %g", community.AvgCost)
	}
}

func TestRun_ExtremeDemandKeepsPoolSolvent(t *testing.T) {
	snaps, err := Run(heavyCollateralPool(), bullish(1e6), domain.SellPressureConfig{Preset: domain.SellPresetNone}, 100)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, s := range snaps {
		if s.TknBalance <= 0 {
			t.Fatalf("step %d: token balance drained: %g", s.Index, s.TknBalance)
		}
		if s.Price <= 0 || math.IsInf(s.Price, 0) || math.IsNaN(s.Price) {
			t.Fatalf("step %d: expected finite positive price, got %g", s.Index, s.Price)
		}
	}
}
