package orchestrator

import (
	"context"
	"strings"
	"testing"

	"lbp-lab/internal/dispatch"
	"lbp-lab/internal/domain"
)

func baseRequest() domain.Request {
	req := domain.NewRequest(domain.KindRunSimulation)
	req.Steps = 20
	return req
}

func TestOrchestrator_Variants(t *testing.T) {
	orch := New(Options{
		DemandPresets: []string{domain.DemandPresetBullish, domain.DemandPresetBearish},
		Multipliers:   []float64{0.5, 1, 2},
	})

	variants := orch.Variants(baseRequest())
	if len(variants) != 6 {
		t.Fatalf("expected 6 variants, got %d", len(variants))
	}
	// Empty sell axis keeps the base preset.
	for _, v := range variants {
		if v.SellPreset != domain.SellPresetLoyal {
			t.Errorf("expected base sell preset, got %q", v.SellPreset)
		}
	}
	if variants[5].DemandPreset != domain.DemandPresetBearish || variants[5].Multiplier != 2 {
		t.Errorf("unexpected last variant: %s", variants[5])
	}

	single := New(Options{}).Variants(baseRequest())
	if len(single) != 1 || single[0].Multiplier != 1 {
		t.Errorf("expected the base request as the only variant, got %v", single)
	}
}

func TestOrchestrator_Run_RanksByRaise(t *testing.T) {
	orch := New(Options{Multipliers: []float64{0, 1, 3}})

	result, err := orch.Run(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Variants != 3 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// More demand raises more collateral.
	if result.Rows[0].Multiplier != 3 || result.Rows[2].Multiplier != 0 {
		t.Errorf("unexpected ranking: %v, %v, %v", result.Rows[0].Variant, result.Rows[1].Variant, result.Rows[2].Variant)
	}
	for i := 1; i < len(result.Rows); i++ {
		if result.Rows[i].CollateralRaised > result.Rows[i-1].CollateralRaised {
			t.Errorf("rows not sorted by raise at %d", i)
		}
	}
	if result.Rows[0].Price.Count != 21 {
		t.Errorf("expected 21 prices, got %d", result.Rows[0].Price.Count)
	}
}

func TestOrchestrator_Run_FailedVariantDoesNotStopSweep(t *testing.T) {
	orch := New(Options{SellPresets: []string{"whale", domain.SellPresetNone, domain.SellPresetGreedy}})

	result, err := orch.Run(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected 1 failure, got %d", result.Failed)
	}
	last := result.Rows[len(result.Rows)-1]
	if last.SellPreset != "whale" || !strings.Contains(last.Error, "unknown sell pressure preset") {
		t.Errorf("expected failed variant last, got %+v", last)
	}
}

func TestOrchestrator_Run_Exec(t *testing.T) {
	var calls int
	orch := New(Options{
		Multipliers: []float64{1, 2},
		Exec: func(req domain.Request) domain.Response {
			calls++
			if req.Kind != domain.KindRunSimulation {
				t.Errorf("expected run kind, got %s", req.Kind)
			}
			return dispatch.Execute(req)
		},
	})

	req := baseRequest()
	req.Kind = domain.KindCalculate
	if _, err := orch.Run(context.Background(), req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 exec calls, got %d", calls)
	}
}

func TestOrchestrator_Run_Errors(t *testing.T) {
	req := baseRequest()
	req.Config.TknBalanceIn = -1
	if _, err := New(Options{}).Run(context.Background(), req); err == nil {
		t.Error("expected invalid config error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Options{}).Run(ctx, baseRequest()); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOrchestrator_Run_RowsCarryPolicyID(t *testing.T) {
	orch := New(Options{SellPresets: []string{domain.SellPresetNone, domain.SellPresetGreedy, domain.SellPresetLoyal, "whale"}})

	result, err := orch.Run(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	want := map[string]string{
		domain.SellPresetNone:   "NONE",
		domain.SellPresetGreedy: "GREEDY_spread20_sell10",
		domain.SellPresetLoyal:  "LOYAL_sold5_conc60",
		"whale":                 "",
	}
	for _, row := range result.Rows {
		if row.PolicyID != want[row.SellPreset] {
			t.Errorf("%s: expected policy id %q, got %q", row.SellPreset, want[row.SellPreset], row.PolicyID)
		}
	}
}
