package idhash

import (
	"testing"

	"github.com/mr-tron/base58"

	"lbp-lab/internal/domain"
)

func TestComputeConfigKey_Deterministic(t *testing.T) {
	req := domain.NewRequest(domain.KindRunSimulation)

	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		results[i] = ComputeConfigKey(req)
	}
	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatalf("ComputeConfigKey() not deterministic: %s != %s", results[i], results[0])
		}
	}

	decoded, err := base58.Decode(results[0])
	if err != nil {
		t.Fatalf("key is not base58: %v", err)
	}
	if len(decoded) != 32 {
		t.Errorf("expected 32-byte hash, got %d bytes", len(decoded))
	}
}

func TestComputeConfigKey_IgnoresID(t *testing.T) {
	a := domain.NewRequest(domain.KindRunSimulation)
	b := a
	a.ID, b.ID = 1, 2
	if ComputeConfigKey(a) != ComputeConfigKey(b) {
		t.Error("expected request ID to be excluded from the key")
	}
}

func TestComputeConfigKey_DistinguishesInputs(t *testing.T) {
	base := domain.NewRequest(domain.KindCalculate)
	base.Scenarios = []float64{0, 1, 2}
	baseKey := ComputeConfigKey(base)

	tests := []struct {
		name   string
		mutate func(*domain.Request)
	}{
		{"kind", func(r *domain.Request) { r.Kind = domain.KindRunSimulation }},
		{"swap fee", func(r *domain.Request) { r.Config.SwapFee = 0.5 }},
		{"demand multiplier", func(r *domain.Request) { r.Demand.Multiplier = 1.5 }},
		{"sell preset", func(r *domain.Request) { r.Sell.Preset = domain.SellPresetGreedy }},
		{"steps", func(r *domain.Request) { r.Steps = 99 }},
		{"scenarios", func(r *domain.Request) { r.Scenarios = []float64{0, 1} }},
		{"current step", func(r *domain.Request) { r.CurrentStep = 7 }},
		{"checkpoint", func(r *domain.Request) {
			r.Checkpoint = &domain.CheckpointState{TknBalance: 1, UsdcBalance: 2}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			req.Scenarios = append([]float64(nil), base.Scenarios...)
			tt.mutate(&req)
			if ComputeConfigKey(req) == baseKey {
				t.Errorf("expected %s to change the key", tt.name)
			}
		})
	}
}

func TestComputeConfigKey_RunIgnoresProjectionFields(t *testing.T) {
	a := domain.NewRequest(domain.KindRunSimulation)
	b := a
	b.CurrentStep = 40
	b.Scenarios = []float64{3}
	if ComputeConfigKey(a) != ComputeConfigKey(b) {
		t.Error("expected projection fields to be ignored for full runs")
	}
}
