// Package orchestrator runs a sweep of pool variants.
// It coordinates: variant expansion → simulation → metrics
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"

	"lbp-lab/internal/dispatch"
	"lbp-lab/internal/domain"
	"lbp-lab/internal/metrics"
	"lbp-lab/internal/strategy"
)

// Orchestrator expands a base request into variants and runs each one.
type Orchestrator struct {
	exec   dispatch.ExecFunc
	logger *log.Logger

	demandPresets []string
	multipliers   []float64
	sellPresets   []string
}

// Options for creating Orchestrator.
type Options struct {
	// Exec runs one variant. Defaults to dispatch.Execute.
	Exec dispatch.ExecFunc

	// Sweep axes. An empty axis keeps the base request's value.
	DemandPresets []string
	Multipliers   []float64
	SellPresets   []string

	Logger *log.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	exec := opts.Exec
	if exec == nil {
		exec = dispatch.Execute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Orchestrator{
		exec:          exec,
		logger:        logger,
		demandPresets: opts.DemandPresets,
		multipliers:   opts.Multipliers,
		sellPresets:   opts.SellPresets,
	}
}

// Variant is one point of the sweep.
type Variant struct {
	DemandPreset string  `json:"demandPreset"`
	Multiplier   float64 `json:"multiplier"`
	SellPreset   string  `json:"sellPreset"`
}

func (v Variant) String() string {
	return fmt.Sprintf("%s x%g / %s", v.DemandPreset, v.Multiplier, v.SellPreset)
}

// Row is the outcome of one variant.
type Row struct {
	Variant
	PolicyID         string             `json:"policyId,omitempty"`
	FinalPrice       float64            `json:"finalPrice"`
	MinPrice         float64            `json:"minPrice"`
	TknSold          float64            `json:"tknSold"`
	CollateralRaised float64            `json:"collateralRaised"`
	Price            metrics.PriceStats `json:"price"`
	Error            string             `json:"error,omitempty"`
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Variants int
	Failed   int
	Rows     []Row // ordered by collateral raised, descending; failures last
}

// Run executes the sweep.
// Phases:
//  1. Expand variants
//  2. Simulate each variant
//  3. Compute price statistics and rank
//
// A failing variant is recorded on its row and does not stop the sweep.
// Cancelling ctx stops before the next variant.
func (o *Orchestrator) Run(ctx context.Context, base domain.Request) (*RunResult, error) {
	base.Kind = domain.KindRunSimulation
	if err := base.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid base config: %w", err)
	}

	// Phase 1: Expand variants
	variants := o.Variants(base)
	o.logger.Printf("Sweep: %d variants", len(variants))

	// Phase 2+3: Simulate and measure
	result := &RunResult{Variants: len(variants)}
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := base
		req.Demand.Preset = v.DemandPreset
		req.Demand.Multiplier = v.Multiplier
		req.Sell.Preset = v.SellPreset

		row := o.runVariant(req, v)
		if row.Error != "" {
			result.Failed++
			o.logger.Printf("  %s failed: %s", v, row.Error)
		}
		result.Rows = append(result.Rows, row)
	}

	sort.SliceStable(result.Rows, func(i, j int) bool {
		a, b := result.Rows[i], result.Rows[j]
		if (a.Error == "") != (b.Error == "") {
			return a.Error == ""
		}
		return a.CollateralRaised > b.CollateralRaised
	})

	o.logger.Printf("Sweep completed: %d variants, %d failed", result.Variants, result.Failed)
	return result, nil
}

// Variants returns the cartesian product of the sweep axes over base.
func (o *Orchestrator) Variants(base domain.Request) []Variant {
	demand := o.demandPresets
	if len(demand) == 0 {
		demand = []string{base.Demand.Preset}
	}
	mults := o.multipliers
	if len(mults) == 0 {
		mults = []float64{base.Demand.Multiplier}
	}
	sell := o.sellPresets
	if len(sell) == 0 {
		sell = []string{base.Sell.Preset}
	}

	out := make([]Variant, 0, len(demand)*len(mults)*len(sell))
	for _, d := range demand {
		for _, m := range mults {
			for _, s := range sell {
				out = append(out, Variant{DemandPreset: d, Multiplier: m, SellPreset: s})
			}
		}
	}
	return out
}

func (o *Orchestrator) runVariant(req domain.Request, v Variant) Row {
	row := Row{Variant: v}

	resp := o.exec(req)
	if resp.IsError() {
		row.Error = resp.Error
		return row
	}
	if len(resp.Snapshots) == 0 {
		row.Error = "no snapshots"
		return row
	}

	prices := make([]float64, len(resp.Snapshots))
	row.MinPrice = resp.Snapshots[0].Price
	for i, s := range resp.Snapshots {
		prices[i] = s.Price
		row.MinPrice = min(row.MinPrice, s.Price)
	}
	last := resp.Snapshots[len(resp.Snapshots)-1]

	row.FinalPrice = last.Price
	row.TknSold = req.Config.TknBalanceIn - last.TknBalance
	row.CollateralRaised = last.UsdcBalance - req.Config.UsdcBalanceIn
	row.Price = metrics.ComputePriceStats(prices)

	if policy, err := strategy.FromConfig(req.Sell, req.Config.TknBalanceIn, req.Steps); err == nil {
		row.PolicyID = policy.ID()
	}
	return row
}
