package reporting

import (
	"errors"
	"time"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/metrics"
	"lbp-lab/internal/simulation"
	"lbp-lab/internal/stats"
)

// ErrErrorResponse is returned when asked to report on an error response.
var ErrErrorResponse = errors.New("cannot report on an error response")

// Generator builds reports from engine responses.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report for resp. quote is the collateral/USD rate used for
// summary statistics; stats are omitted when it is required but unknown.
func (g *Generator) Generate(req domain.Request, resp *domain.Response, quote float64) (*Report, error) {
	if resp == nil || resp.IsError() {
		return nil, ErrErrorResponse
	}

	r := &Report{
		GeneratedAt: g.now(),
		Kind:        req.Kind,
		Config:      req.Config,
		Demand:      req.Demand,
		Sell:        req.Sell,
		Steps:       req.Steps,
		Snapshots:   resp.Snapshots,
	}

	if len(resp.Snapshots) > 0 {
		r.Run = summarizeRun(req.Config, resp.Snapshots)
		if s, err := stats.FromSnapshots(req.Config, resp.Snapshots, len(resp.Snapshots)-1, quote); err == nil {
			r.Stats = &s
		}
	}

	if len(resp.Paths) > 0 {
		r.Scenarios = req.Scenarios
		if len(r.Scenarios) == 0 {
			r.Scenarios = simulation.DefaultScenarios
		}
		r.FromStep = clampStep(req.CurrentStep, req.Steps)
		r.Paths = summarizePaths(resp.Paths, r.Scenarios)
	}

	return r, nil
}

func summarizeRun(cfg domain.PoolConfig, snaps []domain.StepSnapshot) *RunSummary {
	first, last := snaps[0], snaps[len(snaps)-1]
	s := &RunSummary{
		StartPrice:     first.Price,
		FinalPrice:     last.Price,
		MinPrice:       first.Price,
		MaxPrice:       first.Price,
		FinalTknSold:   cfg.TknBalanceIn - last.TknBalance,
		FinalUsdcRaise: last.UsdcBalance - cfg.UsdcBalanceIn,
	}
	prices := make([]float64, 0, len(snaps))
	for _, snap := range snaps {
		prices = append(prices, snap.Price)
		if snap.Price < s.MinPrice {
			s.MinPrice = snap.Price
			s.MinPriceStep = snap.Index
		}
		if snap.Price > s.MaxPrice {
			s.MaxPrice = snap.Price
		}
		s.TotalBuyUSDC += snap.BuyVolumeUSDC
		s.TotalBuyTKN += snap.BuyVolumeTKN
		s.TotalSellUSDC += snap.SellVolumeUSDC
		s.TotalSellTKN += snap.SellVolumeTKN
	}
	s.Price = metrics.ComputePriceStats(prices)
	return s
}

func summarizePaths(paths [][]float64, scenarios []float64) []PathRow {
	rows := make([]PathRow, 0, len(paths))
	for i, path := range paths {
		if len(path) == 0 {
			continue
		}
		row := PathRow{
			StartPrice: path[0],
			EndPrice:   path[len(path)-1],
			MinPrice:   path[0],
			MaxPrice:   path[0],
		}
		if i < len(scenarios) {
			row.Multiplier = scenarios[i]
		}
		for _, p := range path {
			if p < row.MinPrice {
				row.MinPrice = p
			}
			if p > row.MaxPrice {
				row.MaxPrice = p
			}
		}
		row.MaxDrawdownPct = metrics.ComputePriceStats(path).MaxDrawdownPct
		if row.StartPrice != 0 {
			row.ChangePct = (row.EndPrice - row.StartPrice) / row.StartPrice * 100
		}
		rows = append(rows, row)
	}
	return rows
}

func clampStep(step, steps int) int {
	if steps < 1 {
		steps = 1
	}
	if step < 0 {
		return 0
	}
	if step > steps {
		return steps
	}
	return step
}
