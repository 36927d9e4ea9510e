package reporting

import (
	"time"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/metrics"
	"lbp-lab/internal/stats"
)

// Report is a rendered view of one engine response and the request that produced it.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Kind        string

	// Inputs
	Config domain.PoolConfig
	Demand domain.DemandPressureConfig
	Sell   domain.SellPressureConfig
	Steps  int

	// Full run
	Snapshots []domain.StepSnapshot
	Run       *RunSummary
	Stats     *stats.Summary // nil when no collateral/USD rate is known

	// Projection
	Paths     []PathRow
	FromStep  int
	Scenarios []float64
}

// RunSummary aggregates a snapshot sequence.
type RunSummary struct {
	StartPrice     float64
	FinalPrice     float64
	MinPrice       float64
	MaxPrice       float64
	MinPriceStep   int
	TotalBuyUSDC   float64
	TotalBuyTKN    float64
	TotalSellUSDC  float64
	TotalSellTKN   float64
	FinalTknSold   float64 // initial token balance minus final pool balance
	FinalUsdcRaise float64 // final collateral balance minus initial
	Price          metrics.PriceStats
}

// PathRow summarizes one projected scenario path.
type PathRow struct {
	Multiplier     float64
	StartPrice     float64
	EndPrice       float64
	MinPrice       float64
	MaxPrice       float64
	ChangePct      float64 // (end - start) / start * 100, 0 if start == 0
	MaxDrawdownPct float64
}
