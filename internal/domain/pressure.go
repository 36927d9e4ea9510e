package domain

import "errors"

// Demand presets.
const (
	DemandPresetBullish = "bullish"
	DemandPresetBearish = "bearish"
)

// Sell presets.
const (
	SellPresetLoyal  = "loyal"
	SellPresetGreedy = "greedy"
	SellPresetNone   = "none"
)

// ErrInvalidDemand is returned for negative or non-finite demand parameters.
var ErrInvalidDemand = errors.New("demand magnitude and multiplier must be non-negative")

// DemandPressureConfig defines total collateral inflow over a sale and its shape.
// Any preset other than bearish uses the bullish shape.
type DemandPressureConfig struct {
	Preset        string  `json:"preset"`
	MagnitudeBase float64 `json:"magnitudeBase"` // collateral units
	Multiplier    float64 `json:"multiplier"`
}

// DefaultDemandPressureConfig returns bullish demand of 100k collateral.
func DefaultDemandPressureConfig() DemandPressureConfig {
	return DemandPressureConfig{
		Preset:        DemandPresetBullish,
		MagnitudeBase: 100_000,
		Multiplier:    1,
	}
}

// Validate checks demand parameters at the request boundary.
func (c DemandPressureConfig) Validate() error {
	if c.MagnitudeBase < 0 || c.Multiplier < 0 {
		return ErrInvalidDemand
	}
	return nil
}

// SellPressureConfig selects and parameterizes the community sell policy.
type SellPressureConfig struct {
	Preset string `json:"preset"` // "loyal" | "greedy" | "none"

	// Loyal: share of the initial token balance sold over the sale, and how
	// strongly sells concentrate at the start and end (0..100).
	LoyalSoldPct          float64 `json:"loyalSoldPct"`
	LoyalConcentrationPct float64 `json:"loyalConcentrationPct"`

	// Greedy: profit spread over cost basis that triggers a sell, and the
	// share of holdings sold when triggered.
	GreedySpreadPct float64 `json:"greedySpreadPct"`
	GreedySellPct   float64 `json:"greedySellPct"`
}

// DefaultSellPressureConfig returns the loyal preset used by the simulator UI.
func DefaultSellPressureConfig() SellPressureConfig {
	return SellPressureConfig{
		Preset:                SellPresetLoyal,
		LoyalSoldPct:          5,
		LoyalConcentrationPct: 60,
		GreedySpreadPct:       20,
		GreedySellPct:         10,
	}
}
