package domain

import (
	"errors"
	"math"
	"strings"
)

// PoolConfig validation errors.
var (
	ErrInvalidBalance  = errors.New("pool balances must be finite and non-negative")
	ErrInvalidWeight   = errors.New("pool weights must be positive at start and end")
	ErrInvalidDuration = errors.New("sale duration must be positive")
	ErrInvalidSwapFee  = errors.New("swap fee must be in [0, 100)")
	ErrInvalidSupply   = errors.New("total supply must be non-negative")
)

// PoolConfig holds the immutable parameters of one sale.
// Weights may be percentages (90/10) or fractions (0.9/0.1). Each asset's
// weight is interpolated independently from its In to its Out value.
type PoolConfig struct {
	TokenName       string  `json:"tokenName,omitempty"`
	TokenSymbol     string  `json:"tokenSymbol,omitempty"`
	TotalSupply     float64 `json:"totalSupply"`
	PercentForSale  float64 `json:"percentForSale,omitempty"`
	CollateralToken string  `json:"collateralToken"`

	TknBalanceIn  float64 `json:"tknBalanceIn"`
	TknWeightIn   float64 `json:"tknWeightIn"`
	UsdcBalanceIn float64 `json:"usdcBalanceIn"`
	UsdcWeightIn  float64 `json:"usdcWeightIn"`
	TknWeightOut  float64 `json:"tknWeightOut"`
	UsdcWeightOut float64 `json:"usdcWeightOut"`

	Duration float64 `json:"duration"` // hours

	// SwapFee is a percentage (2 = 2%) when > 1, otherwise a fraction.
	SwapFee float64 `json:"swapFee"`
}

// DefaultPoolConfig returns the reference sale: 1M TKN against 100k USDC,
// weights 90/10 shifting to 10/90 over 48 hours with a 2% swap fee.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		TokenName:       "Token",
		TokenSymbol:     "TKN",
		TotalSupply:     10_000_000,
		PercentForSale:  10,
		CollateralToken: "USDC",
		TknBalanceIn:    1_000_000,
		TknWeightIn:     90,
		UsdcBalanceIn:   100_000,
		UsdcWeightIn:    10,
		TknWeightOut:    10,
		UsdcWeightOut:   90,
		Duration:        48,
		SwapFee:         2,
	}
}

// Validate checks the configuration at the request boundary.
// The engine itself tolerates degenerate values; this rejects malformed input
// before a run is dispatched.
func (c PoolConfig) Validate() error {
	for _, b := range []float64{c.TknBalanceIn, c.UsdcBalanceIn} {
		if b < 0 || math.IsNaN(b) || math.IsInf(b, 0) {
			return ErrInvalidBalance
		}
	}
	for _, w := range []float64{c.TknWeightIn, c.UsdcWeightIn, c.TknWeightOut, c.UsdcWeightOut} {
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return ErrInvalidWeight
		}
	}
	if c.Duration <= 0 || math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) {
		return ErrInvalidDuration
	}
	if c.SwapFee < 0 || c.SwapFee >= 100 || math.IsNaN(c.SwapFee) {
		return ErrInvalidSwapFee
	}
	if c.TotalSupply < 0 || math.IsNaN(c.TotalSupply) {
		return ErrInvalidSupply
	}
	return nil
}

// IsUSDCollateral reports whether the collateral is already USD-denominated.
func (c PoolConfig) IsUSDCollateral() bool {
	switch strings.ToUpper(strings.TrimSpace(c.CollateralToken)) {
	case "", "USDC", "USDT", "DAI", "USD":
		return true
	default:
		return false
	}
}
