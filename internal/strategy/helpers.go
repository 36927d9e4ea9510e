package strategy

import (
	"math"

	"lbp-lab/internal/domain"
)

// NonePolicy never sells.
type NonePolicy struct{}

// ID returns the policy identifier.
func (NonePolicy) ID() string { return "NONE" }

// SellAmount always returns 0.
func (NonePolicy) SellAmount(int, float64, domain.CommunityState) float64 { return 0 }

// tradeable returns amount if it clears the minimum trade size, else 0.
func tradeable(amount float64) float64 {
	if math.IsNaN(amount) || amount < MinTradeTokens {
		return 0
	}
	return amount
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
