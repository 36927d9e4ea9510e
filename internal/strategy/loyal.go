package strategy

import (
	"fmt"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/schedule"
)

// Loyal sell sizing bounds, as fractions of current holdings.
const (
	loyalMinFraction = 0.001
	loyalMaxFraction = 0.1
	// loyalTargetHeadroom caps a step's sell at this multiple of its share
	// of the total target.
	loyalTargetHeadroom = 5
)

// LoyalPolicy sells a fixed share of the initial token balance over the sale,
// distributed by the loyal sell schedule.
type LoyalPolicy struct {
	SoldPct          float64
	ConcentrationPct float64
	TokenBalanceIn   float64

	schedule []float64
}

// NewLoyalPolicy creates a LoyalPolicy for a sale of totalSteps steps.
func NewLoyalPolicy(soldPct, concentrationPct, tokenBalanceIn float64, totalSteps int) *LoyalPolicy {
	return &LoyalPolicy{
		SoldPct:          soldPct,
		ConcentrationPct: concentrationPct,
		TokenBalanceIn:   tokenBalanceIn,
		schedule:         schedule.LoyalSellSchedule(totalSteps, concentrationPct),
	}
}

// ID returns the policy identifier including parameters.
func (p *LoyalPolicy) ID() string {
	return fmt.Sprintf("LOYAL_sold%g_conc%g", p.SoldPct, p.ConcentrationPct)
}

// Weight returns the schedule weight at step, 0 outside the schedule.
func (p *LoyalPolicy) Weight(step int) float64 {
	if step < 0 || step >= len(p.schedule) {
		return 0
	}
	return p.schedule[step]
}

// SellAmount sells between 0.1% and 10% of holdings, scaled by the schedule
// weight and capped at 5x the step's share of the total target.
func (p *LoyalPolicy) SellAmount(step int, _ float64, community domain.CommunityState) float64 {
	w := p.Weight(step)
	if w <= 0 || community.TokensHeld <= 0 || p.SoldPct <= 0 {
		return 0
	}

	totalTarget := p.TokenBalanceIn * (p.SoldPct / 100)
	stepTarget := totalTarget * w
	fraction := clamp(w*100, loyalMinFraction, loyalMaxFraction)

	amount := min(community.TokensHeld*fraction, stepTarget*loyalTargetHeadroom)
	return tradeable(amount)
}

// Ensure LoyalPolicy implements SellPolicy
var _ SellPolicy = (*LoyalPolicy)(nil)
