package strategy

import (
	"fmt"

	"lbp-lab/internal/domain"
)

// Greedy fallback parameters.
const (
	// greedyUnwindShare is the share of the initial token balance above which
	// holdings are unwound even when unprofitable.
	greedyUnwindShare = 0.02
	// greedyUnwindMaxFraction caps the unwind sell per step.
	greedyUnwindMaxFraction = 0.05
)

// GreedyPolicy takes profit when the price clears the cost basis by SpreadPct,
// and otherwise slowly unwinds large positions.
type GreedyPolicy struct {
	SpreadPct      float64
	SellPct        float64
	TokenBalanceIn float64
}

// NewGreedyPolicy creates a GreedyPolicy.
func NewGreedyPolicy(spreadPct, sellPct, tokenBalanceIn float64) *GreedyPolicy {
	return &GreedyPolicy{
		SpreadPct:      spreadPct,
		SellPct:        sellPct,
		TokenBalanceIn: tokenBalanceIn,
	}
}

// ID returns the policy identifier including parameters.
func (p *GreedyPolicy) ID() string {
	return fmt.Sprintf("GREEDY_spread%g_sell%g", p.SpreadPct, p.SellPct)
}

// Threshold returns the price at which a position with avgCost is sold.
func (p *GreedyPolicy) Threshold(avgCost float64) float64 {
	return avgCost * (1 + p.SpreadPct/100)
}

// SellAmount returns SellPct of holdings when priceAfterBuys reaches the
// profit threshold. Without profit, holdings above 2% of the initial token
// balance are sold at min(5%, SellPct) per step.
// The profit check only applies once a cost basis exists.
func (p *GreedyPolicy) SellAmount(_ int, priceAfterBuys float64, community domain.CommunityState) float64 {
	if community.TokensHeld <= 0 {
		return 0
	}

	fraction := 0.0
	profitable := false
	if community.AvgCost > 0 && priceAfterBuys >= p.Threshold(community.AvgCost) {
		profitable = true
		fraction = min(1, p.SellPct/100)
	}
	if !profitable && community.TokensHeld > p.TokenBalanceIn*greedyUnwindShare {
		fraction = min(greedyUnwindMaxFraction, p.SellPct/100)
	}
	if fraction <= 0 {
		return 0
	}

	return tradeable(community.TokensHeld * fraction)
}

// Ensure GreedyPolicy implements SellPolicy
var _ SellPolicy = (*GreedyPolicy)(nil)
