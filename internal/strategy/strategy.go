package strategy

import "lbp-lab/internal/domain"

// MinTradeTokens is the smallest community sell that is executed.
// Anything below it is dust and is skipped.
const MinTradeTokens = 1.0

// SellPolicy decides how many tokens the community sells at a step.
type SellPolicy interface {
	// SellAmount returns the token amount to sell at step, after the step's
	// buy leg moved the price to priceAfterBuys. Returns 0 for no sell.
	// Implementations are pure: the same inputs always give the same output.
	SellAmount(step int, priceAfterBuys float64, community domain.CommunityState) float64

	// ID returns the policy identifier (includes parameters).
	ID() string
}
