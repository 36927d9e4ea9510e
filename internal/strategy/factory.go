package strategy

import (
	"errors"
	"fmt"

	"lbp-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownSellPreset = errors.New("unknown sell pressure preset")
)

// FromConfig creates a SellPolicy from a SellPressureConfig.
// An empty preset means no selling. tokenBalanceIn is the pool's initial token
// balance; totalSteps sizes the loyal schedule.
func FromConfig(cfg domain.SellPressureConfig, tokenBalanceIn float64, totalSteps int) (SellPolicy, error) {
	switch cfg.Preset {
	case domain.SellPresetLoyal:
		return NewLoyalPolicy(cfg.LoyalSoldPct, cfg.LoyalConcentrationPct, tokenBalanceIn, totalSteps), nil
	case domain.SellPresetGreedy:
		return NewGreedyPolicy(cfg.GreedySpreadPct, cfg.GreedySellPct, tokenBalanceIn), nil
	case domain.SellPresetNone, "":
		return NonePolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSellPreset, cfg.Preset)
	}
}
