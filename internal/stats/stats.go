// Package stats derives USD summary figures from a simulated pool snapshot.
package stats

import (
	"errors"

	"github.com/shopspring/decimal"

	"lbp-lab/internal/domain"
)

// ErrQuoteRequired is returned when the collateral is not USD-denominated and
// no positive collateral/USD rate was supplied.
var ErrQuoteRequired = errors.New("collateral/USD quote required")

// Summary is the host-side statistics panel for one snapshot.
// Prices keep 6 decimals; aggregate USD values are rounded to cents.
type Summary struct {
	StartPriceUSD   decimal.Decimal `json:"startPriceUsd"`
	CurrentPriceUSD decimal.Decimal `json:"currentPriceUsd"`
	TokensForSale   decimal.Decimal `json:"tokensForSale"`
	MarketCapUSD    decimal.Decimal `json:"marketCapUsd"`
	FDVUSD          decimal.Decimal `json:"fdvUsd"`
	TVLUSD          decimal.Decimal `json:"tvlUsd"`
	CollateralUSD   decimal.Decimal `json:"collateralUsd"`
}

// CollateralRate resolves the collateral/USD rate: 1 for USD-like collateral,
// otherwise quote, which must be positive.
func CollateralRate(cfg domain.PoolConfig, quote float64) (decimal.Decimal, error) {
	if cfg.IsUSDCollateral() {
		return decimal.NewFromInt(1), nil
	}
	if quote <= 0 {
		return decimal.Zero, ErrQuoteRequired
	}
	return decimal.NewFromFloat(quote), nil
}

// Compute builds a Summary for current, using first for the start price.
func Compute(cfg domain.PoolConfig, first, current domain.StepSnapshot, quote float64) (Summary, error) {
	rate, err := CollateralRate(cfg, quote)
	if err != nil {
		return Summary{}, err
	}

	startPrice := decimal.NewFromFloat(first.Price).Mul(rate)
	price := decimal.NewFromFloat(current.Price).Mul(rate)
	forSale := decimal.NewFromFloat(cfg.TknBalanceIn)
	supply := decimal.NewFromFloat(cfg.TotalSupply)

	tvl := decimal.NewFromFloat(current.UsdcBalance).
		Add(decimal.NewFromFloat(current.TknBalance).Mul(decimal.NewFromFloat(current.Price))).
		Mul(rate)

	return Summary{
		StartPriceUSD:   startPrice.RoundBank(6),
		CurrentPriceUSD: price.RoundBank(6),
		TokensForSale:   forSale,
		MarketCapUSD:    price.Mul(forSale).RoundBank(2),
		FDVUSD:          price.Mul(supply).RoundBank(2),
		TVLUSD:          tvl.RoundBank(2),
		CollateralUSD:   rate,
	}, nil
}

// FromSnapshots computes the summary at index step of snapshots.
// The step is clamped into range; an empty slice yields a zero Summary.
func FromSnapshots(cfg domain.PoolConfig, snapshots []domain.StepSnapshot, step int, quote float64) (Summary, error) {
	if len(snapshots) == 0 {
		return Summary{}, nil
	}
	if step < 0 {
		step = 0
	}
	if step >= len(snapshots) {
		step = len(snapshots) - 1
	}
	return Compute(cfg, snapshots[0], snapshots[step], quote)
}

// Millions formats v in millions with two decimals, e.g. "1.25M".
func Millions(v decimal.Decimal) string {
	return v.Div(decimal.NewFromInt(1_000_000)).StringFixedBank(2) + "M"
}
