package idhash

import (
	"crypto/sha256"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"lbp-lab/internal/domain"
)

// ComputeConfigKey computes a deterministic key for the inputs of a request.
// Formula: SHA256(kind|pool|demand|sell|steps[|scenarios|current_step|checkpoint])
// Returns the base58-encoded hash. The request ID is not part of the key, so
// two requests with identical inputs share a key.
func ComputeConfigKey(req domain.Request) string {
	c := req.Config
	d := req.Demand
	s := req.Sell

	parts := []string{
		req.Kind,
		c.CollateralToken,
		num(c.TotalSupply),
		num(c.TknBalanceIn), num(c.TknWeightIn),
		num(c.UsdcBalanceIn), num(c.UsdcWeightIn),
		num(c.TknWeightOut), num(c.UsdcWeightOut),
		num(c.Duration), num(c.SwapFee),
		d.Preset, num(d.MagnitudeBase), num(d.Multiplier),
		s.Preset,
		num(s.LoyalSoldPct), num(s.LoyalConcentrationPct),
		num(s.GreedySpreadPct), num(s.GreedySellPct),
		strconv.Itoa(req.Steps),
	}

	if req.Kind == domain.KindCalculate {
		scenarios := make([]string, len(req.Scenarios))
		for i, m := range req.Scenarios {
			scenarios[i] = num(m)
		}
		parts = append(parts, strings.Join(scenarios, ","), strconv.Itoa(req.CurrentStep))

		if cp := req.Checkpoint; cp != nil {
			parts = append(parts,
				num(cp.TknBalance), num(cp.UsdcBalance),
				num(cp.CommunityTokensHeld), num(cp.CommunityAvgCost))
		} else {
			parts = append(parts, "-")
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return base58.Encode(hash[:])
}

// num formats a float with the shortest exact representation.
func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
