package reporting

import (
	"fmt"
	"strings"
	"time"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/stats"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	name := r.Config.TokenName
	if name == "" {
		name = r.Config.TokenSymbol
	}
	sb.WriteString(fmt.Sprintf("# LBP Simulation Report: %s\n\n", name))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Kind: %s | Steps: %d\n\n", r.Kind, r.Steps))

	// Configuration
	sb.WriteString("## Configuration\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Token | %s (%s) |\n", r.Config.TokenName, r.Config.TokenSymbol))
	sb.WriteString(fmt.Sprintf("| Collateral | %s |\n", r.Config.CollateralToken))
	sb.WriteString(fmt.Sprintf("| Total Supply | %.0f |\n", r.Config.TotalSupply))
	sb.WriteString(fmt.Sprintf("| Token Balance | %.2f |\n", r.Config.TknBalanceIn))
	sb.WriteString(fmt.Sprintf("| Collateral Balance | %.2f |\n", r.Config.UsdcBalanceIn))
	sb.WriteString(fmt.Sprintf("| Token Weight | %g → %g |\n", r.Config.TknWeightIn, r.Config.TknWeightOut))
	sb.WriteString(fmt.Sprintf("| Collateral Weight | %g → %g |\n", r.Config.UsdcWeightIn, r.Config.UsdcWeightOut))
	sb.WriteString(fmt.Sprintf("| Duration (h) | %g |\n", r.Config.Duration))
	sb.WriteString(fmt.Sprintf("| Swap Fee | %g |\n", r.Config.SwapFee))
	sb.WriteString(fmt.Sprintf("| Demand | %s, base %g, x%g |\n", r.Demand.Preset, r.Demand.MagnitudeBase, r.Demand.Multiplier))
	sb.WriteString(fmt.Sprintf("| Sell Pressure | %s |\n", sellLabel(r)))
	sb.WriteString("\n")

	// Run summary
	if r.Run != nil {
		sb.WriteString("## Run Summary\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Start Price | %.6f |\n", r.Run.StartPrice))
		sb.WriteString(fmt.Sprintf("| Final Price | %.6f |\n", r.Run.FinalPrice))
		sb.WriteString(fmt.Sprintf("| Min Price | %.6f (step %d) |\n", r.Run.MinPrice, r.Run.MinPriceStep))
		sb.WriteString(fmt.Sprintf("| Max Price | %.6f |\n", r.Run.MaxPrice))
		sb.WriteString(fmt.Sprintf("| Tokens Sold (net) | %.2f |\n", r.Run.FinalTknSold))
		sb.WriteString(fmt.Sprintf("| Collateral Raised (net) | %.2f |\n", r.Run.FinalUsdcRaise))
		sb.WriteString(fmt.Sprintf("| Buy Volume | %.2f collateral / %.2f tokens |\n", r.Run.TotalBuyUSDC, r.Run.TotalBuyTKN))
		sb.WriteString(fmt.Sprintf("| Sell Volume | %.2f collateral / %.2f tokens |\n", r.Run.TotalSellUSDC, r.Run.TotalSellTKN))
		sb.WriteString(fmt.Sprintf("| Price Mean / Stddev | %.6f / %.6f |\n", r.Run.Price.Mean, r.Run.Price.Stddev))
		sb.WriteString(fmt.Sprintf("| Price P10 / Median / P90 | %.6f / %.6f / %.6f |\n", r.Run.Price.P10, r.Run.Price.Median, r.Run.Price.P90))
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f%% |\n", r.Run.Price.MaxDrawdownPct))
		sb.WriteString("\n")
	}

	// USD stats
	if r.Stats != nil {
		writeStats(&sb, r.Stats)
	}

	// Projection
	if len(r.Paths) > 0 {
		sb.WriteString("## Price Paths\n\n")
		sb.WriteString(fmt.Sprintf("Projected from step %d.\n\n", r.FromStep))
		sb.WriteString("| Demand x | Start | End | Min | Max | Change % | Max Drawdown % |\n")
		sb.WriteString("|----------|-------|-----|-----|-----|----------|----------------|\n")
		for _, p := range r.Paths {
			sb.WriteString(fmt.Sprintf("| %g | %.6f | %.6f | %.6f | %.6f | %.2f | %.2f |\n",
				p.Multiplier, p.StartPrice, p.EndPrice, p.MinPrice, p.MaxPrice, p.ChangePct, p.MaxDrawdownPct))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeStats(sb *strings.Builder, s *stats.Summary) {
	sb.WriteString("## Market Statistics (USD)\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Collateral/USD | %s |\n", s.CollateralUSD))
	sb.WriteString(fmt.Sprintf("| Start Price | $%s |\n", s.StartPriceUSD))
	sb.WriteString(fmt.Sprintf("| Current Price | $%s |\n", s.CurrentPriceUSD))
	sb.WriteString(fmt.Sprintf("| Implied Market Cap | $%s |\n", stats.Millions(s.MarketCapUSD)))
	sb.WriteString(fmt.Sprintf("| FDV | $%s |\n", stats.Millions(s.FDVUSD)))
	sb.WriteString(fmt.Sprintf("| TVL | $%s |\n", stats.Millions(s.TVLUSD)))
	sb.WriteString("\n")
}

func sellLabel(r *Report) string {
	switch r.Sell.Preset {
	case domain.SellPresetLoyal:
		return fmt.Sprintf("loyal, %g%% sold, %g%% concentration", r.Sell.LoyalSoldPct, r.Sell.LoyalConcentrationPct)
	case domain.SellPresetGreedy:
		return fmt.Sprintf("greedy, %g%% spread, %g%% sell", r.Sell.GreedySpreadPct, r.Sell.GreedySellPct)
	case "", domain.SellPresetNone:
		return "none"
	default:
		return r.Sell.Preset
	}
}
