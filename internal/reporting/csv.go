package reporting

import (
	"fmt"
	"strings"

	"lbp-lab/internal/domain"
)

// RenderSnapshotsCSV renders a snapshot sequence as CSV string.
func RenderSnapshotsCSV(snaps []domain.StepSnapshot) string {
	var sb strings.Builder

	// Header
	sb.WriteString("step,time_h,time_label,price,tkn_balance,usdc_balance,tkn_weight,usdc_weight,tvl_usd,")
	sb.WriteString("community_tokens_held,community_avg_cost,")
	sb.WriteString("buy_volume_usdc,buy_volume_tkn,sell_volume_usdc,sell_volume_tkn\n")

	// Rows
	for _, s := range snaps {
		sb.WriteString(fmt.Sprintf("%d,%.4f,%s,%.8f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.8f,%.6f,%.6f,%.6f,%.6f\n",
			s.Index,
			s.Time,
			s.TimeLabel,
			s.Price,
			s.TknBalance,
			s.UsdcBalance,
			s.TknWeight,
			s.UsdcWeight,
			s.TVLUSD,
			s.CommunityTokensHeld,
			s.CommunityAvgCost,
			s.BuyVolumeUSDC,
			s.BuyVolumeTKN,
			s.SellVolumeUSDC,
			s.SellVolumeTKN,
		))
	}

	return sb.String()
}

// RenderPathsCSV renders projected paths as CSV string, one row per step and
// one price column per scenario. fromStep labels the first row.
func RenderPathsCSV(paths [][]float64, scenarios []float64, fromStep int) string {
	var sb strings.Builder

	// Header
	sb.WriteString("step")
	for i := range paths {
		sb.WriteString(",")
		sb.WriteString(scenarioLabel(scenarios, i))
	}
	sb.WriteString("\n")

	rows := 0
	for _, p := range paths {
		if len(p) > rows {
			rows = len(p)
		}
	}

	// Rows
	for r := 0; r < rows; r++ {
		sb.WriteString(fmt.Sprintf("%d", fromStep+r))
		for _, p := range paths {
			sb.WriteString(",")
			if r < len(p) {
				sb.WriteString(fmt.Sprintf("%.8f", p[r]))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func scenarioLabel(scenarios []float64, i int) string {
	if i < len(scenarios) {
		return fmt.Sprintf("x%g", scenarios[i])
	}
	return fmt.Sprintf("scenario_%d", i)
}
