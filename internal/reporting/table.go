package reporting

import (
	"fmt"
	"io"
	"text/tabwriter"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/orchestrator"
)

// WriteSnapshotTable writes snapshots as an aligned text table, one row every
// `every` steps plus the last step.
func WriteSnapshotTable(w io.Writer, snaps []domain.StepSnapshot, every int) error {
	if every < 1 {
		every = 1
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "step\ttime\tprice\ttkn\tcollateral\tw_tkn\tbuy\tsell\theld\t")
	for i, s := range snaps {
		if i%every != 0 && i != len(snaps)-1 {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%.6f\t%.0f\t%.0f\t%.2f\t%.0f\t%.0f\t%.0f\t\n",
			s.Index, s.TimeLabel, s.Price, s.TknBalance, s.UsdcBalance, s.TknWeight,
			s.BuyVolumeUSDC, s.SellVolumeTKN, s.CommunityTokensHeld)
	}
	return tw.Flush()
}

// WritePathTable writes one row per step with a price column per scenario.
func WritePathTable(w io.Writer, paths [][]float64, scenarios []float64, fromStep, every int) error {
	if every < 1 {
		every = 1
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "step\t")
	for i := range paths {
		fmt.Fprintf(tw, "%s\t", scenarioLabel(scenarios, i))
	}
	fmt.Fprintln(tw)

	rows := 0
	for _, p := range paths {
		if len(p) > rows {
			rows = len(p)
		}
	}
	for r := 0; r < rows; r++ {
		if r%every != 0 && r != rows-1 {
			continue
		}
		fmt.Fprintf(tw, "%d\t", fromStep+r)
		for _, p := range paths {
			if r < len(p) {
				fmt.Fprintf(tw, "%.6f\t", p[r])
			} else {
				fmt.Fprint(tw, "\t")
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// WriteSweepTable writes one row per sweep variant in the given order.
func WriteSweepTable(w io.Writer, rows []orchestrator.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "demand\tx\tsell\tfinal\tmin\tmax_dd%\traised\tsold\t")
	for _, r := range rows {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\t%g\t%s\t\t\t\t\t\t%s\n", r.DemandPreset, r.Multiplier, r.SellPreset, r.Error)
			continue
		}
		sell := r.SellPreset
		if r.PolicyID != "" {
			sell = r.PolicyID
		}
		fmt.Fprintf(tw, "%s\t%g\t%s\t%.6f\t%.6f\t%.2f\t%.0f\t%.0f\t\n",
			r.DemandPreset, r.Multiplier, sell, r.FinalPrice, r.MinPrice, r.Price.MaxDrawdownPct,
			r.CollateralRaised, r.TknSold)
	}
	return tw.Flush()
}
