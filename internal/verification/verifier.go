// Package verification replays engine requests and checks that stored results
// match the replay and that projections continue the run they branch from.
package verification

import (
	"fmt"
	"math"

	"lbp-lab/internal/domain"
)

// FloatTolerance is the relative tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Step     int     // snapshot index or path position
	Field    string  // field name, or "path[i]" for projections
	Expected float64 // stored value
	Actual   float64 // replayed value
}

func (d FieldDivergence) String() string {
	return fmt.Sprintf("step %d %s: expected %.10g, got %.10g", d.Step, d.Field, d.Expected, d.Actual)
}

// Result contains the outcome of one verification.
type Result struct {
	Kind        string
	Check       string // replay | continuity
	Match       bool
	Compared    int // values compared
	Divergences []FieldDivergence
}

// CompareSnapshots compares two snapshot sequences field by field.
// A length mismatch is reported as a divergence on "len" at step -1.
func CompareSnapshots(stored, replayed []domain.StepSnapshot) ([]FieldDivergence, int) {
	var divergences []FieldDivergence
	compared := 0

	if len(stored) != len(replayed) {
		divergences = append(divergences, FieldDivergence{
			Step:     -1,
			Field:    "len",
			Expected: float64(len(stored)),
			Actual:   float64(len(replayed)),
		})
	}

	n := min(len(stored), len(replayed))
	for i := 0; i < n; i++ {
		s, r := stored[i], replayed[i]
		if s.Index != r.Index {
			divergences = append(divergences, FieldDivergence{i, "Index", float64(s.Index), float64(r.Index)})
		}
		fields := []struct {
			name string
			a, b float64
		}{
			{"Time", s.Time, r.Time},
			{"Price", s.Price, r.Price},
			{"TknBalance", s.TknBalance, r.TknBalance},
			{"UsdcBalance", s.UsdcBalance, r.UsdcBalance},
			{"TknWeight", s.TknWeight, r.TknWeight},
			{"UsdcWeight", s.UsdcWeight, r.UsdcWeight},
			{"TVLUSD", s.TVLUSD, r.TVLUSD},
			{"CommunityTokensHeld", s.CommunityTokensHeld, r.CommunityTokensHeld},
			{"CommunityAvgCost", s.CommunityAvgCost, r.CommunityAvgCost},
			{"BuyVolumeUSDC", s.BuyVolumeUSDC, r.BuyVolumeUSDC},
			{"BuyVolumeTKN", s.BuyVolumeTKN, r.BuyVolumeTKN},
			{"SellVolumeUSDC", s.SellVolumeUSDC, r.SellVolumeUSDC},
			{"SellVolumeTKN", s.SellVolumeTKN, r.SellVolumeTKN},
		}
		for _, f := range fields {
			compared++
			if !floatEquals(f.a, f.b) {
				divergences = append(divergences, FieldDivergence{i, f.name, f.a, f.b})
			}
		}
	}
	return divergences, compared
}

// ComparePaths compares projected price paths position by position.
func ComparePaths(stored, replayed [][]float64) ([]FieldDivergence, int) {
	var divergences []FieldDivergence
	compared := 0

	if len(stored) != len(replayed) {
		divergences = append(divergences, FieldDivergence{
			Step:     -1,
			Field:    "paths",
			Expected: float64(len(stored)),
			Actual:   float64(len(replayed)),
		})
	}

	for p := 0; p < min(len(stored), len(replayed)); p++ {
		field := fmt.Sprintf("path[%d]", p)
		if len(stored[p]) != len(replayed[p]) {
			divergences = append(divergences, FieldDivergence{-1, field + ".len", float64(len(stored[p])), float64(len(replayed[p]))})
		}
		for i := 0; i < min(len(stored[p]), len(replayed[p])); i++ {
			compared++
			if !floatEquals(stored[p][i], replayed[p][i]) {
				divergences = append(divergences, FieldDivergence{i, field, stored[p][i], replayed[p][i]})
			}
		}
	}
	return divergences, compared
}

// floatEquals compares two float64 values within FloatTolerance, relative to
// the larger magnitude (absolute below 1).
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= FloatTolerance*scale
}
