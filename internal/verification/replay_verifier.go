package verification

import (
	"errors"
	"fmt"

	"lbp-lab/internal/dispatch"
	"lbp-lab/internal/domain"
)

var (
	// ErrNothingToVerify is returned for a stored response with no result.
	ErrNothingToVerify = errors.New("stored response has no result to verify")

	// ErrReplayFailed is returned when the replayed request yields an error response.
	ErrReplayFailed = errors.New("replay failed")
)

// ReplayVerifier re-executes requests and compares the outcome.
type ReplayVerifier struct {
	exec dispatch.ExecFunc
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	Exec dispatch.ExecFunc // defaults to dispatch.Execute
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	exec := opts.Exec
	if exec == nil {
		exec = dispatch.Execute
	}
	return &ReplayVerifier{exec: exec}
}

// Verify replays req and compares the result with stored.
func (v *ReplayVerifier) Verify(req domain.Request, stored *domain.Response) (*Result, error) {
	if stored == nil || stored.IsError() || (len(stored.Snapshots) == 0 && len(stored.Paths) == 0) {
		return nil, ErrNothingToVerify
	}

	replayed, err := v.replay(req)
	if err != nil {
		return nil, err
	}

	res := &Result{Kind: req.Kind, Check: "replay"}
	if len(stored.Snapshots) > 0 {
		res.Divergences, res.Compared = CompareSnapshots(stored.Snapshots, replayed.Snapshots)
	} else {
		res.Divergences, res.Compared = ComparePaths(stored.Paths, replayed.Paths)
	}
	res.Match = len(res.Divergences) == 0
	return res, nil
}

// VerifyContinuity runs req as a full simulation and checks, for each step in
// fromSteps, that a baseline projection from the snapshot at that step
// reproduces the run's remaining prices. Steps outside [0, steps] are skipped.
func (v *ReplayVerifier) VerifyContinuity(req domain.Request, fromSteps []int) (*Result, error) {
	runReq := req
	runReq.Kind = domain.KindRunSimulation
	run, err := v.replay(runReq)
	if err != nil {
		return nil, err
	}
	snaps := run.Snapshots

	res := &Result{Kind: domain.KindCalculate, Check: "continuity"}
	for _, from := range fromSteps {
		if from < 0 || from >= len(snaps) {
			continue
		}
		cp := snaps[from].Checkpoint()
		projReq := req
		projReq.Kind = domain.KindCalculate
		projReq.Scenarios = []float64{1}
		projReq.CurrentStep = from
		projReq.Checkpoint = &cp

		proj, err := v.replay(projReq)
		if err != nil {
			return nil, err
		}

		want := make([]float64, 0, len(snaps)-from)
		for _, s := range snaps[from:] {
			want = append(want, s.Price)
		}
		divs, n := ComparePaths([][]float64{want}, proj.Paths)
		for i := range divs {
			if divs[i].Step >= 0 {
				divs[i].Step += from
			}
			divs[i].Field = fmt.Sprintf("from[%d]", from)
		}
		res.Divergences = append(res.Divergences, divs...)
		res.Compared += n
	}
	res.Match = len(res.Divergences) == 0
	return res, nil
}

func (v *ReplayVerifier) replay(req domain.Request) (domain.Response, error) {
	resp := v.exec(req)
	if resp.IsError() {
		return resp, fmt.Errorf("%w: %s", ErrReplayFailed, resp.Error)
	}
	return resp, nil
}
