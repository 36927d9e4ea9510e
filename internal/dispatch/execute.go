package dispatch

import (
	"fmt"
	"time"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/simulation"
)

// Execute runs req synchronously and always returns a response.
// Engine errors and panics become error responses; partial results are never returned.
func Execute(req domain.Request) (resp domain.Response) {
	start := time.Now()
	resp = domain.Response{ID: req.ID, Kind: req.Kind}

	defer func() {
		if r := recover(); r != nil {
			resp = errorResponse(req, fmt.Errorf("engine panic: %v", r))
		}
		resp.DurationMs = time.Since(start).Milliseconds()
	}()

	if err := req.Validate(); err != nil {
		return errorResponse(req, err)
	}

	switch req.Kind {
	case domain.KindRunSimulation:
		snapshots, err := simulation.Run(req.Config, req.Demand, req.Sell, req.Steps)
		if err != nil {
			return errorResponse(req, err)
		}
		resp.Type = domain.ResponseSuccess
		resp.Snapshots = snapshots

	case domain.KindCalculate:
		scenarios := req.Scenarios
		if len(scenarios) == 0 {
			scenarios = simulation.DefaultScenarios
		}
		paths, err := simulation.Project(req.Config, req.Demand, req.Sell, req.Steps, scenarios, req.CurrentStep, req.Checkpoint)
		if err != nil {
			return errorResponse(req, err)
		}
		resp.Type = domain.ResponseSuccess
		resp.Paths = paths
	}

	return resp
}

func errorResponse(req domain.Request, err error) domain.Response {
	return domain.Response{
		ID:    req.ID,
		Kind:  req.Kind,
		Type:  domain.ResponseError,
		Error: err.Error(),
	}
}
