package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Request kinds.
const (
	KindRunSimulation = "run-simulation"
	KindCalculate     = "calculate"
)

// Response types.
const (
	ResponseSuccess = "success"
	ResponseError   = "error"
)

// ErrUnknownKind is returned for a request kind the engine does not serve.
var ErrUnknownKind = errors.New("unknown request kind")

// Request asks for a full run (KindRunSimulation) or a checkpoint projection
// (KindCalculate). ID is assigned by the dispatcher.
type Request struct {
	ID     uint64               `json:"id"`
	Kind   string               `json:"kind"`
	Config PoolConfig           `json:"config"`
	Demand DemandPressureConfig `json:"demandPressureConfig"`
	Sell   SellPressureConfig   `json:"sellPressureConfig"`
	Steps  int                  `json:"steps"`

	// Projection only.
	Scenarios   []float64        `json:"scenarios,omitempty"`
	CurrentStep int              `json:"currentStep,omitempty"`
	Checkpoint  *CheckpointState `json:"currentStepState,omitempty"`
}

// NewRequest returns a request of kind with default configuration.
// Callers decode JSON over it so omitted fields keep their defaults.
func NewRequest(kind string) Request {
	return Request{
		Kind:   kind,
		Config: DefaultPoolConfig(),
		Demand: DefaultDemandPressureConfig(),
		Sell:   DefaultSellPressureConfig(),
		Steps:  DefaultSteps,
	}
}

// DecodeRequest decodes data over NewRequest(kind) so omitted fields keep
// their defaults. An empty kind is taken from the "kind" field of data.
func DecodeRequest(data []byte, kind string) (Request, error) {
	data = bytes.TrimSpace(data)
	if kind == "" && len(data) > 0 {
		var env struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return Request{}, err
		}
		kind = env.Kind
	}
	req := NewRequest(kind)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return Request{}, err
		}
	}
	req.Kind = kind
	return req, nil
}

// DefaultSteps is the step count used when a request omits it.
const DefaultSteps = 100

// Validate checks the request before it is dispatched.
func (r Request) Validate() error {
	switch r.Kind {
	case KindRunSimulation, KindCalculate:
	default:
		return ErrUnknownKind
	}
	if err := r.Config.Validate(); err != nil {
		return err
	}
	return r.Demand.Validate()
}

// Response carries either the result of a request or its error.
// Exactly one of Snapshots/Paths is set on success.
type Response struct {
	ID         uint64         `json:"id"`
	Kind       string         `json:"kind"`
	Type       string         `json:"type"`
	Snapshots  []StepSnapshot `json:"snapshots,omitempty"`
	Paths      [][]float64    `json:"paths,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"durationMs"`
}

// IsError reports whether the response carries an error.
func (r *Response) IsError() bool {
	return r.Type == ResponseError
}

// RequestLog is the telemetry row written for each dispatched request.
// It carries no simulation output.
type RequestLog struct {
	RequestID   uint64 // dispatcher id, unique per kind and process
	Kind        string // run-simulation | calculate
	ConfigKey   string // base58 configuration fingerprint
	Steps       int
	Scenarios   int    // number of projected scenarios
	Status      string // success | error | timeout | stale
	DurationMs  int64
	ErrorMsg    string
	RequestedAt int64 // Unix timestamp in milliseconds
}

// Request log statuses beyond ResponseSuccess / ResponseError.
const (
	StatusTimeout = "timeout"
	StatusStale   = "stale"
)
