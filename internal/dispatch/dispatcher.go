// Package dispatch serves engine requests to the hosts (HTTP, WebSocket, queue).
// Each kind has its own monotonically increasing request id; only the
// response to the latest id of a kind is delivered.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/idhash"
	"lbp-lab/internal/observability"
	"lbp-lab/internal/simulation"
	"lbp-lab/internal/storage"
)

// DefaultTimeout bounds how long Submit waits for a result.
const DefaultTimeout = 30 * time.Second

var (
	// ErrTimeout is returned when a request does not finish within the timeout.
	ErrTimeout = errors.New("computation timeout")

	// ErrStaleResult is returned when a newer request of the same kind was
	// submitted before this one finished. The result must be discarded.
	ErrStaleResult = errors.New("stale result")
)

// ExecFunc computes the response for a request.
type ExecFunc func(domain.Request) domain.Response

// Options for creating a Dispatcher.
type Options struct {
	RequestLogStore storage.RequestLogStore // optional telemetry sink
	Timeout         time.Duration           // DefaultTimeout if zero
	Logger          *log.Logger

	// Exec overrides the engine call. Execute if nil.
	Exec ExecFunc
}

type kindState struct {
	lastID    uint64
	latest    *domain.Response // last successful response
	latestKey string           // config key of latest
}

// Dispatcher assigns request ids, runs requests off the caller's goroutine
// and drops stale results.
type Dispatcher struct {
	logs    storage.RequestLogStore
	timeout time.Duration
	logger  *log.Logger
	exec    ExecFunc
	now     func() time.Time

	mu    sync.Mutex
	kinds map[string]*kindState
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		logs:    opts.RequestLogStore,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		exec:    opts.Exec,
		now:     time.Now,
		kinds:   make(map[string]*kindState),
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.logger == nil {
		d.logger = log.New(io.Discard, "", 0)
	}
	if d.exec == nil {
		d.exec = Execute
	}
	return d
}

// Submit assigns req the next id of its kind and waits for the result.
//
// Returns the response (success or error type) and a nil error, or one of
// ErrTimeout, ErrStaleResult and ctx.Err(). With ErrTimeout the response is an
// error response carrying the id; with ErrStaleResult it carries only the id
// and kind. A request whose configuration key equals the latest successful one
// of its kind is answered from cache under the new id.
func (d *Dispatcher) Submit(ctx context.Context, req domain.Request) (*domain.Response, error) {
	requestedAt := d.now()
	key := idhash.ComputeConfigKey(req)

	d.mu.Lock()
	st := d.state(req.Kind)
	st.lastID++
	req.ID = st.lastID
	if st.latest != nil && st.latestKey == key {
		cached := *st.latest
		cached.ID = req.ID
		cached.DurationMs = 0
		d.mu.Unlock()
		d.record(ctx, req, key, requestedAt, cached.Type, "")
		return &cached, nil
	}
	d.mu.Unlock()

	done := observability.RequestStarted()
	defer done()

	result := make(chan domain.Response, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- errorResponse(req, fmt.Errorf("engine panic: %v", r))
			}
		}()
		result <- d.exec(req)
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	var resp domain.Response
	select {
	case resp = <-result:
	case <-timer.C:
		d.logger.Printf("%s #%d: %v after %s", req.Kind, req.ID, ErrTimeout, d.timeout)
		d.record(ctx, req, key, requestedAt, domain.StatusTimeout, ErrTimeout.Error())
		timeout := errorResponse(req, ErrTimeout)
		return &timeout, ErrTimeout
	case <-ctx.Done():
		return &domain.Response{ID: req.ID, Kind: req.Kind}, ctx.Err()
	}
	resp.ID = req.ID
	resp.Kind = req.Kind

	d.mu.Lock()
	if st.lastID != req.ID {
		d.mu.Unlock()
		d.record(ctx, req, key, requestedAt, domain.StatusStale, "")
		return &domain.Response{ID: req.ID, Kind: req.Kind}, ErrStaleResult
	}
	if !resp.IsError() {
		cp := resp
		st.latest = &cp
		st.latestKey = key
	}
	d.mu.Unlock()

	if resp.IsError() {
		d.logger.Printf("%s #%d failed: %s", req.Kind, req.ID, resp.Error)
	} else {
		observability.RecordSnapshots(len(resp.Snapshots))
		observability.RecordPaths(len(resp.Paths))
		observability.RecordSuccessfulRun(d.now().Unix())
	}
	d.record(ctx, req, key, requestedAt, resp.Type, resp.Error)
	return &resp, nil
}

// Latest returns the last successful response of kind, or nil.
// Hosts show it while a newer request fails.
func (d *Dispatcher) Latest(kind string) *domain.Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.kinds[kind]
	if !ok || st.latest == nil {
		return nil
	}
	cp := *st.latest
	return &cp
}

// LastID returns the last id issued for kind.
func (d *Dispatcher) LastID(kind string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.kinds[kind]; ok {
		return st.lastID
	}
	return 0
}

func (d *Dispatcher) state(kind string) *kindState {
	st, ok := d.kinds[kind]
	if !ok {
		st = &kindState{}
		d.kinds[kind] = st
	}
	return st
}

// record writes metrics and the telemetry row. Store failures are logged only.
func (d *Dispatcher) record(ctx context.Context, req domain.Request, key string, requestedAt time.Time, status, errMsg string) {
	elapsed := d.now().Sub(requestedAt)
	observability.RecordRequest(req.Kind, status, elapsed.Seconds())

	if d.logs == nil {
		return
	}
	scenarios := 0
	if req.Kind == domain.KindCalculate {
		scenarios = len(req.Scenarios)
		if scenarios == 0 {
			scenarios = len(simulation.DefaultScenarios)
		}
	}
	entry := &domain.RequestLog{
		RequestID:   req.ID,
		Kind:        req.Kind,
		ConfigKey:   key,
		Steps:       req.Steps,
		Scenarios:   scenarios,
		Status:      status,
		DurationMs:  elapsed.Milliseconds(),
		ErrorMsg:    errMsg,
		RequestedAt: requestedAt.UnixMilli(),
	}
	if err := d.logs.Insert(context.WithoutCancel(ctx), entry); err != nil {
		d.logger.Printf("request log %s #%d: %v", req.Kind, req.ID, err)
	}
}
