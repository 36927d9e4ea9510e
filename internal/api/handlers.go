package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lbp-lab/internal/dispatch"
	"lbp-lab/internal/domain"
	"lbp-lab/internal/metrics"
	"lbp-lab/internal/observability"
	"lbp-lab/internal/pricefeed"
	"lbp-lab/internal/stats"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// handleEngine serves full runs and projections.
//
// 200 success response, 422 error response, 409 stale, 504 timeout.
// Error bodies include the last successful response of the kind under "latest".
func (s *Server) handleEngine(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		req, err := domain.DecodeRequest(body, kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}

		resp, err := s.dispatcher.Submit(r.Context(), req)
		switch {
		case errors.Is(err, dispatch.ErrStaleResult):
			writeJSON(w, http.StatusConflict, engineError{Response: resp, Latest: s.dispatcher.Latest(kind)})
		case errors.Is(err, dispatch.ErrTimeout):
			writeJSON(w, http.StatusGatewayTimeout, engineError{Response: resp, Latest: s.dispatcher.Latest(kind)})
		case err != nil:
			// client went away
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case resp.IsError():
			writeJSON(w, http.StatusUnprocessableEntity, engineError{Response: resp, Latest: s.dispatcher.Latest(kind)})
		default:
			writeJSON(w, http.StatusOK, resp)
		}
	}
}

type engineError struct {
	*domain.Response
	Latest *domain.Response `json:"latest,omitempty"`
}

// StatsRequest asks for summary statistics of one snapshot.
// CollateralUSD overrides the cached quote when positive.
type StatsRequest struct {
	Config        domain.PoolConfig   `json:"config"`
	First         domain.StepSnapshot `json:"first"`
	Current       domain.StepSnapshot `json:"current"`
	CollateralUSD float64             `json:"collateralUsd,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	in := StatsRequest{Config: domain.DefaultPoolConfig()}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	rate := in.CollateralUSD
	if rate <= 0 && !in.Config.IsUSDCollateral() && s.quotes != nil {
		if q, err := s.quotes.Latest(in.Config.CollateralToken); err == nil {
			rate = q.USD
		}
	}

	summary, err := stats.Compute(in.Config, in.First, in.Current, rate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if s.quotes == nil {
		writeError(w, http.StatusNotFound, pricefeed.ErrNoQuote.Error())
		return
	}
	q, err := s.quotes.Latest(symbol)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type okBody struct {
	OK bool `json:"ok"`
}

func (s *Server) handleReportDownload(w http.ResponseWriter, r *http.Request) {
	if s.counters == nil {
		writeJSON(w, http.StatusInternalServerError, okBody{OK: false})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.counters.Increment(ctx, domain.CounterReportDownload); err != nil {
		s.logger.Printf("increment %s: %v", domain.CounterReportDownload, err)
		writeJSON(w, http.StatusInternalServerError, okBody{OK: false})
		return
	}
	observability.RecordCounterIncrement(domain.CounterReportDownload)
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

// RequestSummaryResponse is the JSON response for /api/v1/requests/summary.
type RequestSummaryResponse struct {
	From  int64                      `json:"from"`
	To    int64                      `json:"to"`
	Kinds []metrics.RequestAggregate `json:"kinds"`
}

// handleRequestSummary aggregates the request log over ?from=&to= (Unix ms).
// The window defaults to the last 24 hours.
func (s *Server) handleRequestSummary(w http.ResponseWriter, r *http.Request) {
	if s.requests == nil {
		writeError(w, http.StatusServiceUnavailable, "request log is not configured")
		return
	}

	to := time.Now().UnixMilli()
	from := to - (24 * time.Hour).Milliseconds()
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int64
	}{{"from", &from}, {"to", &to}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+p.name)
			return
		}
		*p.dst = v
	}
	if from > to {
		writeError(w, http.StatusBadRequest, "from must not be after to")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	kinds, err := s.requests.Aggregate(ctx, from, to)
	if err != nil {
		s.logger.Printf("request summary: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to aggregate request log")
		return
	}
	if kinds == nil {
		kinds = []metrics.RequestAggregate{}
	}
	writeJSON(w, http.StatusOK, RequestSummaryResponse{From: from, To: to, Kinds: kinds})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string            `json:"status"`
	Uptime        string            `json:"uptime"`
	Started       time.Time         `json:"started"`
	LastRequestID map[string]uint64 `json:"last_request_id"`
	WSStreams     int               `json:"ws_streams"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	streams := s.wsStreams
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "running",
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Started: s.started,
		LastRequestID: map[string]uint64{
			domain.KindRunSimulation: s.dispatcher.LastID(domain.KindRunSimulation),
			domain.KindCalculate:     s.dispatcher.LastID(domain.KindCalculate),
		},
		WSStreams: streams,
	})
}
