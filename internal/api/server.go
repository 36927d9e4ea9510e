// Package api exposes the dispatcher over HTTP (JSON) and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"lbp-lab/internal/dispatch"
	"lbp-lab/internal/domain"
	"lbp-lab/internal/metrics"
	"lbp-lab/internal/observability"
	"lbp-lab/internal/storage"
)

// QuoteSource returns the cached collateral/USD quote for a symbol.
type QuoteSource interface {
	Latest(symbol string) (domain.Quote, error)
}

// Options for creating a Server.
type Options struct {
	Addr string

	// Dispatch configures the shared HTTP dispatcher and the per-connection
	// WebSocket dispatchers.
	Dispatch dispatch.Options

	Counters storage.CounterStore // required for /api/v1/analytics/*
	Quotes   QuoteSource          // optional; stats then require an explicit rate
	Logger   *log.Logger

	// RequestLogs backs /api/v1/requests/summary. Defaults to Dispatch.RequestLogStore.
	RequestLogs storage.RequestLogStore
}

// Server serves the HTTP and WebSocket API.
type Server struct {
	dispatcher *dispatch.Dispatcher
	dispatchOp dispatch.Options
	counters   storage.CounterStore
	requests   *metrics.Aggregator
	quotes     QuoteSource
	logger     *log.Logger
	router     *mux.Router
	http       *http.Server
	started    time.Time

	mu        sync.Mutex
	wsStreams int
}

// NewServer creates a Server and registers its routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.Dispatch.Logger == nil {
		opts.Dispatch.Logger = logger
	}

	logs := opts.RequestLogs
	if logs == nil {
		logs = opts.Dispatch.RequestLogStore
	}

	s := &Server{
		dispatcher: dispatch.New(opts.Dispatch),
		dispatchOp: opts.Dispatch,
		counters:   opts.Counters,
		quotes:     opts.Quotes,
		logger:     logger,
		started:    time.Now(),
	}

	if logs != nil {
		s.requests = metrics.NewAggregator(logs)
	}

	r := mux.NewRouter()

	// Engine endpoints
	r.HandleFunc("/api/v1/simulations", s.handleEngine(domain.KindRunSimulation)).Methods("POST")
	r.HandleFunc("/api/v1/price-paths", s.handleEngine(domain.KindCalculate)).Methods("POST")
	r.HandleFunc("/api/v1/stats", s.handleStats).Methods("POST")
	r.HandleFunc("/api/v1/quote", s.handleQuote).Methods("GET")

	// Analytics
	r.HandleFunc("/api/v1/analytics/report-download", s.handleReportDownload).Methods("POST")
	r.HandleFunc("/api/v1/requests/summary", s.handleRequestSummary).Methods("GET")

	// Streaming
	r.HandleFunc("/ws", s.handleWS).Methods("GET")

	// Operations
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/status", s.handleStatus).Methods("GET")
	r.Handle("/metrics", observability.Handler()).Methods("GET")

	s.router = r
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Dispatcher returns the shared HTTP dispatcher.
func (s *Server) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

// Start listens until Stop is called.
func (s *Server) Start() error {
	s.logger.Printf("Starting HTTP server on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
