package pricefeed

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"lbp-lab/internal/domain"
	"lbp-lab/internal/observability"
)

// DefaultSchedule refreshes quotes once a minute.
const DefaultSchedule = "@every 1m"

// ErrNoQuote is returned by Latest before the first successful fetch.
var ErrNoQuote = errors.New("no quote available")

// Fetcher fetches a single quote.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (domain.Quote, error)
}

// RefresherOptions configures a Refresher.
type RefresherOptions struct {
	Symbols  []string      // collateral symbols to track, e.g. ETH
	Schedule string        // cron spec, DefaultSchedule if empty
	Timeout  time.Duration // per refresh, DefaultTimeout if zero
	Logger   *log.Logger
}

// Refresher keeps the last good quote per symbol. A failed fetch leaves the
// previous quote in place.
type Refresher struct {
	fetcher Fetcher
	opts    RefresherOptions
	logger  *log.Logger
	cron    *cron.Cron

	mu     sync.RWMutex
	quotes map[string]domain.Quote
}

// NewRefresher creates a Refresher. Call Start to begin the schedule.
func NewRefresher(fetcher Fetcher, opts RefresherOptions) *Refresher {
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Refresher{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
		cron:    cron.New(),
		quotes:  make(map[string]domain.Quote),
	}
}

// Start runs one refresh immediately and then on the configured schedule.
func (r *Refresher) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.opts.Schedule, func() { r.RefreshAll(ctx) }); err != nil {
		return err
	}
	r.RefreshAll(ctx)
	r.cron.Start()
	r.logger.Printf("refreshing %v on %q", r.opts.Symbols, r.opts.Schedule)
	return nil
}

// Stop stops the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// RefreshAll fetches every tracked symbol once.
func (r *Refresher) RefreshAll(ctx context.Context) {
	for _, symbol := range r.opts.Symbols {
		if _, err := r.Refresh(ctx, symbol); err != nil {
			r.logger.Printf("refresh %s: %v", symbol, err)
		}
	}
}

// Refresh fetches symbol now and caches the result on success.
func (r *Refresher) Refresh(ctx context.Context, symbol string) (domain.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	q, err := r.fetcher.Fetch(ctx, symbol)
	observability.RecordQuoteFetch(symbol, q.USD, time.Since(start).Seconds(), err)
	if err != nil {
		return domain.Quote{}, err
	}

	r.mu.Lock()
	r.quotes[q.Symbol] = q
	r.mu.Unlock()
	return q, nil
}

// Latest returns the cached quote for symbol.
func (r *Refresher) Latest(symbol string) (domain.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quotes[normalizeSymbol(symbol)]
	if !ok {
		return domain.Quote{}, ErrNoQuote
	}
	return q, nil
}
