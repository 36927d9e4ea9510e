package pricefeed

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lbp-lab/internal/domain"
)

type stubFetcher struct {
	mu    sync.Mutex
	price float64
	err   error
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	return domain.Quote{Symbol: normalizeSymbol(symbol), USD: f.price, FetchedAt: int64(f.calls)}, nil
}

func TestRefresher_LatestBeforeFetch(t *testing.T) {
	r := NewRefresher(&stubFetcher{price: 1}, RefresherOptions{Symbols: []string{"ETH"}})
	if _, err := r.Latest("ETH"); !errors.Is(err, ErrNoQuote) {
		t.Fatalf("expected ErrNoQuote, got %v", err)
	}
}

func TestRefresher_KeepsLastGoodQuote(t *testing.T) {
	f := &stubFetcher{price: 3000}
	r := NewRefresher(f, RefresherOptions{Symbols: []string{"ETH"}})
	ctx := context.Background()

	r.RefreshAll(ctx)
	q, err := r.Latest("eth")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if q.USD != 3000 {
		t.Errorf("expected 3000, got %f", q.USD)
	}

	f.mu.Lock()
	f.err = errors.New("feed down")
	f.mu.Unlock()

	if _, err := r.Refresh(ctx, "ETH"); err == nil {
		t.Fatal("expected refresh error")
	}
	q, err = r.Latest("ETH")
	if err != nil {
		t.Fatalf("Latest after failure: %v", err)
	}
	if q.USD != 3000 || q.FetchedAt != 1 {
		t.Errorf("expected cached quote to survive failure, got %+v", q)
	}
}

func TestRefresher_StartStop(t *testing.T) {
	f := &stubFetcher{price: 2}
	r := NewRefresher(f, RefresherOptions{Symbols: []string{"ETH", "WETH"}, Schedule: "@every 1h"})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop()

	if f.calls != 2 {
		t.Errorf("expected one immediate fetch per symbol, got %d", f.calls)
	}
	if _, err := r.Latest("WETH"); err != nil {
		t.Errorf("Latest(WETH): %v", err)
	}
}

func TestRefresher_BadSchedule(t *testing.T) {
	r := NewRefresher(&stubFetcher{price: 1}, RefresherOptions{Schedule: "not a spec"})
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
