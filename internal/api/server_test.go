package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lbp-lab/internal/dispatch"
	"lbp-lab/internal/domain"
	"lbp-lab/internal/pricefeed"
	"lbp-lab/internal/stats"
	"lbp-lab/internal/storage/memory"
)

type stubQuotes map[string]float64

func (q stubQuotes) Latest(symbol string) (domain.Quote, error) {
	usd, ok := q[symbol]
	if !ok {
		return domain.Quote{}, pricefeed.ErrNoQuote
	}
	return domain.Quote{Symbol: symbol, USD: usd, FetchedAt: 1}, nil
}

type failingCounters struct{}

func (failingCounters) Increment(context.Context, string) (int64, error) {
	return 0, errors.New("db down")
}

func (failingCounters) Get(context.Context, string) (int64, error) {
	return 0, errors.New("db down")
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	if opts.Counters == nil {
		opts.Counters = memory.NewCounterStore()
	}
	s := NewServer(opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestServer_Simulation(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp := postJSON(t, ts.URL+"/api/v1/simulations", map[string]interface{}{"steps": 12})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out domain.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, uint64(1), out.ID)
	assert.Equal(t, domain.KindRunSimulation, out.Kind)
	assert.Equal(t, domain.ResponseSuccess, out.Type)
	require.Len(t, out.Snapshots, 13)
	assert.Equal(t, "0.0h", out.Snapshots[0].TimeLabel)
}

func TestServer_SimulationEmptyBodyUsesDefaults(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, err := http.Post(ts.URL+"/api/v1/simulations", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out domain.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.Snapshots, domain.DefaultSteps+1)
}

func TestServer_PricePaths(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	body := map[string]interface{}{
		"steps":       40,
		"currentStep": 10,
		"scenarios":   []float64{0, 1, 2, 3},
	}
	resp := postJSON(t, ts.URL+"/api/v1/price-paths", body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out domain.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, domain.KindCalculate, out.Kind)
	require.Len(t, out.Paths, 4)
	for _, p := range out.Paths {
		assert.Len(t, p, 31)
	}
}

func TestServer_EngineErrorIncludesLatest(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	ok := postJSON(t, ts.URL+"/api/v1/simulations", map[string]interface{}{"steps": 5})
	ok.Body.Close()
	require.Equal(t, http.StatusOK, ok.StatusCode)

	bad := map[string]interface{}{
		"steps":              5,
		"sellPressureConfig": map[string]interface{}{"preset": "whale"},
	}
	resp := postJSON(t, ts.URL+"/api/v1/simulations", bad)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var out struct {
		domain.Response
		Latest *domain.Response `json:"latest"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, domain.ResponseError, out.Type)
	assert.Equal(t, uint64(2), out.ID)
	require.NotNil(t, out.Latest)
	assert.Equal(t, uint64(1), out.Latest.ID)
	assert.Len(t, out.Latest.Snapshots, 6)
}

func TestServer_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	_, ts := newTestServer(t, Options{Dispatch: dispatch.Options{
		Timeout: 20 * time.Millisecond,
		Exec: func(req domain.Request) domain.Response {
			<-release
			return domain.Response{Type: domain.ResponseSuccess}
		},
	}})

	resp := postJSON(t, ts.URL+"/api/v1/simulations", map[string]interface{}{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	var out domain.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "computation timeout", out.Error)
}

func TestServer_InvalidJSON(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, err := http.Post(ts.URL+"/api/v1/simulations", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/api/v1/simulations")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Stats(t *testing.T) {
	_, ts := newTestServer(t, Options{Quotes: stubQuotes{"WETH": 2000}})

	cfg := domain.DefaultPoolConfig()
	cfg.CollateralToken = "WETH"
	snap := domain.StepSnapshot{Price: 0.001, TknBalance: 1_000_000, UsdcBalance: 50}

	resp := postJSON(t, ts.URL+"/api/v1/stats", StatsRequest{Config: cfg, First: snap, Current: snap})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out stats.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.CurrentPriceUSD.Equal(decimal.NewFromInt(2)), "price %s", out.CurrentPriceUSD)
	assert.True(t, out.MarketCapUSD.Equal(decimal.NewFromInt(2_000_000)), "mcap %s", out.MarketCapUSD)
}

func TestServer_StatsWithoutQuote(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	cfg := domain.DefaultPoolConfig()
	cfg.CollateralToken = "ETH"
	resp := postJSON(t, ts.URL+"/api/v1/stats", StatsRequest{Config: cfg})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_Quote(t *testing.T) {
	_, ts := newTestServer(t, Options{Quotes: stubQuotes{"ETH": 3100}})

	resp, err := http.Get(ts.URL + "/api/v1/quote?symbol=ETH")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var q domain.Quote
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&q))
	assert.Equal(t, 3100.0, q.USD)

	missing, err := http.Get(ts.URL + "/api/v1/quote?symbol=BTC")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	noSymbol, err := http.Get(ts.URL + "/api/v1/quote")
	require.NoError(t, err)
	noSymbol.Body.Close()
	assert.Equal(t, http.StatusBadRequest, noSymbol.StatusCode)
}

func TestServer_ReportDownload(t *testing.T) {
	counters := memory.NewCounterStore()
	_, ts := newTestServer(t, Options{Counters: counters})

	for i := 0; i < 2; i++ {
		resp, err := http.Post(ts.URL+"/api/v1/analytics/report-download", "application/json", nil)
		require.NoError(t, err)
		var body okBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, body.OK)
	}

	n, err := counters.Get(context.Background(), domain.CounterReportDownload)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestServer_ReportDownloadFailure(t *testing.T) {
	_, ts := newTestServer(t, Options{Counters: failingCounters{}})

	resp, err := http.Post(ts.URL+"/api/v1/analytics/report-download", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body okBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.OK)
}

func TestServer_HealthStatusMetrics(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	sim := postJSON(t, ts.URL+"/api/v1/simulations", map[string]interface{}{"steps": 3})
	sim.Body.Close()

	resp, err = http.Get(ts.URL + "/status")
	require.NoError(t, err)
	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, uint64(1), status.LastRequestID[domain.KindRunSimulation])

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RequestSummary(t *testing.T) {
	logs := memory.NewRequestLogStore()
	_, ts := newTestServer(t, Options{Dispatch: dispatch.Options{RequestLogStore: logs}})

	for i := 0; i < 2; i++ {
		resp := postJSON(t, ts.URL+"/api/v1/simulations", map[string]interface{}{"steps": 3 + i})
		resp.Body.Close()
	}
	bad := postJSON(t, ts.URL+"/api/v1/price-paths", map[string]interface{}{
		"steps":              5,
		"sellPressureConfig": map[string]interface{}{"preset": "whale"},
	})
	bad.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, bad.StatusCode)

	resp, err := http.Get(ts.URL + "/api/v1/requests/summary")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body RequestSummaryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Kinds, 2)

	assert.Equal(t, domain.KindCalculate, body.Kinds[0].Kind)
	assert.Equal(t, 1, body.Kinds[0].Errors)
	assert.Equal(t, domain.KindRunSimulation, body.Kinds[1].Kind)
	assert.Equal(t, 2, body.Kinds[1].Success)
	assert.Equal(t, 2, body.Kinds[1].DistinctConfig)
}

func TestServer_RequestSummaryValidation(t *testing.T) {
	_, noLog := newTestServer(t, Options{})
	resp, err := http.Get(noLog.URL + "/api/v1/requests/summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, ts := newTestServer(t, Options{RequestLogs: memory.NewRequestLogStore()})
	for _, q := range []string{"?from=abc", "?from=10&to=5"} {
		resp, err := http.Get(ts.URL + "/api/v1/requests/summary" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}

	resp, err = http.Get(ts.URL + "/api/v1/requests/summary?from=0&to=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body RequestSummaryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Kinds)
}
