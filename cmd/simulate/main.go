// Command simulate runs one LBP configuration and prints the snapshot
// sequence or projected price paths as a table, CSV, JSON or Markdown.
// With --sweep-* flags it runs a grid of demand and sell variants instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"lbp-lab/internal/dispatch"
	"lbp-lab/internal/domain"
	"lbp-lab/internal/orchestrator"
	"lbp-lab/internal/pricefeed"
	"lbp-lab/internal/queue"
	"lbp-lab/internal/reporting"
	"lbp-lab/internal/verification"
)

func main() {
	def := domain.DefaultPoolConfig()
	defDemand := domain.DefaultDemandPressureConfig()
	defSell := domain.DefaultSellPressureConfig()

	// Pool
	tokenName := flag.String("token-name", def.TokenName, "Token name")
	tokenSymbol := flag.String("token-symbol", def.TokenSymbol, "Token symbol")
	totalSupply := flag.Float64("total-supply", def.TotalSupply, "Total token supply")
	percentForSale := flag.Float64("percent-for-sale", def.PercentForSale, "Percent of supply for sale")
	collateral := flag.String("collateral", def.CollateralToken, "Collateral token symbol (USDC, USDT, DAI, ETH, WETH)")
	tknBalance := flag.Float64("tkn-balance", def.TknBalanceIn, "Initial pool token balance")
	tknWeightIn := flag.Float64("tkn-weight-start", def.TknWeightIn, "Token weight at start")
	tknWeightOut := flag.Float64("tkn-weight-end", def.TknWeightOut, "Token weight at end")
	usdcBalance := flag.Float64("collateral-balance", def.UsdcBalanceIn, "Initial pool collateral balance")
	usdcWeightIn := flag.Float64("collateral-weight-start", def.UsdcWeightIn, "Collateral weight at start")
	usdcWeightOut := flag.Float64("collateral-weight-end", def.UsdcWeightOut, "Collateral weight at end")
	duration := flag.Float64("duration", def.Duration, "Sale duration (hours)")
	swapFee := flag.Float64("swap-fee", def.SwapFee, "Swap fee (>1 is a percent, otherwise a fraction)")

	// Demand
	demandPreset := flag.String("demand", defDemand.Preset, "Demand preset: bullish, bearish")
	magnitude := flag.Float64("demand-base", defDemand.MagnitudeBase, "Demand magnitude base (collateral)")
	multiplier := flag.Float64("demand-multiplier", defDemand.Multiplier, "Demand multiplier")

	// Sell pressure
	sellConfig := sellFlags(flag.CommandLine, defSell)

	// Run
	steps := flag.Int("steps", domain.DefaultSteps, "Number of steps")
	paths := flag.Bool("paths", false, "Project price paths instead of a full run")
	scenarios := flag.String("scenarios", "0,1,2", "Comma-separated demand multipliers for --paths")
	fromStep := flag.Int("from-step", 0, "Checkpoint step for --paths")
	timeout := flag.Duration("timeout", dispatch.DefaultTimeout, "Computation timeout")

	// Output
	format := flag.String("format", "table", "Output format: table, csv, json, markdown")
	every := flag.Int("every", 10, "Table: print every Nth step")
	// Sweep
	sweepDemand := flag.String("sweep-demand", "", "Sweep: comma-separated demand presets")
	sweepMult := flag.String("sweep-multipliers", "", "Sweep: comma-separated demand multipliers")
	sweepSell := flag.String("sweep-sell", "", "Sweep: comma-separated sell presets")

	verify := flag.Bool("verify", false, "Replay the result in-process and check projection continuity")

	// Collateral quote
	collateralUSD := flag.Float64("collateral-usd", 0, "Collateral/USD rate for markdown stats (fetched if 0 and collateral is not USD)")
	quoteEndpoint := flag.String("quote-endpoint", os.Getenv("QUOTE_ENDPOINT"), "Price API endpoint")

	// Remote execution
	amqpURL := flag.String("amqp-url", os.Getenv("AMQP_URL"), "Run on a worker via RabbitMQ instead of in-process")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	scenarioList, err := parseScenarios(*scenarios)
	if err != nil {
		logger.Fatalf("Invalid --scenarios: %v", err)
	}

	cfg := domain.PoolConfig{
		TokenName:       *tokenName,
		TokenSymbol:     *tokenSymbol,
		TotalSupply:     *totalSupply,
		PercentForSale:  *percentForSale,
		CollateralToken: *collateral,
		TknBalanceIn:    *tknBalance,
		TknWeightIn:     *tknWeightIn,
		UsdcBalanceIn:   *usdcBalance,
		UsdcWeightIn:    *usdcWeightIn,
		TknWeightOut:    *tknWeightOut,
		UsdcWeightOut:   *usdcWeightOut,
		Duration:        *duration,
		SwapFee:         *swapFee,
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid pool configuration: %v", err)
	}

	kind := domain.KindRunSimulation
	if *paths {
		kind = domain.KindCalculate
	}
	req := domain.NewRequest(kind)
	req.Config = cfg
	req.Demand = domain.DemandPressureConfig{Preset: *demandPreset, MagnitudeBase: *magnitude, Multiplier: *multiplier}
	req.Sell = sellConfig()
	req.Steps = *steps
	if *paths {
		req.Scenarios = scenarioList
		req.CurrentStep = *fromStep
	}

	// Create context with cancellation
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	exec := newExecutor(ctx, *amqpURL, *timeout, logger)
	defer exec.Close()

	if *sweepDemand != "" || *sweepMult != "" || *sweepSell != "" {
		mults, err := parseScenarios(*sweepMult)
		if err != nil {
			logger.Fatalf("Invalid --sweep-multipliers: %v", err)
		}
		orch := orchestrator.New(orchestrator.Options{
			Exec:          exec.ExecFunc(ctx),
			DemandPresets: splitList(*sweepDemand),
			Multipliers:   mults,
			SellPresets:   splitList(strings.ToLower(*sweepSell)),
			Logger:        logger,
		})
		result, err := orch.Run(ctx, req)
		if err != nil {
			logger.Fatalf("Sweep failed: %v", err)
		}
		if *format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			err = enc.Encode(result.Rows)
		} else {
			err = reporting.WriteSweepTable(os.Stdout, result.Rows)
		}
		if err != nil {
			logger.Fatalf("Render failed: %v", err)
		}
		return
	}

	// A projection from a later step continues from that step of the full run.
	if *paths && *fromStep > 0 {
		run := req
		run.Kind = domain.KindRunSimulation
		run.Scenarios = nil
		run.CurrentStep = 0
		base, err := exec.Do(ctx, run)
		if err != nil {
			logger.Fatalf("Checkpoint run failed: %v", err)
		}
		idx := *fromStep
		if idx >= len(base.Snapshots) {
			idx = len(base.Snapshots) - 1
		}
		cp := base.Snapshots[idx].Checkpoint()
		req.Checkpoint = &cp
	}

	start := time.Now()
	resp, err := exec.Do(ctx, req)
	if err != nil {
		logger.Fatalf("Simulation failed: %v", err)
	}
	logger.Printf("%s completed in %v", req.Kind, time.Since(start))

	if err := render(os.Stdout, *format, *every, req, resp, *collateralUSD, *quoteEndpoint, logger); err != nil {
		logger.Fatalf("Render failed: %v", err)
	}

	if *verify {
		if !runVerification(req, resp, logger) {
			os.Exit(1)
		}
	}
}

// runVerification replays req in-process and, for full runs, checks that
// baseline projections from a few checkpoints continue the run.
func runVerification(req domain.Request, resp *domain.Response, logger *log.Logger) bool {
	v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{})

	results := make([]*verification.Result, 0, 2)
	replay, err := v.Verify(req, resp)
	if err != nil {
		logger.Printf("Verification failed: %v", err)
		return false
	}
	results = append(results, replay)

	if req.Kind == domain.KindRunSimulation {
		n := len(resp.Snapshots) - 1
		cont, err := v.VerifyContinuity(req, []int{0, n / 4, n / 2, 3 * n / 4})
		if err != nil {
			logger.Printf("Continuity check failed: %v", err)
			return false
		}
		results = append(results, cont)
	}

	ok := true
	for _, r := range results {
		if r.Match {
			logger.Printf("Verify %s: OK (%d values)", r.Check, r.Compared)
			continue
		}
		ok = false
		logger.Printf("Verify %s: %d divergences in %d values", r.Check, len(r.Divergences), r.Compared)
		for i, d := range r.Divergences {
			if i == 10 {
				logger.Printf("  ... %d more", len(r.Divergences)-i)
				break
			}
			logger.Printf("  %s", d)
		}
	}
	return ok
}

// executor runs a request in-process or on a queue worker.
type executor struct {
	client *queue.Client
	d      *dispatch.Dispatcher
	close  func()
}

func newExecutor(ctx context.Context, amqpURL string, timeout time.Duration, logger *log.Logger) *executor {
	if amqpURL == "" {
		return &executor{
			d:     dispatch.New(dispatch.Options{Timeout: timeout, Logger: logger}),
			close: func() {},
		}
	}

	conn, err := queue.Dial(ctx, amqpURL, 3, 2*time.Second, logger)
	if err != nil {
		logger.Fatalf("Connect to RabbitMQ: %v", err)
	}
	client, err := queue.NewClient(conn, queue.RequestQueue)
	if err != nil {
		conn.Close()
		logger.Fatalf("Create queue client: %v", err)
	}
	logger.Printf("Dispatching to %s", queue.RequestQueue)
	return &executor{
		client: client,
		close: func() {
			client.Close()
			conn.Close()
		},
	}
}

func (e *executor) submit(ctx context.Context, req domain.Request) (*domain.Response, error) {
	if e.client != nil {
		return e.client.Call(ctx, req)
	}
	return e.d.Submit(ctx, req)
}

// ExecFunc adapts the executor for callers that expect an error response
// rather than an error.
func (e *executor) ExecFunc(ctx context.Context) dispatch.ExecFunc {
	return func(req domain.Request) domain.Response {
		resp, err := e.submit(ctx, req)
		if err != nil {
			return domain.Response{Kind: req.Kind, Type: domain.ResponseError, Error: err.Error()}
		}
		return *resp
	}
}

// Do runs req and converts an error response into an error.
func (e *executor) Do(ctx context.Context, req domain.Request) (*domain.Response, error) {
	resp, err := e.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("engine error: %s", resp.Error)
	}
	return resp, nil
}

func (e *executor) Close() {
	e.close()
}

func render(w io.Writer, format string, every int, req domain.Request, resp *domain.Response, collateralUSD float64, quoteEndpoint string, logger *log.Logger) error {
	scenarios := req.Scenarios
	fromStep := req.CurrentStep
	if fromStep > req.Steps {
		fromStep = req.Steps
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)

	case "csv":
		if len(resp.Paths) > 0 {
			_, err := fmt.Fprint(w, reporting.RenderPathsCSV(resp.Paths, scenarios, fromStep))
			return err
		}
		_, err := fmt.Fprint(w, reporting.RenderSnapshotsCSV(resp.Snapshots))
		return err

	case "markdown", "md":
		rate := collateralUSD
		if rate <= 0 && !req.Config.IsUSDCollateral() {
			rate = fetchQuote(req.Config.CollateralToken, quoteEndpoint, logger)
		}
		r, err := reporting.NewGenerator().Generate(req, resp, rate)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, reporting.RenderMarkdown(r))
		return err

	case "table":
		if len(resp.Paths) > 0 {
			return reporting.WritePathTable(w, resp.Paths, scenarios, fromStep, every)
		}
		return reporting.WriteSnapshotTable(w, resp.Snapshots, every)

	default:
		return fmt.Errorf("unknown format %q (table, csv, json, markdown)", format)
	}
}

// fetchQuote returns the collateral/USD rate, or 0 when it cannot be fetched.
func fetchQuote(symbol, endpoint string, logger *log.Logger) float64 {
	ctx, cancel := context.WithTimeout(context.Background(), pricefeed.DefaultTimeout)
	defer cancel()

	q, err := pricefeed.NewClient(endpoint).Fetch(ctx, symbol)
	if err != nil {
		logger.Printf("Quote for %s unavailable, USD stats omitted: %v", symbol, err)
		return 0
	}
	return q.USD
}

// sellFlags registers the sell pressure flags on fs. The returned func reads
// them back after parsing.
func sellFlags(fs *flag.FlagSet, def domain.SellPressureConfig) func() domain.SellPressureConfig {
	preset := fs.String("sell", def.Preset, "Sell preset: loyal, greedy, none")
	loyalSold := fs.Float64("loyal-sold-pct", def.LoyalSoldPct, "Loyal: percent of the initial pool token balance sold over the sale")
	loyalConc := fs.Float64("loyal-concentration-pct", def.LoyalConcentrationPct, "Loyal: percent of selling concentrated at both edges of the sale")
	greedySpread := fs.Float64("greedy-spread-pct", def.GreedySpreadPct, "Greedy: profit spread over cost basis that triggers selling")
	greedySell := fs.Float64("greedy-sell-pct", def.GreedySellPct, "Greedy: percent of holdings sold per trigger")

	return func() domain.SellPressureConfig {
		return domain.SellPressureConfig{
			Preset:                strings.ToLower(*preset),
			LoyalSoldPct:          *loyalSold,
			LoyalConcentrationPct: *loyalConc,
			GreedySpreadPct:       *greedySpread,
			GreedySellPct:         *greedySell,
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseScenarios(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
