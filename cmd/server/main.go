// Package main provides the unified server:
// - HTTP API and WebSocket stream over the engine dispatcher
// - Collateral quote refresher (cron)
// - Health, status and Prometheus metrics
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lbp-lab/internal/api"
	"lbp-lab/internal/dispatch"
	"lbp-lab/internal/pricefeed"
	"lbp-lab/internal/storage"
	chstore "lbp-lab/internal/storage/clickhouse"
	"lbp-lab/internal/storage/memory"
	"lbp-lab/internal/storage/migrations"
	pgstore "lbp-lab/internal/storage/postgres"
)

// stores holds the telemetry storage implementations.
type stores struct {
	counters    storage.CounterStore
	requestLogs storage.RequestLogStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address (API, /ws, /health, /status, /metrics)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	requestLogBackend := flag.String("request-log-backend", envOr("REQUEST_LOG_BACKEND", "clickhouse"), "Request log storage: clickhouse, postgres")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	quoteEndpoint := flag.String("quote-endpoint", os.Getenv("QUOTE_ENDPOINT"), "Collateral price API endpoint")
	quoteSymbols := flag.String("quote-symbols", envOr("QUOTE_SYMBOLS", "ETH,WETH"), "Comma-separated collateral symbols to track")
	quoteSchedule := flag.String("quote-schedule", pricefeed.DefaultSchedule, "Quote refresh cron spec")
	timeout := flag.Duration("timeout", dispatch.DefaultTimeout, "Computation timeout per request")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
		}
		if *requestLogBackend == "clickhouse" && *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required with --request-log-backend=clickhouse")
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *requestLogBackend, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Quote refresher
	refresher := pricefeed.NewRefresher(
		pricefeed.NewClient(*quoteEndpoint),
		pricefeed.RefresherOptions{
			Symbols:  splitList(*quoteSymbols),
			Schedule: *quoteSchedule,
			Logger:   log.New(os.Stdout, "[pricefeed] ", log.LstdFlags|log.Lshortfile),
		},
	)
	if err := refresher.Start(ctx); err != nil {
		logger.Fatalf("Failed to start quote refresher: %v", err)
	}
	defer refresher.Stop()

	// HTTP + WebSocket
	server := api.NewServer(api.Options{
		Addr: *addr,
		Dispatch: dispatch.Options{
			RequestLogStore: st.requestLogs,
			Timeout:         *timeout,
			Logger:          log.New(os.Stdout, "[dispatch] ", log.LstdFlags|log.Lshortfile),
		},
		Counters: st.counters,
		Quotes:   refresher,
		Logger:   logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-errCh:
		if err != nil {
			logger.Printf("HTTP server error: %v", err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Printf("Graceful shutdown failed: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the telemetry stores and applies migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN, requestLogBackend string, useMemory bool, logger *log.Logger) (*stores, func(), error) {
	if useMemory {
		return &stores{
			counters:    memory.NewCounterStore(),
			requestLogs: memory.NewRequestLogStore(),
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Printf("Applied postgres migrations: %v", applied)
	}

	st := &stores{counters: pgstore.NewCounterStore(pool)}

	switch requestLogBackend {
	case "postgres":
		st.requestLogs = pgstore.NewRequestLogStore(pool)
		return st, pool.Close, nil

	case "clickhouse":
		// ClickHouse (migrations return a connection to the target database)
		chConn, chApplied, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		if len(chApplied) > 0 {
			logger.Printf("Applied clickhouse migrations on %s: %v", chConn.Database(), chApplied)
		}
		st.requestLogs = chstore.NewRequestLogStore(chConn)
		cleanup := func() {
			chConn.Close()
			pool.Close()
		}
		return st, cleanup, nil

	default:
		pool.Close()
		return nil, nil, fmt.Errorf("unknown request log backend %q", requestLogBackend)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
