// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Dispatch metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Engine metrics
	StepsSimulated prometheus.Counter
	PathsProjected prometheus.Counter

	// Quote feed metrics
	QuoteFetches      *prometheus.CounterVec
	QuoteFetchLatency prometheus.Histogram
	CollateralUSD     *prometheus.GaugeVec

	// Transport metrics
	WSConnections prometheus.Gauge
	QueueMessages *prometheus.CounterVec

	// Analytics metrics
	CounterIncrements *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lbp_lab"
	}

	return &Metrics{
		// Dispatch metrics
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Total number of engine requests by kind and outcome",
		}, []string{"kind", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "request_duration_seconds",
			Help:      "Engine request duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"kind"}),
		RequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "requests_in_flight",
			Help:      "Number of engine requests currently computing",
		}),

		// Engine metrics
		StepsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "steps_simulated_total",
			Help:      "Total number of snapshots produced by full runs",
		}),
		PathsProjected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "paths_projected_total",
			Help:      "Total number of scenario price paths projected",
		}),

		// Quote feed metrics
		QuoteFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricefeed",
			Name:      "fetches_total",
			Help:      "Total number of collateral quote fetches by status",
		}, []string{"status"}),
		QuoteFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricefeed",
			Name:      "fetch_latency_seconds",
			Help:      "Collateral quote fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		CollateralUSD: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pricefeed",
			Name:      "collateral_usd",
			Help:      "Last fetched collateral price in USD",
		}, []string{"symbol"}),

		// Transport metrics
		WSConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_connections",
			Help:      "Number of open WebSocket request streams",
		}),
		QueueMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "messages_total",
			Help:      "Total number of queue messages by outcome",
		}, []string{"outcome"}),

		// Analytics metrics
		CounterIncrements: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "counter_increments_total",
			Help:      "Total number of analytics counter increments by key",
		}, []string{"key"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful engine request",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRequest records a finished engine request.
func RecordRequest(kind, status string, seconds float64) {
	DefaultMetrics.RequestsTotal.WithLabelValues(kind, status).Inc()
	DefaultMetrics.RequestDuration.WithLabelValues(kind).Observe(seconds)
}

// RequestStarted increments the in-flight gauge; call the returned func when done.
func RequestStarted() func() {
	DefaultMetrics.RequestsInFlight.Inc()
	return DefaultMetrics.RequestsInFlight.Dec
}

// RecordSnapshots records snapshots produced by a full run.
func RecordSnapshots(n int) {
	DefaultMetrics.StepsSimulated.Add(float64(n))
}

// RecordPaths records projected scenario paths.
func RecordPaths(n int) {
	DefaultMetrics.PathsProjected.Add(float64(n))
}

// RecordSuccessfulRun sets the last successful run timestamp.
func RecordSuccessfulRun(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulRun.Set(float64(unixSeconds))
}

// RecordQuoteFetch records a quote fetch and, on success, the fetched price.
func RecordQuoteFetch(symbol string, usd float64, seconds float64, err error) {
	DefaultMetrics.QuoteFetchLatency.Observe(seconds)
	if err != nil {
		DefaultMetrics.QuoteFetches.WithLabelValues("error").Inc()
		return
	}
	DefaultMetrics.QuoteFetches.WithLabelValues("ok").Inc()
	DefaultMetrics.CollateralUSD.WithLabelValues(symbol).Set(usd)
}

// WSConnected increments the open stream gauge; call the returned func on close.
func WSConnected() func() {
	DefaultMetrics.WSConnections.Inc()
	return DefaultMetrics.WSConnections.Dec
}

// RecordQueueMessage records a consumed queue message by outcome (ack, nack, reply_error).
func RecordQueueMessage(outcome string) {
	DefaultMetrics.QueueMessages.WithLabelValues(outcome).Inc()
}

// RecordCounterIncrement records an analytics counter increment.
func RecordCounterIncrement(key string) {
	DefaultMetrics.CounterIncrements.WithLabelValues(key).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
