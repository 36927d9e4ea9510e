package domain

// Analytics counter keys.
const (
	CounterReportDownload = "report_pdf_download"
)

// AnalyticsCounter is a named monotonically increasing counter.
// Corresponds to analytics_counters table in PostgreSQL.
type AnalyticsCounter struct {
	Key       string // PRIMARY KEY
	Count     int64
	UpdatedAt int64 // Unix timestamp in milliseconds
}
