package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for fetches and orchestration runs.
type Metrics struct {
	Registry              *prometheus.Registry
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       prometheus.Histogram
	RecordsExtractedTotal prometheus.Counter
	RetriesTotal          prometheus.Counter
	ErrorsTotal           *prometheus.CounterVec
	OutcomesTotal         *prometheus.CounterVec
	LedgerRowsTotal       prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocktracker_requests_total",
			Help: "Total storefront requests issued.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stocktracker_request_duration_seconds",
			Help:    "Storefront request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stocktracker_records_extracted_total",
			Help: "Total product records extracted from storefront pages.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stocktracker_retries_total",
			Help: "Total number of fetch retries.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocktracker_fetch_errors_total",
			Help: "Total fetch errors by type.",
		},
		[]string{"error_type"},
	)
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocktracker_brand_outcomes_total",
			Help: "Brand outcomes by status and failure kind.",
		},
		[]string{"status", "failure"},
	)
	ledgerRows := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stocktracker_ledger_rows_appended_total",
			Help: "Total data rows appended to the ledger.",
		},
	)

	registry.MustRegister(requests, requestDuration, records, retries, errorsTotal, outcomes, ledgerRows)

	return &Metrics{
		Registry:              registry,
		RequestsTotal:         requests,
		RequestDuration:       requestDuration,
		RecordsExtractedTotal: records,
		RetriesTotal:          retries,
		ErrorsTotal:           errorsTotal,
		OutcomesTotal:         outcomes,
		LedgerRowsTotal:       ledgerRows,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records a request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddRecords adds n extracted records.
func (m *Metrics) AddRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsExtractedTotal.Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncOutcome counts one brand outcome.
func (m *Metrics) IncOutcome(status, failure string) {
	if m == nil {
		return
	}
	if failure == "" {
		failure = "none"
	}
	m.OutcomesTotal.WithLabelValues(status, failure).Inc()
}

// AddLedgerRows adds n appended ledger rows.
func (m *Metrics) AddLedgerRows(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LedgerRowsTotal.Add(float64(n))
}
