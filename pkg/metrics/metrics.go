// Package metrics defines the Prometheus collectors used by the index, search
// and serve commands and exposes them for scraping or textfile export.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. Each instance owns its registry so
// several can coexist in one process (tests, embedded use).
type Metrics struct {
	Registry *prometheus.Registry

	DocumentsVisitedTotal prometheus.Counter
	DocumentsSkippedTotal prometheus.Counter
	PostingsAddedTotal    prometheus.Counter
	PostingWriteFailures  prometheus.Counter
	StoreKeys             prometheus.Gauge
	IndexRunSeconds       prometheus.Gauge
	PostingLookupsTotal   *prometheus.CounterVec
	SearchQueriesTotal    *prometheus.CounterVec
	SearchLatency         *prometheus.HistogramVec
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		DocumentsVisitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "flatindex_documents_visited_total",
				Help: "Regular files handed to the index builder.",
			},
		),
		DocumentsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "flatindex_documents_skipped_total",
				Help: "Documents skipped because they could not be read.",
			},
		),
		PostingsAddedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "flatindex_postings_added_total",
				Help: "Postings appended to the store.",
			},
		),
		PostingWriteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "flatindex_posting_write_failures_total",
				Help: "Posting appends that failed and were skipped.",
			},
		),
		StoreKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "flatindex_store_keys",
				Help: "Distinct term keys in the store after the last summary.",
			},
		),
		IndexRunSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "flatindex_index_run_seconds",
				Help: "Wall-clock duration of the last index run.",
			},
		),
		PostingLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatindex_posting_lookups_total",
				Help: "Posting lookups by outcome (hit, miss, error).",
			},
			[]string{"result"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatindex_search_queries_total",
				Help: "Search queries by result type (hits, empty, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flatindex_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "flatindex_cache_hits_total",
				Help: "Query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "flatindex_cache_misses_total",
				Help: "Query cache misses.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
	}

	m.Registry.MustRegister(
		m.DocumentsVisitedTotal,
		m.DocumentsSkippedTotal,
		m.PostingsAddedTotal,
		m.PostingWriteFailures,
		m.StoreKeys,
		m.IndexRunSeconds,
		m.PostingLookupsTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values in the text exposition format, for
// the node_exporter textfile collector. One-shot commands use this instead of
// a scrape endpoint.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
