// Package metrics defines the Prometheus collectors used by the search engine
// and exposes an HTTP handler for scraping. Recording helpers are safe to
// call on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     prometheus.Counter
	DocsFailedTotal      *prometheus.CounterVec
	IndexTerms           prometheus.Gauge
	StatsScoresTotal     prometheus.Counter
	FetchesTotal         *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in services and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
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
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by mode (boolean, ranked) and outcome (ok, zero_result, error).",
			},
			[]string{"mode", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"mode"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"mode"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_hits_total",
				Help: "Total number of boolean query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_misses_total",
				Help: "Total number of boolean query cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents added to the inverted index.",
			},
		),
		DocsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_failed_total",
				Help: "Total documents whose ingestion failed, by reason.",
			},
			[]string{"reason"},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Number of distinct terms in the inverted index.",
			},
		),
		StatsScoresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tfidf_scores_computed_total",
				Help: "Total (token, document) TF-IDF weights computed.",
			},
		),
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_fetches_total",
				Help: "Remote content fetches by status (ok, error).",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.DocsFailedTotal,
		m.IndexTerms,
		m.StatsScoresTotal,
		m.FetchesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveSearch records one executed query.
func (m *Metrics) ObserveSearch(mode string, results int, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case results == 0:
		outcome = "zero_result"
	}
	m.SearchQueriesTotal.WithLabelValues(mode, outcome).Inc()
	m.SearchLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
	if err == nil {
		m.SearchResultsCount.WithLabelValues(mode).Observe(float64(results))
	}
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) ObserveIndexed(terms int) {
	if m == nil {
		return
	}
	m.DocsIndexedTotal.Inc()
	m.IndexTerms.Set(float64(terms))
}

func (m *Metrics) ObserveFailed(reason string) {
	if m == nil {
		return
	}
	m.DocsFailedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveScores(n int) {
	if m == nil {
		return
	}
	m.StatsScoresTotal.Add(float64(n))
}

func (m *Metrics) ObserveFetch(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.FetchesTotal.WithLabelValues("error").Inc()
		return
	}
	m.FetchesTotal.WithLabelValues("ok").Inc()
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler serves the collectors gathered by g in the text exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
