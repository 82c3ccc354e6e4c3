// Package observability exposes the service's Prometheus collectors and the
// CloudWatch recorder used by the disaster watch.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weatheralert/internal/types"
)

const namespace = "weather_alert"

// Metrics holds the Prometheus counters and histograms for the API.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec   // labels: method, endpoint, status
	HTTPDuration *prometheus.HistogramVec // labels: method, endpoint

	AlertsFired *prometheus.CounterVec // labels: type, severity
	RiskScore   prometheus.Histogram

	UpstreamFailures *prometheus.CounterVec // labels: source={weather,disaster_feed}
	CacheLookups     *prometheus.CounterVec // labels: kind={current,forecast,feed}, result={hit,miss}

	gatherer prometheus.Gatherer
}

func newCollectors() *Metrics {
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "endpoint", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "endpoint"}),
		AlertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Alerts returned by evaluations, by type and severity.",
		}, []string{"type", "severity"}),
		RiskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Composite risk scores computed for current conditions.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		UpstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Upstream fetches that degraded a response to neutral results.",
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Weather cache lookups by kind and result.",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HTTPRequests,
		m.HTTPDuration,
		m.AlertsFired,
		m.RiskScore,
		m.UpstreamFailures,
		m.CacheLookups,
	}
}

// NewMetrics creates the collectors and registers them with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newCollectors()
	prometheus.MustRegister(m.collectors()...)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting registers on a fresh registry so tests can construct
// Metrics repeatedly.
func NewMetricsForTesting() *Metrics {
	reg := prometheus.NewRegistry()
	m := newCollectors()
	reg.MustRegister(m.collectors()...)
	m.gatherer = reg
	return m
}

// Handler serves the exposition format for the registry the collectors live in.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordRequest satisfies core.MetricsCollector.
func (m *Metrics) RecordRequest(method, endpoint, status string, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, endpoint, status).Inc()
	m.HTTPDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// RecordCheck counts the alerts of one evaluation and observes its risk score.
func (m *Metrics) RecordCheck(resp types.AlertCheckResponse) {
	for _, a := range resp.Alerts {
		m.AlertsFired.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	}
	m.RiskScore.Observe(resp.RiskScore)
}

// RecordUpstreamFailure counts a degraded fetch for source.
func (m *Metrics) RecordUpstreamFailure(source string) {
	m.UpstreamFailures.WithLabelValues(source).Inc()
}

// RecordCacheLookup satisfies cache.Observer.
func (m *Metrics) RecordCacheLookup(kind string, hit bool) {
	m.CacheLookups.WithLabelValues(kind, hitLabel(hit)).Inc()
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
