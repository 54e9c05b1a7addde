package cli

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the server metrics in their own registry so tests can
// create as many servers as they need.
type metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	recommendations *prometheus.CounterVec
	topAlgorithm    *prometheus.CounterVec
	reloads         *prometheus.CounterVec
	algorithms      prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),

		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptorec_http_requests_total",
				Help: "Total number of HTTP requests by handler, method and code",
			},
			[]string{"handler", "method", "code"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptorec_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"handler", "method"},
		),

		recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptorec_recommendations_total",
				Help: "Total number of recommendations by outcome",
			},
			[]string{"outcome"},
		),

		topAlgorithm: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptorec_top_algorithm_total",
				Help: "Number of times an algorithm was the best recommendation",
			},
			[]string{"algorithm"},
		),

		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptorec_kb_reloads_total",
				Help: "Total number of knowledge base reloads by result",
			},
			[]string{"result"},
		),

		algorithms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cryptorec_kb_algorithms",
				Help: "Number of algorithms in the current knowledge base",
			},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.recommendations,
		m.topAlgorithm,
		m.reloads,
		m.algorithms,
		collectors.NewGoCollector(),
	)

	return m
}

// instrument wraps h with the request counter and duration histogram.
func (m *metrics) instrument(name string, h http.HandlerFunc) http.Handler {
	labels := prometheus.Labels{"handler": name}
	return promhttp.InstrumentHandlerCounter(
		m.requests.MustCurryWith(labels),
		promhttp.InstrumentHandlerDuration(m.duration.MustCurryWith(labels), h),
	)
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *metrics) recommended(top string, noMatch bool) {
	if noMatch {
		m.recommendations.WithLabelValues("no_match").Inc()
		return
	}
	m.recommendations.WithLabelValues("match").Inc()
	m.topAlgorithm.WithLabelValues(top).Inc()
}

// loaded records the size of the knowledge base the server started with.
func (m *metrics) loaded(algorithms int) {
	m.algorithms.Set(float64(algorithms))
}

func (m *metrics) reloaded(algorithms int, err error) {
	if err != nil {
		m.reloads.WithLabelValues("error").Inc()
		return
	}
	m.reloads.WithLabelValues("ok").Inc()
	m.loaded(algorithms)
}
