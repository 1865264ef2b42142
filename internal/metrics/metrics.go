// Package metrics exposes Prometheus counters for mock traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	failures    *prometheus.CounterVec
	delay       *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	resets      prometheus.Counter
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mocksim_requests_total",
				Help: "Mock responses served, by strategy and status code.",
			},
			[]string{"endpoint", "strategy", "status_code"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mocksim_simulated_failures_total",
				Help: "Simulated timeouts and network errors.",
			},
			[]string{"endpoint", "kind"},
		),
		delay: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mocksim_injected_delay_seconds",
				Help:    "Artificial latency added to mock responses.",
				Buckets: []float64{0, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mocksim_scenario_transitions_total",
				Help: "Scenario state changes.",
			},
			[]string{"endpoint"},
		),
		resets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mocksim_state_resets_total",
				Help: "Endpoint state resets.",
			},
		),
	}

	reg.MustRegister(m.requests, m.failures, m.delay, m.transitions, m.resets)
	return m
}

// ObserveResponse records a served response and its injected delay
func (m *Metrics) ObserveResponse(endpoint, strategy string, statusCode int, delay time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, strategy, strconv.Itoa(statusCode)).Inc()
	m.delay.WithLabelValues(endpoint).Observe(delay.Seconds())
}

// ObserveFailure records a simulated transport failure
func (m *Metrics) ObserveFailure(endpoint, kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(endpoint, kind).Inc()
}

// ObserveTransition records a scenario state change
func (m *Metrics) ObserveTransition(endpoint string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(endpoint).Inc()
}

// ObserveReset records n endpoint state resets
func (m *Metrics) ObserveReset(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.resets.Add(float64(n))
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
