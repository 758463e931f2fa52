// Package metrics holds the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess            = "success"
	OutcomeValidation         = "validation_error"
	OutcomeDuplicate          = "duplicate"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"

	DecisionAllowed      = "allowed"
	DecisionMissingToken = "missing_token"
	DecisionInvalidToken = "invalid_token"
	DecisionForbidden    = "forbidden"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	RegisterTotal       *prometheus.CounterVec
	LoginTotal          *prometheus.CounterVec
	GateDecisionsTotal  *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RegisterTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusdesk_auth_register_total",
				Help: "Registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		LoginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusdesk_auth_login_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		GateDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusdesk_gate_decisions_total",
				Help: "Authorization gate decisions by outcome",
			},
			[]string{"outcome"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campusdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		gatherer: registry,
	}

	registry.MustRegister(
		m.RegisterTotal,
		m.LoginTotal,
		m.GateDecisionsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRegister(outcome string) {
	m.RegisterTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLogin(outcome string) {
	m.LoginTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGate(outcome string) {
	m.GateDecisionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request. route is the mux template, not the
// raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
