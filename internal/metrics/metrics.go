// Package metrics exposes Prometheus instruments for the editor host.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	Edits          *prometheus.CounterVec
	DecodeFailures prometheus.Counter
	FlushErrors    prometheus.Counter
	Sessions       prometheus.Gauge
	RateLimited    *prometheus.CounterVec
}

// New registers the editor collectors on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Edits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "changeorder_edits_total",
			Help: "Completed edit operations by kind.",
		}, []string{"op"}),
		DecodeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "changeorder_decode_failures_total",
			Help: "Sessions opened on field data that could not be decoded.",
		}),
		FlushErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "changeorder_flush_errors_total",
			Help: "Failed attempts to persist a session's output.",
		}),
		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "changeorder_sessions_active",
			Help: "Editor sessions currently open.",
		}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "changeorder_rate_limited_total",
			Help: "Requests refused by a per-client rate limiter.",
		}, []string{"limiter"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
