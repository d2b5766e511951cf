// Package metrics exposes Prometheus instrumentation for request sends.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Send outcomes used as the "outcome" label.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

type Metrics struct {
	registry        *prometheus.Registry
	SendsTotal      *prometheus.CounterVec
	ResponseBytes   prometheus.Counter
	RequestDuration prometheus.Histogram
	InFlight        prometheus.Gauge
}

func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		SendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hitsend",
			Name:      "sends_total",
			Help:      "Total sends by outcome",
		}, []string{"outcome"}),
		ResponseBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hitsend",
			Name:      "response_bytes_total",
			Help:      "Response body bytes written to disk",
		}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hitsend",
			Name:      "request_duration_seconds",
			Help:      "Wall time from dispatch to closed response",
			Buckets:   prometheus.DefBuckets,
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hitsend",
			Name:      "sends_in_flight",
			Help:      "Sends currently executing",
		}),
	}
	r.MustRegister(m.SendsTotal, m.ResponseBytes, m.RequestDuration, m.InFlight)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The methods below are nil-safe so callers can run without metrics.

func (m *Metrics) Started() {
	if m == nil {
		return
	}
	m.InFlight.Inc()
}

func (m *Metrics) Finished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.InFlight.Dec()
	m.SendsTotal.WithLabelValues(outcome).Inc()
	m.RequestDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) BytesWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ResponseBytes.Add(float64(n))
}
