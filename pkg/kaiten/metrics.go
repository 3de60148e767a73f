package kaiten

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the Kaiten client.
//
// Metrics:
//   - kaiten_requests_total{endpoint,outcome} - dispatched attempts by classified outcome
//   - kaiten_retries_total{endpoint} - attempts that were repeated
//   - kaiten_refusals_total{endpoint,reason} - requests surfaced as refusals
//   - kaiten_request_duration_seconds{endpoint} - wire time per attempt
//   - kaiten_throttle_wait_seconds - time spent queued at the pacing gate
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	RefusalsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ThrottleWait    prometheus.Histogram
}

// NewMetrics creates the client collectors and registers them with reg.
// A nil registerer yields working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kaiten_requests_total",
				Help: "Total number of Kaiten API attempts by classified outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kaiten_retries_total",
				Help: "Total number of repeated Kaiten API attempts",
			},
			[]string{"endpoint"},
		),
		RefusalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kaiten_refusals_total",
				Help: "Total number of Kaiten API requests declined by the remote service",
			},
			[]string{"endpoint", "reason"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kaiten_request_duration_seconds",
				Help:    "Kaiten API attempt latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ThrottleWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kaiten_throttle_wait_seconds",
				Help:    "Time spent waiting for the request pacing gate",
				Buckets: []float64{0, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
	}
}
