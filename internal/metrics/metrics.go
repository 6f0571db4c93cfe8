package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for profile reconciliation.
type Metrics struct {
	// Outcomes by flow and terminal status
	Outcomes *prometheus.CounterVec

	// Backend call latencies by backend and operation
	BackendCallLatency *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profilesync_outcomes_total",
			Help: "Total reconciliation outcomes by flow and status",
		}, []string{"flow", "status"}),

		BackendCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "profilesync_backend_call_duration_seconds",
			Help:    "Duration of identity provider and application store calls",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"backend", "op"}), // backend: "identity", "appstore"
	}
}

// IncrementOutcome records a reconciliation outcome.
func (m *Metrics) IncrementOutcome(flow, status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(flow, status).Inc()
	}
}

// ObserveBackendCall records the duration of a single backend call.
func (m *Metrics) ObserveBackendCall(backend, op string, d time.Duration) {
	if m != nil {
		m.BackendCallLatency.WithLabelValues(backend, op).Observe(d.Seconds())
	}
}
