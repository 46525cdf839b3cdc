package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for command routing.
type Metrics struct {
	segments      *prometheus.CounterVec
	externalCalls *prometheus.CounterVec
	duration      prometheus.Histogram
	breakerState  *prometheus.GaugeVec
}

// MustNewMetrics registers the collectors with reg and panics on duplicate
// registration. Tests should pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		segments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "commandbot",
				Subsystem: "router",
				Name:      "segments_total",
				Help:      "Segments classified, by intent.",
			},
			[]string{"intent"},
		),
		externalCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "commandbot",
				Subsystem: "skills",
				Name:      "external_calls_total",
				Help:      "Outbound collaborator calls, by service and outcome.",
			},
			[]string{"service", "outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "commandbot",
				Subsystem: "router",
				Name:      "utterance_duration_seconds",
				Help:      "Time to compose a response for one utterance.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "commandbot",
				Subsystem: "skills",
				Name:      "circuit_state",
				Help:      "Circuit breaker state per service (0 closed, 1 half-open, 2 open).",
			},
			[]string{"service"},
		),
	}
	reg.MustRegister(m.segments, m.externalCalls, m.duration, m.breakerState)
	return m
}

// ObserveSegment counts one classified segment.
func (m *Metrics) ObserveSegment(intent string) {
	if m == nil {
		return
	}
	m.segments.WithLabelValues(intent).Inc()
}

// ObserveExternalCall records a collaborator call outcome ("ok", "error", "open").
func (m *Metrics) ObserveExternalCall(service, outcome string) {
	if m == nil {
		return
	}
	m.externalCalls.WithLabelValues(service, outcome).Inc()
}

// ObserveUtterance records how long one utterance took.
func (m *Metrics) ObserveUtterance(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// SetBreakerState publishes a breaker state as a numeric gauge.
func (m *Metrics) SetBreakerState(service string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(service).Set(float64(state))
}

// InitSegments creates a zero series per intent so dashboards see every
// label before traffic arrives.
func (m *Metrics) InitSegments(intents ...string) {
	if m == nil {
		return
	}
	for _, intent := range intents {
		m.segments.WithLabelValues(intent)
	}
}
