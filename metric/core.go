package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Core holds the framework-owned metrics observed on every request.
type Core struct {
	// RequestsTotal counts handled requests by call and outcome class.
	RequestsTotal *prometheus.CounterVec
	// RequestDuration observes full request handling time including scope
	// enter and exit.
	RequestDuration *prometheus.HistogramVec
	// RequestsInFlight gauges requests currently inside their scope.
	RequestsInFlight prometheus.Gauge
	// ScopeFailures counts scope lifecycle errors by phase (enter, exit).
	ScopeFailures *prometheus.CounterVec
	// ProtocolViolations counts scope contract breaches. Any nonzero value
	// is a framework or plugin defect.
	ProtocolViolations prometheus.Counter
}

// NewCore creates the core metric set, unregistered.
func NewCore() *Core {
	return &Core{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrpc",
			Name:      "requests_total",
			Help:      "Handled requests by service, method, and outcome class",
		}, []string{"service", "method", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hrpc",
			Name:      "request_duration_seconds",
			Help:      "Request handling duration including scope lifecycle",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method"}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hrpc",
			Name:      "requests_in_flight",
			Help:      "Requests currently inside an entered scope",
		}),
		ScopeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrpc",
			Name:      "scope_failures_total",
			Help:      "Scope lifecycle errors by phase",
		}, []string{"phase"}),
		ProtocolViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hrpc",
			Name:      "scope_protocol_violations_total",
			Help:      "Scope participants breaking the enter/exit contract",
		}),
	}
}

// ObserveRequest records one handled request.
func (c *Core) ObserveRequest(service, method, outcome string, elapsed time.Duration) {
	c.RequestsTotal.WithLabelValues(service, method, outcome).Inc()
	c.RequestDuration.WithLabelValues(service, method).Observe(elapsed.Seconds())
}
