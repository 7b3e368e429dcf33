package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "baseresource/pkg/domain-errors"
)

// Metrics provides observability for resource services.
// Every series carries the resource name so one instance serves all resources.
type Metrics struct {
	OperationDuration *prometheus.HistogramVec
	Transitions       *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
}

// New registers resource metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resource_operation_duration_seconds",
			Help:    "Duration of resource service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"resource", "operation", "outcome"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resource_transitions_total",
			Help: "Lifecycle transitions applied to resources",
		}, []string{"resource", "transition"}),
		PublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resource_event_publish_failures_total",
			Help: "Lifecycle events that could not be published",
		}, []string{"resource"}),
	}
}

// ObserveOperation records the duration of an operation started at start.
// The outcome label is "ok" or the domain error code of err.
func (m *Metrics) ObserveOperation(resource, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	m.OperationDuration.WithLabelValues(resource, operation, outcome).Observe(time.Since(start).Seconds())
}

// IncrementTransition records one applied transition (created, updated, deleted, recovered).
func (m *Metrics) IncrementTransition(resource, transition string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(resource, transition).Inc()
}

// IncrementPublishFailure records an event that was dropped.
func (m *Metrics) IncrementPublishFailure(resource string) {
	if m == nil {
		return
	}
	m.PublishFailures.WithLabelValues(resource).Inc()
}
