// Package metrics exposes prometheus collectors for runtime operations.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/procflow/service/jobs"
)

// DefaultNamespace is used when no namespace is configured
const DefaultNamespace = "procflow"

// Instance outcomes
const (
	OutcomeCreated   = "created"
	OutcomeStarted   = "started"
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
	OutcomeFailed    = "failed"
	OutcomeHandled   = "handled"
)

// Metrics tracks runtime statistics
type Metrics struct {
	mu sync.Mutex

	instancesTotal    *prometheus.CounterVec
	signalsTotal      prometheus.Counter
	deliveriesTotal   prometheus.Counter
	listenerFailures  prometheus.Counter
	operationsTotal   *prometheus.CounterVec
	operationDuration prometheus.Histogram
	jobsTotal         *prometheus.CounterVec

	registerer prometheus.Registerer
	registered bool
}

// New creates runtime collectors under namespace. A nil registerer uses the
// prometheus default registerer.
func New(registerer prometheus.Registerer, namespace string) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Subsystem: "runtime", Name: name, Help: help})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Subsystem: "runtime", Name: name, Help: help}, labels)
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "runtime",
		Name:      "operation_duration_seconds",
		Help:      "Time spent inside the operation boundary",
		Buckets:   prometheus.DefBuckets,
	})
	return &Metrics{
		registerer:        registerer,
		instancesTotal:    counterVec("instances_total", "Process instance lifecycle transitions", "definition", "outcome"),
		signalsTotal:      counter("signals_total", "Signals dispatched"),
		deliveriesTotal:   counter("signal_deliveries_total", "Listener invocations performed by signal dispatch"),
		listenerFailures:  counter("listener_failures_total", "Listener invocations that failed"),
		operationsTotal:   counterVec("operations_total", "Runtime operations by outcome", "outcome"),
		operationDuration: duration,
		jobsTotal:         counterVec("jobs_total", "Fired jobs by kind and outcome", "kind", "outcome"),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registered {
		return nil
	}
	collectors := []prometheus.Collector{
		m.instancesTotal,
		m.signalsTotal,
		m.deliveriesTotal,
		m.listenerFailures,
		m.operationsTotal,
		m.operationDuration,
		m.jobsTotal,
	}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

// RecordInstance records an instance lifecycle outcome
func (m *Metrics) RecordInstance(definitionID, outcome string) {
	if m == nil {
		return
	}
	m.instancesTotal.WithLabelValues(definitionID, outcome).Inc()
}

// RecordOperation records a closed operation
func (m *Metrics) RecordOperation(started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "committed"
	if err != nil {
		outcome = "failed"
	}
	m.operationsTotal.WithLabelValues(outcome).Inc()
	m.operationDuration.Observe(time.Since(started).Seconds())
}

// SignalObserver returns a signal manager observer
func (m *Metrics) SignalObserver() func(topic string, delivered int, err error) {
	return func(topic string, delivered int, err error) {
		m.signalsTotal.Inc()
		m.deliveriesTotal.Add(float64(delivered))
		if err == nil {
			return
		}
		failures := 1
		if aggregate, ok := err.(interface{ Errors() []error }); ok {
			failures = len(aggregate.Errors())
		}
		m.listenerFailures.Add(float64(failures))
	}
}

// JobObserver returns a jobs service observer
func (m *Metrics) JobObserver() func(trigger *jobs.Trigger, err error) {
	return func(trigger *jobs.Trigger, err error) {
		outcome := "delivered"
		if err != nil {
			outcome = "failed"
		}
		m.jobsTotal.WithLabelValues(string(trigger.Kind), outcome).Inc()
	}
}
