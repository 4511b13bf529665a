package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Mutation results recorded by Metrics.
const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
)

// Metrics holds the Prometheus collectors for the graph engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	mutations         *prometheus.CounterVec
	cyclesAbsorbed    *prometheus.CounterVec
	traversalDuration *prometheus.HistogramVec
}

// NewMetrics creates the engine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termgraph_relationship_mutations_total",
			Help: "Relationship mutations by operation and result",
		}, []string{"operation", "result"}),
		cyclesAbsorbed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termgraph_cycles_absorbed_total",
			Help: "Cycles found in stored data and skipped by read-side traversals",
		}, []string{"operation"}),
		traversalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "termgraph_traversal_duration_seconds",
			Help:    "Time spent loading and traversing the relationship graph",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.mutations, m.cyclesAbsorbed, m.traversalDuration)
	}
	return m
}

func (m *Metrics) mutation(operation string, err error) {
	if m == nil {
		return
	}
	result := resultOK
	switch {
	case err == nil:
	case isRejection(err):
		result = resultRejected
	default:
		result = resultError
	}
	m.mutations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) cycleAbsorbed(operation string) {
	if m == nil {
		return
	}
	m.cyclesAbsorbed.WithLabelValues(operation).Inc()
}

func (m *Metrics) observeTraversal(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.traversalDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
