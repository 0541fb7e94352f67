package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the domain-level Prometheus collectors shared by the
// audit and document services. A nil *Metrics disables collection.
type Metrics struct {
	transitionsTotal *prometheus.CounterVec
	sweepTransitions prometheus.Counter
	dedupHits        prometheus.Counter
}

// NewMetrics registers the domain collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_state_transitions_total",
				Help: "Total number of audit state transitions performed.",
			},
			[]string{"from", "to"},
		),
		sweepTransitions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_sweep_transitions_total",
				Help: "Total number of transitions performed by the deadline sweep.",
			},
		),
		dedupHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "document_dedup_hits_total",
				Help: "Total number of uploads deduplicated by content hash.",
			},
		),
	}
	for _, c := range []prometheus.Collector{m.transitionsTotal, m.sweepTransitions, m.dedupHits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) observeSweepTransition() {
	if m == nil {
		return
	}
	m.sweepTransitions.Inc()
}

func (m *Metrics) observeDedupHit() {
	if m == nil {
		return
	}
	m.dedupHits.Inc()
}
