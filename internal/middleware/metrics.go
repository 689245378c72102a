package middleware

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts verification outcomes by label.
type Metrics struct {
	outcomes *prometheus.CounterVec
}

// NewMetrics registers the verifier counters on reg. A nil reg yields
// unregistered counters, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prescripto",
			Subsystem: "auth",
			Name:      "verifications_total",
			Help:      "Token verifications by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes)
	}
	return m
}

func (m *Metrics) observe(o Outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(o.Label()).Inc()
}
