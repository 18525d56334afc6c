package middleware

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeAllow           = "allow"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeForbidden       = "forbidden"
	OutcomeError           = "error"
)

// Metrics counts guard decisions per gate and outcome.
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics registers the guard collectors with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_guard_decisions_total",
		Help: "Request guard decisions partitioned by gate and outcome.",
	}, []string{"gate", "outcome"})
	registerer.MustRegister(decisions)
	return &Metrics{decisions: decisions}
}

func (m *Metrics) observe(gate, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(gate, outcome).Inc()
}
