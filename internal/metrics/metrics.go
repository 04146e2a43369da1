package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ragchat"

// AuthMetrics counts register, login and authenticate outcomes.
type AuthMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_outcomes_total",
			Help:      "Authentication operations by outcome.",
		}, []string{"operation", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes)
	}
	return m
}

func (m *AuthMetrics) Record(operation, outcome string) {
	m.outcomes.WithLabelValues(operation, outcome).Inc()
}
