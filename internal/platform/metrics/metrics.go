package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the compliance core.
type Metrics struct {
	GateDecisions        *prometheus.CounterVec
	AuditAppendFailures  prometheus.Counter
	FieldDecryptFailures prometheus.Counter
	TokenVerifications   *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		GateDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "varsityhub_gate_decisions_total",
			Help: "Access gate evaluations by data classification and outcome",
		}, []string{"classification", "outcome"}),
		AuditAppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "varsityhub_audit_append_failures_total",
			Help: "Audit entries dropped because the store rejected the write",
		}),
		FieldDecryptFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "varsityhub_field_decrypt_failures_total",
			Help: "PHI fields replaced with the unreadable placeholder on read",
		}),
		TokenVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "varsityhub_access_token_verifications_total",
			Help: "Health data access token verification attempts by result",
		}, []string{"result"}),
	}
}
