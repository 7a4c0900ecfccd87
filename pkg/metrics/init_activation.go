package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initActivationMetrics() {
	r.ActivationSetSize = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "synapse_activation_set_size",
			Help: "Number of node ids in the authoritative activation set",
		},
	)

	r.ActivationVersion = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "synapse_activation_version",
			Help: "Version of the authoritative activation set",
		},
	)

	r.ActivationWrites = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synapse_activation_writes_total",
			Help: "Writes to the activation set by operation",
		},
		[]string{"operation"},
	)

	r.AuthFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "synapse_auth_failures_total",
			Help: "Rejected control requests",
		},
	)
}
