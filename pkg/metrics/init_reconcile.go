package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initReconcileMetrics() {
	r.ReconcilePollsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synapse_reconcile_polls_total",
			Help: "Status polls by result (unchanged, changed, error)",
		},
		[]string{"result"},
	)

	r.ReconcilePollDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synapse_reconcile_poll_duration_seconds",
			Help:    "Latency of status polls",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	r.ReconcileTransitions = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synapse_reconcile_transitions_total",
			Help: "Activation transitions published by direction",
		},
		[]string{"direction"},
	)

	r.ReconcileSnapshotSize = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "synapse_reconcile_snapshot_size",
			Help: "Size of the last applied activation snapshot",
		},
	)

	r.ReconcileLastSuccess = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "synapse_reconcile_last_success_timestamp_seconds",
			Help: "Unix time of the last successful poll",
		},
	)

	r.ReconcileDroppedDiffs = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "synapse_reconcile_dropped_diffs_total",
			Help: "Diffs dropped because a subscriber was not keeping up",
		},
	)

	r.BroadcastMessagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synapse_broadcast_messages_total",
			Help: "Activation diffs sent on the external bus by result",
		},
		[]string{"result"},
	)
}
