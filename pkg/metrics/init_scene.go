package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSceneMetrics() {
	r.SceneNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "synapse_scene_nodes",
			Help: "Materialized spatial nodes",
		},
	)

	r.SceneEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "synapse_scene_edges",
			Help: "Materialized spatial edges",
		},
	)

	r.SceneResources = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "synapse_scene_resources",
			Help: "Live render resources by kind",
		},
		[]string{"kind"},
	)

	r.SceneActive = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "synapse_scene_active",
			Help: "Active entities by kind",
		},
		[]string{"kind"},
	)

	r.SceneGeneration = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "synapse_scene_generation",
			Help: "Current scene generation; bumped by every refresh",
		},
	)

	r.SceneBuildBatches = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "synapse_scene_build_batches_total",
			Help: "Incremental build batches executed",
		},
	)

	r.SceneUnknownIDs = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "synapse_scene_unknown_ids_total",
			Help: "Activation ids with no matching spatial node",
		},
	)

	r.SceneIngestDropped = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synapse_scene_ingest_dropped_total",
			Help: "Graph records dropped during ingestion by reason",
		},
		[]string{"reason"},
	)

	r.SchedulerFramesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synapse_scheduler_frames_total",
			Help: "Scheduler ticks by outcome (executed, skipped)",
		},
		[]string{"outcome"},
	)

	r.SchedulerFrameSeconds = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synapse_scheduler_frame_seconds",
			Help:    "Work time of executed frames",
			Buckets: []float64{.0005, .001, .002, .004, .008, .016, .033, .066},
		},
	)
}
