package metrics

import (
	"runtime"
	"time"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

// All Record/Update helpers are safe on a nil *Registry so components can run
// without metrics in tests.

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the size of an HTTP response body
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	if r == nil {
		return
	}
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() {
	if r == nil {
		return
	}
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() {
	if r == nil {
		return
	}
	r.HTTPRequestsInFlight.Dec()
}

// RecordActivationWrite records a write to the authoritative activation set
func (r *Registry) RecordActivationWrite(operation string, size int, version uint64) {
	if r == nil {
		return
	}
	r.ActivationWrites.WithLabelValues(operation).Inc()
	r.ActivationSetSize.Set(float64(size))
	r.ActivationVersion.Set(float64(version))
}

// RecordAuthFailure counts a rejected control request
func (r *Registry) RecordAuthFailure() {
	if r == nil {
		return
	}
	r.AuthFailuresTotal.Inc()
}

// Poll results.
const (
	PollUnchanged = "unchanged"
	PollChanged   = "changed"
	PollError     = "error"
)

// RecordPoll records one status poll
func (r *Registry) RecordPoll(result string, duration time.Duration) {
	if r == nil {
		return
	}
	r.ReconcilePollsTotal.WithLabelValues(result).Inc()
	r.ReconcilePollDuration.Observe(duration.Seconds())
	if result != PollError {
		r.ReconcileLastSuccess.SetToCurrentTime()
	}
}

// RecordTransitions records the transitions implied by one applied diff
func (r *Registry) RecordTransitions(activated, deactivated, snapshotSize int) {
	if r == nil {
		return
	}
	r.ReconcileTransitions.WithLabelValues("activate").Add(float64(activated))
	r.ReconcileTransitions.WithLabelValues("deactivate").Add(float64(deactivated))
	r.ReconcileSnapshotSize.Set(float64(snapshotSize))
}

// RecordDroppedDiffs counts diffs a slow subscriber missed
func (r *Registry) RecordDroppedDiffs(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.ReconcileDroppedDiffs.Add(float64(n))
}

// RecordBroadcast records one message on the external bus
func (r *Registry) RecordBroadcast(result string) {
	if r == nil {
		return
	}
	r.BroadcastMessagesTotal.WithLabelValues(result).Inc()
}

// SceneGauges is a point-in-time view of the scene.
type SceneGauges struct {
	Nodes       int
	Edges       int
	Halos       int
	ActiveNodes int
	ActiveEdges int
	Generation  uint64
}

// UpdateSceneMetrics updates scene-related gauges
func (r *Registry) UpdateSceneMetrics(g SceneGauges) {
	if r == nil {
		return
	}
	r.SceneNodes.Set(float64(g.Nodes))
	r.SceneEdges.Set(float64(g.Edges))
	r.SceneResources.WithLabelValues("node").Set(float64(g.Nodes))
	r.SceneResources.WithLabelValues("edge").Set(float64(g.Edges))
	r.SceneResources.WithLabelValues("halo").Set(float64(g.Halos))
	r.SceneActive.WithLabelValues("node").Set(float64(g.ActiveNodes))
	r.SceneActive.WithLabelValues("edge").Set(float64(g.ActiveEdges))
	r.SceneGeneration.Set(float64(g.Generation))
}

// RecordBuildBatch counts one incremental build batch
func (r *Registry) RecordBuildBatch() {
	if r == nil {
		return
	}
	r.SceneBuildBatches.Inc()
}

// RecordUnknownIDs counts activation ids with no matching node
func (r *Registry) RecordUnknownIDs(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.SceneUnknownIDs.Add(float64(n))
}

// RecordIngestStats records the records dropped while ingesting a graph
func (r *Registry) RecordIngestStats(s graph.IngestStats) {
	if r == nil {
		return
	}
	for reason, n := range map[string]int{
		"malformed_node": s.MalformedNodes,
		"duplicate_node": s.DuplicateNodes,
		"truncated_node": s.TruncatedNodes,
		"malformed_edge": s.MalformedEdges,
		"duplicate_edge": s.DuplicateEdges,
		"dangling_edge":  s.DanglingEdges,
		"truncated_edge": s.TruncatedEdges,
	} {
		if n > 0 {
			r.SceneIngestDropped.WithLabelValues(reason).Add(float64(n))
		}
	}
}

// RecordFrame records one scheduler tick
func (r *Registry) RecordFrame(executed bool, work time.Duration) {
	if r == nil {
		return
	}
	if !executed {
		r.SchedulerFramesTotal.WithLabelValues("skipped").Inc()
		return
	}
	r.SchedulerFramesTotal.WithLabelValues("executed").Inc()
	r.SchedulerFrameSeconds.Observe(work.Seconds())
}

// SetProcess labels the registry with the binary it belongs to.
func (r *Registry) SetProcess(name string) {
	if r == nil {
		return
	}
	r.ProcessInfo.Reset()
	r.ProcessInfo.WithLabelValues(name).Set(1)
}

// UpdateSystemMetrics samples runtime statistics. Concurrent callers are
// serialized so ReadMemStats runs once at a time.
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
	r.GCPauseSeconds.Set(time.Duration(m.PauseTotalNs).Seconds())
}
