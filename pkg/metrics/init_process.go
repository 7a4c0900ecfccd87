package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initHTTPMetrics registers the request metrics shared by the authority API
// and the scene runner's ops listener. Routes are ServeMux patterns, never raw
// paths, so node ids cannot create series.
func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "synapse_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code",
	}, []string{"method", "route", "status"})

	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "synapse_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route pattern and status code",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1},
	}, []string{"method", "route", "status"})

	r.HTTPRequestsInFlight = f.NewGauge(prometheus.GaugeOpts{
		Name: "synapse_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})

	r.HTTPResponseSizeBytes = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "synapse_http_response_size_bytes",
		Help:    "HTTP response body size",
		Buckets: prometheus.ExponentialBuckets(64, 4, 8),
	}, []string{"method", "route"})
}

// initProcessMetrics registers runtime gauges sampled by UpdateSystemMetrics
// and the process identity set by SetProcess.
func (r *Registry) initProcessMetrics() {
	f := promauto.With(r.registry)

	r.ProcessInfo = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "synapse_process_info",
		Help: "Always 1; the process label names the binary (authority or scene)",
	}, []string{"process"})

	r.UptimeSeconds = f.NewGauge(prometheus.GaugeOpts{
		Name: "synapse_uptime_seconds",
		Help: "Seconds since the process started",
	})

	r.GoRoutines = f.NewGauge(prometheus.GaugeOpts{
		Name: "synapse_goroutines",
		Help: "Live goroutines",
	})

	r.MemoryAllocBytes = f.NewGauge(prometheus.GaugeOpts{
		Name: "synapse_memory_alloc_bytes",
		Help: "Bytes of allocated heap objects",
	})

	r.MemorySysBytes = f.NewGauge(prometheus.GaugeOpts{
		Name: "synapse_memory_sys_bytes",
		Help: "Bytes of memory obtained from the OS",
	})

	r.GCPauseSeconds = f.NewGauge(prometheus.GaugeOpts{
		Name: "synapse_gc_pause_seconds_total",
		Help: "Cumulative stop-the-world GC pause; frame drops correlate with jumps here",
	})
}
