package restserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics is the set of collectors exposed on /metrics. Each controller owns
// its registry so several can coexist in one process.
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	points   prometheus.Counter
	failures *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suntrack_http_requests_total",
			Help: "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "suntrack_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		points: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "suntrack_points_computed_total",
			Help: "Tracker angle samples computed",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suntrack_compute_failures_total",
			Help: "Rejected or failed computations by error kind",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.points,
		m.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
