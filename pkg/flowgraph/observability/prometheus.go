package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// promMetrics implements MetricsRecorder with Prometheus collectors.
type promMetrics struct {
	nodeExecutions  *prometheus.CounterVec
	nodeLatency     *prometheus.HistogramVec
	graphRuns       *prometheus.CounterVec
	graphLatency    prometheus.Histogram
	dependencyCalls *prometheus.CounterVec
	dependencyLat   *prometheus.HistogramVec
}

var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}

// NewPrometheusRecorder returns a MetricsRecorder whose collectors are
// registered on reg. It panics if they are already registered there.
func NewPrometheusRecorder(reg prometheus.Registerer) MetricsRecorder {
	m := &promMetrics{
		nodeExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_node_executions_total",
			Help: "Node executions by node and result.",
		}, []string{"node_id", "result"}),
		nodeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowgraph_node_latency_seconds",
			Help:    "Node execution latency.",
			Buckets: latencyBuckets,
		}, []string{"node_id"}),
		graphRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_graph_runs_total",
			Help: "Graph runs by result.",
		}, []string{"result"}),
		graphLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowgraph_graph_latency_seconds",
			Help:    "Graph run latency.",
			Buckets: latencyBuckets,
		}),
		dependencyCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_dependency_calls_total",
			Help: "Calls to model, store and image services by result.",
		}, []string{"dependency", "result"}),
		dependencyLat: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowgraph_dependency_latency_seconds",
			Help:    "Dependency call latency.",
			Buckets: latencyBuckets,
		}, []string{"dependency"}),
	}
	reg.MustRegister(
		m.nodeExecutions, m.nodeLatency,
		m.graphRuns, m.graphLatency,
		m.dependencyCalls, m.dependencyLat,
	)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *promMetrics) RecordNodeExecution(_ context.Context, nodeID string, duration time.Duration, err error) {
	m.nodeExecutions.WithLabelValues(nodeID, result(err)).Inc()
	m.nodeLatency.WithLabelValues(nodeID).Observe(duration.Seconds())
}

func (m *promMetrics) RecordGraphRun(_ context.Context, success bool, duration time.Duration) {
	label := "ok"
	if !success {
		label = "error"
	}
	m.graphRuns.WithLabelValues(label).Inc()
	m.graphLatency.Observe(duration.Seconds())
}

func (m *promMetrics) RecordDependencyCall(_ context.Context, dependency string, duration time.Duration, err error) {
	m.dependencyCalls.WithLabelValues(dependency, result(err)).Inc()
	m.dependencyLat.WithLabelValues(dependency).Observe(duration.Seconds())
}
