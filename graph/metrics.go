package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics exposes scheduler and operator instrumentation under the
// "flowgraph_" namespace:
//
//   - inflight_vertices (gauge): vertices currently executing; unlabeled.
//   - ready_queue_depth (gauge): vertices in the ready set awaiting a worker
//     slot, as reported through SetReadyQueueDepth. Nothing in this module
//     calls SetReadyQueueDepth, so the gauge stays at zero unless the
//     embedding program sets it.
//   - vertex_latency_ms (histogram): per-vertex execution duration, labeled by
//     session_id, vertex_id, status (success/error/skipped).
//   - retries_total (counter): labeled by session_id, vertex_id, reason. The
//     session metrics sink increments it once per node_failed whose kind
//     (the reason label) is model-unavailable, model-timeout or
//     search-unavailable, not once per individual retry attempt.
//   - sessions_active (gauge): open duplex sessions on this process.
//
// Thread-safe; methods are no-ops once Disable has been called.
type PrometheusMetrics struct {
	inflightVertices prometheus.Gauge
	readyQueueDepth  prometheus.Gauge
	sessionsActive   prometheus.Gauge

	vertexLatency *prometheus.HistogramVec
	retries       *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics registers every metric against registry. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() to isolate a test or an embedded server.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	pm := &PrometheusMetrics{enabled: true}

	pm.inflightVertices = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowgraph",
		Name:      "inflight_vertices",
		Help:      "Vertices currently executing across all sessions",
	})
	pm.readyQueueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowgraph",
		Name:      "ready_queue_depth",
		Help:      "Vertices in the ready set waiting for a worker slot",
	})
	pm.sessionsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowgraph",
		Name:      "sessions_active",
		Help:      "Open duplex sessions on this process",
	})
	pm.vertexLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flowgraph",
		Name:      "vertex_latency_ms",
		Help:      "Vertex execution duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
	}, []string{"session_id", "vertex_id", "status"})
	pm.retries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowgraph",
		Name:      "retries_total",
		Help:      "Gateway and search client retry attempts",
	}, []string{"session_id", "vertex_id", "reason"})

	return pm
}

// RecordVertexLatency observes one vertex's execution duration.
func (pm *PrometheusMetrics) RecordVertexLatency(sessionID, vertexID string, latency time.Duration, status string) {
	if !pm.isEnabled() {
		return
	}
	pm.vertexLatency.WithLabelValues(sessionID, vertexID, status).Observe(float64(latency.Milliseconds()))
}

// IncrementRetries increments the retry counter for a vertex's gateway or
// search call.
func (pm *PrometheusMetrics) IncrementRetries(sessionID, vertexID, reason string) {
	if !pm.isEnabled() {
		return
	}
	pm.retries.WithLabelValues(sessionID, vertexID, reason).Inc()
}

// SetReadyQueueDepth reports the current size of the scheduler's ready set.
func (pm *PrometheusMetrics) SetReadyQueueDepth(depth int) {
	if !pm.isEnabled() {
		return
	}
	pm.readyQueueDepth.Set(float64(depth))
}

// SetInflightVertices reports the current number of vertices holding a
// worker slot.
func (pm *PrometheusMetrics) SetInflightVertices(count int) {
	if !pm.isEnabled() {
		return
	}
	pm.inflightVertices.Set(float64(count))
}

// SessionOpened increments sessions_active; call SessionClosed on teardown.
func (pm *PrometheusMetrics) SessionOpened() {
	if !pm.isEnabled() {
		return
	}
	pm.sessionsActive.Inc()
}

// SessionClosed decrements sessions_active.
func (pm *PrometheusMetrics) SessionClosed() {
	if !pm.isEnabled() {
		return
	}
	pm.sessionsActive.Dec()
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// Disable stops metric recording; useful in tests that don't want to pollute
// a shared registry.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable re-enables metric recording after Disable.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}
