package session

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/emit"
)

// metricsEmitter adapts the C4 event stream onto the ambient
// PrometheusMetrics and the supplemented CostTracker (SPEC_FULL §11, §12):
// neither is shaped like an emit.Emitter, so this sink is the seam that
// turns node_start/node_finish/node_usage events into the counters,
// histograms and per-model cost totals they expose — the same role
// emit.OTelEmitter plays for tracing.
type metricsEmitter struct {
	sessionID string
	g         *graph.Graph
	metrics   *graph.PrometheusMetrics
	cost      *graph.CostTracker

	mu       sync.Mutex
	starts   map[string]time.Time
	inflight int
}

func newMetricsEmitter(sessionID string, g *graph.Graph, metrics *graph.PrometheusMetrics, cost *graph.CostTracker) *metricsEmitter {
	return &metricsEmitter{sessionID: sessionID, g: g, metrics: metrics, cost: cost, starts: make(map[string]time.Time)}
}

func (m *metricsEmitter) Emit(e emit.Event) {
	switch e.Type {
	case emit.TypeNodeStart:
		m.recordStart(e.VertexID)
	case emit.TypeNodeFinish, emit.TypeNodeFailed, emit.TypeNodeSkipped:
		m.recordTerminal(e)
	case emit.TypeNodeUsage:
		m.recordUsage(e)
	}
}

func (m *metricsEmitter) recordStart(vertexID string) {
	m.mu.Lock()
	m.starts[vertexID] = time.Now()
	m.inflight++
	inflight := m.inflight
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.SetInflightVertices(inflight)
	}
}

func (m *metricsEmitter) recordTerminal(e emit.Event) {
	m.mu.Lock()
	start, started := m.starts[e.VertexID]
	delete(m.starts, e.VertexID)
	if started && m.inflight > 0 {
		m.inflight--
	}
	inflight := m.inflight
	m.mu.Unlock()

	if m.metrics == nil {
		return
	}
	m.metrics.SetInflightVertices(inflight)

	status := "success"
	switch e.Type {
	case emit.TypeNodeFailed:
		status = "error"
		switch e.Kind {
		case graph.KindModelUnavailable, graph.KindModelTimeout, graph.KindSearchUnavailable:
			m.metrics.IncrementRetries(m.sessionID, e.VertexID, e.Kind)
		}
	case emit.TypeNodeSkipped:
		status = "skipped"
	}
	// node_skipped fires for a vertex that never started, so there is no
	// latency sample to record for it.
	if started {
		m.metrics.RecordVertexLatency(m.sessionID, e.VertexID, time.Since(start), status)
	}
}

func (m *metricsEmitter) recordUsage(e emit.Event) {
	if m.cost == nil {
		return
	}
	var modelID string
	if v, ok := m.g.Vertex(e.VertexID); ok {
		if s, ok := v.Config["model"].(string); ok {
			modelID = s
		}
	}
	m.cost.RecordLLMCall(modelID, e.Usage.InputTokens, e.Usage.OutputTokens, e.VertexID)
}

func (m *metricsEmitter) EmitBatch(_ context.Context, events []emit.Event) error {
	for _, e := range events {
		m.Emit(e)
	}
	return nil
}

func (m *metricsEmitter) Flush(context.Context) error { return nil }
