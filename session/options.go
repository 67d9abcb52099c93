// Package session implements C7, the duplex session controller: for each
// websocket connection it reads the client's one submission frame,
// validates and runs the graph it describes, and streams the resulting
// events back over the same connection until the run's terminal frame.
package session

import (
	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/emit"
	"github.com/dshills/flowgraph-engine/graph/model"
	searchclient "github.com/dshills/flowgraph-engine/graph/search"
	"github.com/dshills/flowgraph-engine/graph/store"
)

// Controller holds the server-wide configuration every session serves
// under: the hosted gateway's base URL (the client supplies its own
// model-gateway API key per spec §6), and whatever shared observability
// or search configuration the operator wants every session to use.
// Controller itself holds no per-connection state; Serve is safe to call
// concurrently for any number of connections.
type Controller struct {
	baseURL string

	concurrency  int64
	searchClient *searchclient.Client
	fallback     model.StreamingChatModel
	gatewayOpts  []model.GatewayOption
	retryPolicy  *graph.RetryPolicy

	eventStore store.EventStore
	extraSinks []emit.Emitter

	metrics      *graph.PrometheusMetrics
	costCurrency string
}

// Option configures a Controller at construction.
type Option func(*Controller)

// WithConcurrency overrides the scheduler's default of 5 concurrently
// executing vertices (§4.6) for every session this Controller serves.
func WithConcurrency(n int64) Option {
	return func(c *Controller) { c.concurrency = n }
}

// WithSearchClient sets the C3 client every search vertex calls through.
// Without one, Serve falls back to an unconfigured client whose calls
// fail with search-unavailable — fine for a deployment with no search
// vertices, a config error otherwise.
func WithSearchClient(sc *searchclient.Client) Option {
	return func(c *Controller) { c.searchClient = sc }
}

// WithFallbackModel sets the model every session's gateway falls back to
// after three consecutive primary failures (§4.2). Without one, a
// session's gateway has no fallback and keeps retrying the primary.
func WithFallbackModel(m model.StreamingChatModel) Option {
	return func(c *Controller) { c.fallback = m }
}

// WithGatewayOptions passes additional model.GatewayOption values to
// every session's Gateway construction, e.g. model.WithCallTimeout.
func WithGatewayOptions(opts ...model.GatewayOption) Option {
	return func(c *Controller) { c.gatewayOpts = append(c.gatewayOpts, opts...) }
}

// WithRetryPolicy overrides graph.DefaultGatewayRetryPolicy for every
// session's gateway.
func WithRetryPolicy(rp graph.RetryPolicy) Option {
	return func(c *Controller) { c.retryPolicy = &rp }
}

// WithEventStore registers an optional off-by-default debug/audit sink
// (graph/store) alongside the websocket sink on every session's Bus.
func WithEventStore(es store.EventStore) Option {
	return func(c *Controller) { c.eventStore = es }
}

// WithEventSink registers an additional emit.Emitter (e.g. an
// emit.OTelEmitter or emit.LogEmitter) alongside the websocket sink on
// every session's Bus.
func WithEventSink(sink emit.Emitter) Option {
	return func(c *Controller) { c.extraSinks = append(c.extraSinks, sink) }
}

// WithMetrics attaches a shared graph.PrometheusMetrics instance: every
// session this Controller serves reports its vertex latencies, retry
// counts, and in-flight gauge into it. The caller owns the instance and
// its registry (e.g. to expose it on a /metrics endpoint); Controller
// never constructs one on its own, since all sessions must share the
// same registry.
func WithMetrics(m *graph.PrometheusMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithCostTracking turns on the supplemented per-session cost ledger
// (SPEC_FULL §12): each session gets its own graph.CostTracker, priced in
// currency, that accumulates one entry per node_usage event.
func WithCostTracking(currency string) Option {
	return func(c *Controller) { c.costCurrency = currency }
}

// New returns a Controller that serves sessions against the hosted
// gateway at baseURL (e.g. "https://openrouter.ai/api/v1").
func New(baseURL string, opts ...Option) *Controller {
	c := &Controller{baseURL: baseURL, concurrency: 5}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
