package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/emit"
	"github.com/dshills/flowgraph-engine/graph/model"
	"github.com/dshills/flowgraph-engine/graph/model/hosted"
	searchclient "github.com/dshills/flowgraph-engine/graph/search"
	"github.com/dshills/flowgraph-engine/internal/obslog"
	"github.com/dshills/flowgraph-engine/operator"
	"github.com/dshills/flowgraph-engine/wire"
)

// readFrameTimeout bounds how long Serve waits for the client's single
// submission frame before giving up on the connection.
const readFrameTimeout = 30 * time.Second

// Serve drives one duplex connection end to end (spec §6): read the
// client's submission frame, validate and run the graph it describes,
// stream every emitted event back as a wire frame, and let the run's own
// terminal event (execution_complete or execution_error, published by
// graph.Run through the Bus) close out the exchange. Serve returns once
// the connection has nothing further to do, including when the frame
// never parsed or the graph never validated — those are reported as an
// execution_error frame written directly, since no Bus exists yet to
// carry it.
func (c *Controller) Serve(ctx context.Context, conn *websocket.Conn) error {
	id := uuid.NewString()

	readCtx, cancel := context.WithTimeout(ctx, readFrameTimeout)
	_, raw, err := conn.Read(readCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("session %s: read client frame: %w", id, err)
	}

	frame, err := wire.ParseClientFrame(raw)
	if err != nil {
		return c.rejectBeforeRun(ctx, conn, id, graph.KindInvalidGraph, graph.KindInvalidGraph+": "+err.Error())
	}

	g, err := graph.Validate(frame.Doc)
	if err != nil {
		return c.rejectBeforeRun(ctx, conn, id, invalidGraphCode(err), err.Error())
	}

	var cost *graph.CostTracker
	if c.costCurrency != "" {
		cost = graph.NewCostTracker(id, c.costCurrency)
	}

	sinks := append([]emit.Emitter{newWSEmitter(conn)}, c.extraSinks...)
	if c.eventStore != nil {
		sinks = append(sinks, c.eventStore)
	}
	if c.metrics != nil || cost != nil {
		sinks = append(sinks, newMetricsEmitter(id, g, c.metrics, cost))
	}
	bus := emit.NewBus(id, sinks...)

	if c.metrics != nil {
		c.metrics.SessionOpened()
		defer c.metrics.SessionClosed()
	}

	gw := c.buildGateway(frame.APIKey)
	dispatch := operator.NewDispatch(gw, c.searchClientOrDefault())

	obslog.Info("session starting run", "session", id, "vertices", len(g.Vertices))
	runErr := graph.Run(ctx, g, dispatch, bus, c.concurrency)
	if flushErr := bus.Flush(ctx); flushErr != nil {
		obslog.Warn("session flush failed", "session", id, "error", flushErr.Error())
	}
	if runErr != nil {
		obslog.Warn("session run ended with a run-level fault", "session", id, "error", runErr.Error())
	}
	if cost != nil {
		obslog.Info("session cost", "session", id, "total", cost.GetTotalCost())
	}
	return runErr
}

// rejectBeforeRun writes a single execution_error frame for a failure
// caught before graph.Run ever started, then returns it as a Go error so
// the caller's own logging/metrics see it too.
func (c *Controller) rejectBeforeRun(ctx context.Context, conn *websocket.Conn, id, kind, msg string) error {
	obslog.Warn("session rejected before run", "session", id, "kind", kind, "error", msg)
	data, encErr := wire.EncodeEvent(emit.Event{Type: emit.TypeExecutionError, Error: msg, Kind: kind})
	if encErr != nil {
		return encErr
	}
	if writeErr := conn.Write(ctx, websocket.MessageText, data); writeErr != nil {
		return fmt.Errorf("session %s: write rejection frame: %w", id, writeErr)
	}
	return &graph.EngineError{Code: kind, Message: msg}
}

func invalidGraphCode(err error) string {
	var ee *graph.EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return graph.KindInvalidGraph
}

// buildGateway wires a fresh model.Gateway around the hosted adapter,
// authenticated with the API key the client submitted in this session's
// frame (§6) — every session gets its own Gateway since the key, and
// therefore the billing account behind it, differs per connection.
func (c *Controller) buildGateway(apiKey string) *model.Gateway {
	primary := hosted.NewChatModel(apiKey, c.baseURL)

	opts := make([]model.GatewayOption, 0, len(c.gatewayOpts)+2)
	opts = append(opts, c.gatewayOpts...)
	if c.fallback != nil {
		opts = append(opts, model.WithFallback(c.fallback))
	}
	if c.retryPolicy != nil {
		opts = append(opts, model.WithRetryPolicy(*c.retryPolicy))
	}
	return model.NewGateway(primary, opts...)
}

func (c *Controller) searchClientOrDefault() *searchclient.Client {
	if c.searchClient != nil {
		return c.searchClient
	}
	return searchclient.NewClient("", "")
}
