package session

import (
	"context"
	"time"

	"nhooyr.io/websocket"

	"github.com/dshills/flowgraph-engine/graph/emit"
	"github.com/dshills/flowgraph-engine/internal/obslog"
	"github.com/dshills/flowgraph-engine/wire"
)

// writeTimeout bounds one frame write so a stalled client can't hang the
// operator goroutine that called Emit indefinitely (§9: a sink "must not
// block for I/O").
const writeTimeout = 10 * time.Second

// wsEmitter is the Bus sink that puts events on the wire: every Emit call
// encodes one emit.Event as a wire.ServerFrame and writes it as a single
// websocket text message. emit.Emitter.Emit has no error return, so a
// write failure is logged rather than propagated — a broken connection
// surfaces instead through Serve's own read or through graph.Run's
// eventual cancellation.
type wsEmitter struct {
	conn *websocket.Conn
}

func newWSEmitter(conn *websocket.Conn) *wsEmitter {
	return &wsEmitter{conn: conn}
}

func (w *wsEmitter) Emit(event emit.Event) {
	data, err := wire.EncodeEvent(event)
	if err != nil {
		obslog.Error("failed to encode event frame", "type", string(event.Type), "error", err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := w.conn.Write(ctx, websocket.MessageText, data); err != nil {
		obslog.Error("failed to write event frame", "type", string(event.Type), "error", err.Error())
	}
}

// EmitBatch writes every event in order, stopping at the first failure so
// EventStore-style callers that do care about the error see it.
func (w *wsEmitter) EmitBatch(ctx context.Context, events []emit.Event) error {
	for _, e := range events {
		data, err := wire.EncodeEvent(e)
		if err != nil {
			return err
		}
		if err := w.conn.Write(ctx, websocket.MessageText, data); err != nil {
			return err
		}
	}
	return nil
}

// Flush is a no-op: wsEmitter holds no buffer of its own.
func (w *wsEmitter) Flush(context.Context) error { return nil }
