// Package store adapts the optional, off-by-default debug/audit event
// sink to a durable backend. It holds raw emitted events, not a
// checkpoint or resumable execution history (that remains out of scope,
// see SPEC_FULL.md §13): a session wires an EventStore in alongside the
// websocket sink purely so a finished run's events can be pulled back out
// later for debugging.
package store

import (
	"context"
	"errors"

	"github.com/dshills/flowgraph-engine/graph/emit"
)

// ErrNotFound is returned when a requested session has no recorded events.
var ErrNotFound = errors.New("not found")

// EventStore is an emit.Emitter that can also answer for the events it
// has recorded. A session's Bus is constructed with an EventStore as one
// of its sinks when the operator enables the debug/audit log; nothing in
// the scheduler or an operator reads it back.
type EventStore interface {
	emit.Emitter

	// Events returns every event recorded for sessionID, in publish
	// order (by Ordinal). Returns ErrNotFound if no events were ever
	// recorded for that session.
	Events(ctx context.Context, sessionID string) ([]emit.Event, error)

	// Close releases the backend's resources. Safe to call once a
	// session's Flush has returned.
	Close() error
}
