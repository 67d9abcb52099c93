package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dshills/flowgraph-engine/graph/emit"
	_ "modernc.org/sqlite"
)

// SQLiteEventStore is a single-file SQLite backend for the debug/audit
// event sink. Designed for local development and single-process
// deployments: zero external setup, one file, WAL mode for concurrent
// reads while a session is still writing.
type SQLiteEventStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteEventStore opens (creating if necessary) a SQLite database at
// path and prepares its schema. Use ":memory:" for an ephemeral store.
func NewSQLiteEventStore(path string) (*SQLiteEventStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			ordinal    INTEGER NOT NULL,
			event_data TEXT NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, ordinal)"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create events index: %w", err)
	}

	return &SQLiteEventStore{db: db}, nil
}

// Emit persists event synchronously. A write failure is swallowed rather
// than propagated: Emitter.Emit has no error return, and a debug sink
// must never be the reason a run fails (see emit.Emitter's no-block
// contract).
func (s *SQLiteEventStore) Emit(event emit.Event) {
	_ = s.insert(context.Background(), event)
}

// EmitBatch persists every event in order inside one transaction.
func (s *SQLiteEventStore) EmitBatch(ctx context.Context, events []emit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("event store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal event: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO events (session_id, ordinal, event_data) VALUES (?, ?, ?)",
			e.SessionID, e.Ordinal, string(data),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteEventStore) insert(ctx context.Context, e emit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("event store is closed")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO events (session_id, ordinal, event_data) VALUES (?, ?, ?)",
		e.SessionID, e.Ordinal, string(data),
	)
	return err
}

// Flush is a no-op: every write already committed synchronously.
func (s *SQLiteEventStore) Flush(context.Context) error { return nil }

// Events returns every event recorded for sessionID in publish order.
func (s *SQLiteEventStore) Events(ctx context.Context, sessionID string) ([]emit.Event, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("event store is closed")
	}
	s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT event_data FROM events WHERE session_id = ? ORDER BY ordinal ASC", sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []emit.Event
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e emit.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events, nil
}

// Close closes the underlying database connection. Safe to call once.
func (s *SQLiteEventStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
