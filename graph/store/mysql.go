package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/flowgraph-engine/graph/emit"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLEventStore is a MySQL/MariaDB backend for the debug/audit event
// sink, for deployments where the event log needs to outlive a single
// server process or be queried from multiple instances.
type MySQLEventStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewMySQLEventStore opens a connection pool against dsn and prepares
// the events table. dsn follows go-sql-driver/mysql's DSN format, e.g.
// "user:password@tcp(127.0.0.1:3306)/flowgraph?parseTime=true".
func NewMySQLEventStore(dsn string) (*MySQLEventStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS events (
			id         BIGINT AUTO_INCREMENT PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL,
			ordinal    BIGINT NOT NULL,
			event_data JSON NOT NULL,
			INDEX idx_events_session (session_id, ordinal)
		) ENGINE=InnoDB
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}

	return &MySQLEventStore{db: db}, nil
}

// Emit persists event synchronously, swallowing write failures per
// emit.Emitter's no-error contract; a slow or unreachable audit log must
// never fail the run it is observing.
func (s *MySQLEventStore) Emit(event emit.Event) {
	_ = s.insert(context.Background(), event)
}

// EmitBatch persists every event in order inside one transaction.
func (s *MySQLEventStore) EmitBatch(ctx context.Context, events []emit.Event) error {
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

func (s *MySQLEventStore) insert(ctx context.Context, e emit.Event) error {
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
func (s *MySQLEventStore) Flush(context.Context) error { return nil }

// Events returns every event recorded for sessionID in publish order.
func (s *MySQLEventStore) Events(ctx context.Context, sessionID string) ([]emit.Event, error) {
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

// Close closes the underlying connection pool. Safe to call once.
func (s *MySQLEventStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
