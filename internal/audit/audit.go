// Package audit implements a durable ledger of operational events —
// connects, disconnects, retry-budget escalations, and server exceptions
// returned — keyed by endpoint id and timestamp. It is explicitly not a
// persistence of register state, which stays a non-goal; only the fact that
// something happened is recorded, never the values involved.
//
// Adapted from feiyuluoye-mutil-modbus/internal/db/sqlite.go: the same raw
// database/sql + modernc.org/sqlite connection/migrate/query idiom, retargeted
// from a fixed point_values/servers/devices schema to a single append-only
// events table.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Severity classifies an event for filtering and display.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Kind names the operational condition an Event records.
type Kind string

const (
	KindConnected       Kind = "connected"
	KindDisconnected    Kind = "disconnected"
	KindRetryEscalation Kind = "retry_escalation"
	KindTimedOut        Kind = "timed_out"
	KindServerException Kind = "server_exception"
	KindOperational     Kind = "operational"
)

// Event is one row of the ledger.
type Event struct {
	ID        string
	Endpoint  string
	Kind      Kind
	Severity  Severity
	Message   string
	Timestamp time.Time
}

// Ledger wraps the sqlite connection backing the event table.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and applies
// the ledger's schema, mirroring db.Open/db.migrate.
func Open(path string) (*Ledger, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", path)
	s, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	if err := s.Ping(); err != nil {
		s.Close()
		return nil, fmt.Errorf("audit: ping %s: %w", path, err)
	}
	l := &Ledger{db: s}
	if err := l.migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    endpoint TEXT NOT NULL,
    kind TEXT NOT NULL,
    severity TEXT NOT NULL,
    message TEXT NOT NULL,
    timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_endpoint ON events(endpoint);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
`
	_, err := l.db.Exec(schema)
	return err
}

// Close closes the underlying connection.
func (l *Ledger) Close() error { return l.db.Close() }

// Record appends one event, stamping it with a fresh id and the given
// timestamp.
func (l *Ledger) Record(ctx context.Context, endpoint string, kind Kind, severity Severity, message string, at time.Time) error {
	const q = `INSERT INTO events (id, endpoint, kind, severity, message, timestamp) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := l.db.ExecContext(ctx, q, uuid.NewString(), endpoint, string(kind), string(severity), message, at)
	if err != nil {
		return fmt.Errorf("audit: record event: %w", err)
	}
	return nil
}

// Recent returns the most recent events for endpoint, newest first, capped
// at limit (DevicePointsWithLimit's query shape).
func (l *Ledger) Recent(ctx context.Context, endpoint string, limit int) ([]Event, error) {
	const q = `
SELECT id, endpoint, kind, severity, message, timestamp
FROM events
WHERE endpoint = ?
ORDER BY timestamp DESC
LIMIT ?;
`
	rows, err := l.db.QueryContext(ctx, q, endpoint, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var kind, severity string
		if err := rows.Scan(&e.ID, &e.Endpoint, &kind, &severity, &e.Message, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("audit: scan event row: %w", err)
		}
		e.Kind = Kind(kind)
		e.Severity = Severity(severity)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountBySeverity aggregates event counts per severity across all endpoints,
// useful for a dashboard-style summary (Stats/StatsJSON's aggregation role).
func (l *Ledger) CountBySeverity(ctx context.Context) (map[Severity]int, error) {
	const q = `SELECT severity, COUNT(*) FROM events GROUP BY severity`
	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("audit: count by severity: %w", err)
	}
	defer rows.Close()

	out := make(map[Severity]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("audit: scan severity count: %w", err)
		}
		out[Severity(severity)] = count
	}
	return out, rows.Err()
}
