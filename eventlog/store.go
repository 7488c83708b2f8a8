// Package eventlog persists presence events in SQLite.
package eventlog

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/encodeous/nbrd/state"
	_ "modernc.org/sqlite"
)

// Record is one stored presence event.
type Record struct {
	Node     state.PeerId
	Event    state.Event
	Recorded time.Time
}

// Store is a SQLite-backed presence event log. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and initialises the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %q: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("eventlog: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS presence_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  node INTEGER NOT NULL,
  kind TEXT NOT NULL,
  at INTEGER NOT NULL,
  peer INTEGER NOT NULL,
  recorded_unix INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS presence_events_node ON presence_events (node, peer);`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("eventlog: init schema: %w", err)
	}
	return nil
}

// Record appends an event observed by node.
func (s *Store) Record(node state.PeerId, e state.Event) error {
	_, err := s.db.Exec(
		`INSERT INTO presence_events (node, kind, at, peer, recorded_unix) VALUES (?, ?, ?, ?, ?)`,
		int64(node), e.Kind.String(), int64(e.At), int64(e.Peer), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("eventlog: record %s: %w", e, err)
	}
	return nil
}

// List returns the events recorded by node in insertion order.
func (s *Store) List(node state.PeerId) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT node, kind, at, peer, recorded_unix FROM presence_events WHERE node = ? ORDER BY id`,
		int64(node),
	)
	if err != nil {
		return nil, fmt.Errorf("eventlog: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			n, at, peer, recorded int64
			kind                  string
		)
		if err := rows.Scan(&n, &kind, &at, &peer, &recorded); err != nil {
			return nil, fmt.Errorf("eventlog: scan: %w", err)
		}
		k, err := state.ParseEventKind(kind)
		if err != nil {
			return nil, fmt.Errorf("eventlog: %w", err)
		}
		out = append(out, Record{
			Node:     state.PeerId(n),
			Event:    state.Event{Kind: k, At: state.Seconds(at), Peer: state.PeerId(peer)},
			Recorded: time.Unix(recorded, 0),
		})
	}
	return out, rows.Err()
}

// Sink returns an EventSink recording events on behalf of node. Write
// failures are logged and the event is dropped.
func (s *Store) Sink(node state.PeerId, log *slog.Logger) state.EventSink {
	return nodeSink{s, node, log}
}

type nodeSink struct {
	store *Store
	node  state.PeerId
	log   *slog.Logger
}

func (n nodeSink) Emit(e state.Event) {
	if err := n.store.Record(n.node, e); err != nil {
		n.log.Warn("failed to store presence event", "error", err)
	}
}
