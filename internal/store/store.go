// Package store is the optional SQLite mirror of SessionLogger's NDJSON
// stream: every feat/key/ime_state record is additionally inserted into a
// local database so a post-hoc analyser can query sessions by time range
// instead of re-parsing NDJSON. Carries both SQL drivers:
// github.com/mattn/go-sqlite3 (cgo) and modernc.org/sqlite (pure Go),
// selected by the cgo build tag in driver_cgo.go / driver_nocgo.go.
package store

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_start_ms INTEGER PRIMARY KEY,
	session_end_ms   INTEGER
);

CREATE TABLE IF NOT EXISTS records (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	session_start_ms INTEGER NOT NULL REFERENCES sessions(session_start_ms),
	t_ms             INTEGER NOT NULL,
	type             TEXT NOT NULL,
	p_flow           REAL,
	p_inc            REAL,
	p_stuck          REAL,
	vk               INTEGER,
	press            INTEGER,
	ime_on           INTEGER
);

CREATE INDEX IF NOT EXISTS idx_records_session_t ON records(session_start_ms, t_ms);
`

// Record is one mirrored row, a flattened subset of logging.SessionRecord
// covering the fields an analyser actually filters/aggregates on.
type Record struct {
	SessionStartMS int64
	TMS            int64
	Type           string
	PFlow          float64
	PInc           float64
	PStuck         float64
	VK             uint16
	Press          bool
	ImeOn          bool
}

// Store mirrors SessionLogger records into SQLite for time-range queries.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and applies
// the schema. Driver selection (cgo vs pure-Go) is resolved by driverName,
// defined in driver_cgo.go / driver_nocgo.go.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// BeginSession inserts the sessions row; idempotent via INSERT OR IGNORE
// so a session whose start is recorded more than once doesn't fail on the
// primary key.
func (s *Store) BeginSession(sessionStartMS int64) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO sessions(session_start_ms) VALUES (?)`, sessionStartMS)
	if err != nil {
		return fmt.Errorf("store: begin session: %w", err)
	}
	return nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(sessionStartMS, sessionEndMS int64) error {
	_, err := s.db.Exec(`UPDATE sessions SET session_end_ms = ? WHERE session_start_ms = ?`,
		sessionEndMS, sessionStartMS)
	if err != nil {
		return fmt.Errorf("store: end session: %w", err)
	}
	return nil
}

// InsertRecord mirrors one record into the records table.
func (s *Store) InsertRecord(r Record) error {
	_, err := s.db.Exec(`
		INSERT INTO records(session_start_ms, t_ms, type, p_flow, p_inc, p_stuck, vk, press, ime_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionStartMS, r.TMS, r.Type, r.PFlow, r.PInc, r.PStuck, r.VK, r.Press, r.ImeOn)
	if err != nil {
		return fmt.Errorf("store: insert record: %w", err)
	}
	return nil
}

// QueryRange returns every record in [startMS, endMS] ordered by time,
// across all sessions -- the query a post-hoc analyser runs instead of
// re-parsing NDJSON files.
func (s *Store) QueryRange(startMS, endMS int64) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT session_start_ms, t_ms, type, p_flow, p_inc, p_stuck, vk, press, ime_on
		FROM records WHERE t_ms BETWEEN ? AND ? ORDER BY t_ms`, startMS, endMS)
	if err != nil {
		return nil, fmt.Errorf("store: query range: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.SessionStartMS, &r.TMS, &r.Type, &r.PFlow, &r.PInc, &r.PStuck,
			&r.VK, &r.Press, &r.ImeOn); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
