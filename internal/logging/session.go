package logging

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// sessionQueueCapacity is the bounded record queue size. On overflow,
// records are dropped silently -- the core must never be stalled by
// logging backpressure.
const sessionQueueCapacity = 512

// SessionRecord is one entry of the NDJSON session log. Exactly one of the
// typed payload fields is populated, selected by Type.
type SessionRecord struct {
	Type string `json:"type"`

	// meta
	Session      string `json:"session_id,omitempty"`
	SessionStart int64  `json:"session_start,omitempty"`
	SessionEnd   int64  `json:"session_end,omitempty"`

	// meta, EngineDegenerate recovery only
	EngineResetAt int64 `json:"engine_reset_ms,omitempty"`

	// key
	T     int64  `json:"t,omitempty"`
	VK    uint16 `json:"vk,omitempty"`
	Press bool   `json:"press"`

	// feat
	F1     float64 `json:"f1,omitempty"`
	F2     float64 `json:"f2,omitempty"`
	F3     float64 `json:"f3,omitempty"`
	F4     float64 `json:"f4,omitempty"`
	F5     float64 `json:"f5,omitempty"`
	F6     float64 `json:"f6,omitempty"`
	PFlow  float64 `json:"p_flow,omitempty"`
	PInc   float64 `json:"p_inc,omitempty"`
	PStuck float64 `json:"p_stuck,omitempty"`

	// ime_state
	On bool `json:"on"`
}

// NewSessionID mints a fresh session identifier, used both for the meta
// record's session_id field and to derive the session file's name suffix.
// Grounded on ime/engine.go's generateSessionID (timestamp + random
// suffix); swapped the hand-rolled hex suffix for uuid.NewString() since a
// collision-resistant id is all that's needed here, not a sortable one.
func NewSessionID() string {
	return uuid.NewString()
}

// NewMetaStart builds a {"type":"meta","session_start":...} record. A zero
// sessionID is valid and simply omits the session_id field.
func NewMetaStart(atMS int64, sessionID string) SessionRecord {
	return SessionRecord{Type: "meta", Session: sessionID, SessionStart: atMS}
}

// NewMetaEnd builds a {"type":"meta","session_end":...} record.
func NewMetaEnd(atMS int64) SessionRecord {
	return SessionRecord{Type: "meta", SessionEnd: atMS}
}

// NewMetaEngineReset builds the meta record the Supervisor logs when it
// resets the engine to the uniform prior after an EngineDegenerate belief.
func NewMetaEngineReset(atMS int64) SessionRecord {
	return SessionRecord{Type: "meta", EngineResetAt: atMS}
}

// NewKeyRecord builds a {"type":"key",...} record.
func NewKeyRecord(atMS int64, vk uint16, press bool) SessionRecord {
	return SessionRecord{Type: "key", T: atMS, VK: vk, Press: press}
}

// NewFeatRecord builds a {"type":"feat",...} record.
func NewFeatRecord(atMS int64, f1, f2, f3, f4, f5, f6, pFlow, pInc, pStuck float64) SessionRecord {
	return SessionRecord{
		Type: "feat", T: atMS,
		F1: f1, F2: f2, F3: f3, F4: f4, F5: f5, F6: f6,
		PFlow: pFlow, PInc: pInc, PStuck: pStuck,
	}
}

// NewImeStateRecord builds a {"type":"ime_state",...} record. The IME
// polling worker's events are the only origin of this record type.
func NewImeStateRecord(atMS int64, on bool) SessionRecord {
	return SessionRecord{Type: "ime_state", T: atMS, On: on}
}

// RecordMirror additionally persists a record alongside the NDJSON write,
// e.g. into the SQLite sink of internal/store. Mirroring is best-effort:
// a Mirror error never stops the logger, matching the NDJSON path's own
// "core must never be stalled" rule.
type RecordMirror interface {
	MirrorRecord(sessionStartMS int64, rec SessionRecord) error
}

// SessionLogger drains a bounded queue of SessionRecord values into a
// newline-delimited JSON sink with buffered writes, one file per session.
// Uses a drop-on-overflow queue in the shape of the keystroke package's
// non-blocking capture contract.
type SessionLogger struct {
	queue chan SessionRecord
	done  chan struct{}

	file *os.File
	w    *bufio.Writer
	mu   sync.Mutex

	mirror         RecordMirror
	sessionStartMS int64

	dropped      atomic.Uint64
	mirrorErrors atomic.Uint64
	started      atomic.Bool
}

// SessionsDir returns the platform-specific session log directory,
// <UserDocuments>/GSE-sessions.
func SessionsDir() string {
	if docs, err := os.UserHomeDir(); err == nil {
		return filepath.Join(docs, "Documents", "GSE-sessions")
	}
	return "GSE-sessions"
}

// SessionFilePath builds the per-session NDJSON path,
// gse_<YYYYMMDD_HHMMSS>_<suffix>.ndjson, where suffix is an 8-hex-digit
// BLAKE2b-256 prefix of sessionID. The hash suffix keeps two sessions
// started within the same second from colliding on disk without leaking
// the full session id into a filename a user might share.
func SessionFilePath(dir string, start time.Time, sessionID string) string {
	name := fmt.Sprintf("gse_%s_%s.ndjson", start.Format("20060102_150405"), sessionFileSuffix(sessionID))
	return filepath.Join(dir, name)
}

func sessionFileSuffix(sessionID string) string {
	sum := blake2b.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:4])
}

// NewSessionLogger creates a logger writing to path. The file is opened in
// append/create mode immediately; Start begins the drain worker.
func NewSessionLogger(path string) (*SessionLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create session log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	return &SessionLogger{
		queue: make(chan SessionRecord, sessionQueueCapacity),
		done:  make(chan struct{}),
		file:  f,
		w:     bufio.NewWriter(f),
	}, nil
}

// Start launches the drain worker.
func (s *SessionLogger) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.drain()
}

// Log enqueues a record for writing. Non-blocking: if the queue is full the
// record is dropped and counted (LogSinkError is not raised for a single
// drop -- only a write/flush failure stops the logger).
func (s *SessionLogger) Log(rec SessionRecord) {
	select {
	case s.queue <- rec:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports the number of records dropped due to queue overflow.
func (s *SessionLogger) Dropped() uint64 {
	return s.dropped.Load()
}

// SetMirror installs a RecordMirror to additionally persist every record
// the logger writes. The session key the mirror receives is taken from
// the meta record's SessionStart field the first time one is logged (see
// NewMetaStart), so SetMirror may be called any time before Start.
func (s *SessionLogger) SetMirror(m RecordMirror) {
	s.mirror = m
}

// MirrorErrors reports the number of records the mirror failed to persist.
func (s *SessionLogger) MirrorErrors() uint64 {
	return s.mirrorErrors.Load()
}

func (s *SessionLogger) drain() {
	enc := json.NewEncoder(s.w)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-s.queue:
			if !ok {
				s.flushAndClose()
				return
			}
			s.mu.Lock()
			if err := enc.Encode(rec); err != nil {
				s.mu.Unlock()
				s.stopOnError()
				return
			}
			s.mu.Unlock()
			s.mirrorRecord(rec)

		case <-ticker.C:
			s.mu.Lock()
			s.w.Flush()
			s.mu.Unlock()

		case <-s.done:
			s.drainRemaining(enc)
			s.flushAndClose()
			return
		}
	}
}

func (s *SessionLogger) drainRemaining(enc *json.Encoder) {
	for {
		select {
		case rec := <-s.queue:
			s.mu.Lock()
			enc.Encode(rec)
			s.mu.Unlock()
			s.mirrorRecord(rec)
		default:
			return
		}
	}
}

func (s *SessionLogger) mirrorRecord(rec SessionRecord) {
	if rec.Type == "meta" && rec.SessionStart != 0 {
		s.sessionStartMS = rec.SessionStart
	}
	if s.mirror == nil {
		return
	}
	if err := s.mirror.MirrorRecord(s.sessionStartMS, rec); err != nil {
		s.mirrorErrors.Add(1)
	}
}

func (s *SessionLogger) stopOnError() {
	// LogSinkError: logger stops, core continues unaffected.
	s.mu.Lock()
	s.w.Flush()
	s.file.Close()
	s.mu.Unlock()
}

func (s *SessionLogger) flushAndClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	s.file.Sync()
	s.file.Close()
}

// Flush forces the buffered writer to disk without stopping the logger.
func (s *SessionLogger) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

// Stop signals the drain worker to flush any queued records and close the
// file. The worker exits asynchronously; call Flush beforehand if the
// caller needs queued records durable before Stop returns.
func (s *SessionLogger) Stop() {
	close(s.done)
}
