package store

import "gse/internal/logging"

// recordMirror adapts Store to logging.RecordMirror, letting SessionLogger
// write every NDJSON record into the SQLite sink as it's produced.
type recordMirror struct {
	store *Store
}

// NewRecordMirror wraps s as a logging.RecordMirror for SessionLogger.SetMirror.
func NewRecordMirror(s *Store) logging.RecordMirror {
	return recordMirror{store: s}
}

func (m recordMirror) MirrorRecord(sessionStartMS int64, rec logging.SessionRecord) error {
	switch rec.Type {
	case "meta":
		if rec.SessionStart != 0 {
			return m.store.BeginSession(rec.SessionStart)
		}
		if rec.SessionEnd != 0 {
			return m.store.EndSession(sessionStartMS, rec.SessionEnd)
		}
		return nil

	case "key":
		return m.store.InsertRecord(Record{
			SessionStartMS: sessionStartMS,
			TMS:            rec.T,
			Type:           "key",
			VK:             rec.VK,
			Press:          rec.Press,
		})

	case "feat":
		return m.store.InsertRecord(Record{
			SessionStartMS: sessionStartMS,
			TMS:            rec.T,
			Type:           "feat",
			PFlow:          rec.PFlow,
			PInc:           rec.PInc,
			PStuck:         rec.PStuck,
		})

	case "ime_state":
		return m.store.InsertRecord(Record{
			SessionStartMS: sessionStartMS,
			TMS:            rec.T,
			Type:           "ime_state",
			ImeOn:          rec.On,
		})
	}
	return nil
}
