package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_InsertAndQueryRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.BeginSession(1000))
	require.NoError(t, s.InsertRecord(Record{SessionStartMS: 1000, TMS: 1000, Type: "meta"}))
	require.NoError(t, s.InsertRecord(Record{SessionStartMS: 1000, TMS: 2000, Type: "feat", PStuck: 0.42}))
	require.NoError(t, s.InsertRecord(Record{SessionStartMS: 1000, TMS: 5000, Type: "feat", PStuck: 0.81}))
	require.NoError(t, s.EndSession(1000, 5000))

	records, err := s.QueryRange(1500, 4000)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, int64(2000), records[0].TMS)
	require.InDelta(t, 0.42, records[0].PStuck, 1e-9)
}

func TestStore_BeginSessionIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.BeginSession(1000))
	require.NoError(t, s.BeginSession(1000))
}
