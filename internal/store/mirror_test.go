package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gse/internal/logging"
)

func TestRecordMirror_MirrorsMetaKeyFeatAndImeState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	mirror := NewRecordMirror(s)

	require.NoError(t, mirror.MirrorRecord(1000, logging.NewMetaStart(1000, "sess-1")))
	require.NoError(t, mirror.MirrorRecord(1000, logging.NewKeyRecord(1010, 0x41, true)))
	require.NoError(t, mirror.MirrorRecord(1000, logging.NewFeatRecord(2000, 150, 20, 0, 5, 0, 0, 0.2, 0.3, 0.5)))
	require.NoError(t, mirror.MirrorRecord(1000, logging.NewImeStateRecord(2005, true)))
	require.NoError(t, mirror.MirrorRecord(1000, logging.NewMetaEnd(5000)))

	records, err := s.QueryRange(0, 10000)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "key", records[0].Type)
	require.Equal(t, "feat", records[1].Type)
	require.InDelta(t, 0.5, records[1].PStuck, 1e-9)
	require.Equal(t, "ime_state", records[2].Type)
	require.True(t, records[2].ImeOn)
}
