package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_EmitsEventOnceFileIsStable(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := New(tmpDir, 0)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	testFile := filepath.Join(tmpDir, "session.ndjson")
	require.NoError(t, os.WriteFile(testFile, []byte(`{"type":"meta"}`), 0600))

	select {
	case ev := <-w.Events():
		require.Equal(t, testFile, ev.Path)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestWatcher_TracksFilesPresentAtStart(t *testing.T) {
	tmpDir := t.TempDir()

	existing := filepath.Join(tmpDir, "existing.ndjson")
	require.NoError(t, os.WriteFile(existing, []byte(`{"type":"meta"}`), 0600))

	w, err := New(tmpDir, 0)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	select {
	case ev := <-w.Events():
		require.Equal(t, existing, ev.Path)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event on pre-existing file")
	}
}

func TestWatcher_DebounceSuppressesRepeatedWrites(t *testing.T) {
	tmpDir := t.TempDir()

	// A 1 second debounce: each rewrite below resets the stability clock, so
	// only the final write should ever cross the threshold and be emitted.
	w, err := New(tmpDir, 1)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	testFile := filepath.Join(tmpDir, "debounce.ndjson")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(testFile, []byte{byte('0' + i)}, 0600))
		time.Sleep(150 * time.Millisecond)
	}

	eventCount := 0
	timeout := time.After(4 * time.Second)
	for {
		select {
		case <-w.Events():
			eventCount++
			require.LessOrEqual(t, eventCount, 1, "expected only one event due to debouncing")
		case <-timeout:
			require.Equal(t, 1, eventCount)
			return
		}
	}
}

func TestWatcher_DirReturnsAbsolutePath(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := New(tmpDir, 0)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.True(t, filepath.IsAbs(w.Dir()))
}
