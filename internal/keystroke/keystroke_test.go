package keystroke

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeToggle struct {
	toggleKeys map[uint16]bool
	edges      int
}

func (f *fakeToggle) IsToggleKey(vk uint16) bool { return f.toggleKeys[vk] }
func (f *fakeToggle) OnToggleEdge()               { f.edges++ }

func TestSimulatedCapture_DeliversEventsInOrder(t *testing.T) {
	capture := NewSimulated(nil)
	require.NoError(t, capture.Start(context.Background()))
	defer capture.Stop()

	for i := 0; i < 5; i++ {
		capture.Inject(KeyEvent{TimestampMS: uint64(i), VKCode: uint16(i), IsPress: true})
	}

	for i := 0; i < 5; i++ {
		ev := <-capture.Events()
		require.Equal(t, uint64(i), ev.TimestampMS)
	}
}

func TestSimulatedCapture_DropsOnFullQueue(t *testing.T) {
	capture := NewSimulated(nil)
	require.NoError(t, capture.Start(context.Background()))
	defer capture.Stop()

	for i := 0; i < queueCapacity+10; i++ {
		capture.Inject(KeyEvent{TimestampMS: uint64(i)})
	}

	require.Greater(t, capture.Dropped(), uint64(0))
}

func TestSimulatedCapture_ToggleBothEdges(t *testing.T) {
	toggle := &fakeToggle{toggleKeys: map[uint16]bool{0x15: true}}
	capture := NewSimulated(toggle)
	require.NoError(t, capture.Start(context.Background()))
	defer capture.Stop()

	capture.Inject(KeyEvent{VKCode: 0x15, IsPress: true})
	capture.Inject(KeyEvent{VKCode: 0x15, IsPress: false})

	require.Equal(t, 2, toggle.edges)
}

func TestSimulatedCapture_AlreadyRunning(t *testing.T) {
	capture := NewSimulated(nil)
	require.NoError(t, capture.Start(context.Background()))
	defer capture.Stop()
	require.ErrorIs(t, capture.Start(context.Background()), ErrAlreadyRunning)
}

func TestSimulatedCapture_WakeSignal(t *testing.T) {
	capture := NewSimulated(nil)
	require.NoError(t, capture.Start(context.Background()))
	defer capture.Stop()

	capture.Inject(KeyEvent{VKCode: 1, IsPress: true})

	select {
	case <-capture.Wake():
	case <-time.After(time.Second):
		t.Fatal("expected wake signal")
	}
}
