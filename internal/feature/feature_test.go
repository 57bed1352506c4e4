package feature

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gse/internal/keystroke"
)

func press(t uint64, vk uint16) keystroke.KeyEvent {
	return keystroke.KeyEvent{TimestampMS: t, VKCode: vk, IsPress: true}
}
func release(t uint64, vk uint16) keystroke.KeyEvent {
	return keystroke.KeyEvent{TimestampMS: t, VKCode: vk, IsPress: false}
}

func TestExtractor_WindowTrim(t *testing.T) {
	e := New()
	e.Push(press(1000, 'A'))
	e.Push(press(40000, 'B')) // now = 40000, cutoff = 10000

	for _, ev := range e.Window() {
		require.GreaterOrEqual(t, ev.TimestampMS, uint64(40000-WindowMS))
	}
	require.Len(t, e.Window(), 1)
}

func TestExtractor_PureFlowLowF3F5(t *testing.T) {
	e := New()
	var ts uint64
	for i := 0; i < 20; i++ {
		e.Push(press(ts, 'A'))
		ts += 100
		e.Push(release(ts, 'A'))
	}
	v := e.Compute()
	require.Zero(t, v.F3)
	require.Zero(t, v.F5)
	require.Greater(t, v.F4, 1.0) // one long burst
}

func TestExtractor_DeleteFraction(t *testing.T) {
	e := New()
	var ts uint64
	for i := 0; i < 3; i++ {
		e.Push(press(ts, 'A'))
		ts += 50
	}
	for i := 0; i < 2; i++ {
		e.Push(press(ts, VKBackspace))
		ts += 50
	}
	v := e.Compute()
	require.InDelta(t, 2.0/5.0, v.F3, 1e-9)
}

func TestExtractor_SilenceGapCount(t *testing.T) {
	e := New()
	e.Push(press(0, 'A'))
	e.Push(press(3000, 'B')) // gap 3000ms >= 2000ms
	v := e.Compute()
	require.Equal(t, 1.0, v.F5)
}

func TestExtractor_TrailingDeleteSilence(t *testing.T) {
	e := New()
	e.Push(press(0, VKBackspace))
	v := e.Compute()
	require.Equal(t, 1.0, v.F6, "trailing delete with no subsequent press counts")
}

func TestExtractor_SynthesiseRamps(t *testing.T) {
	e := New()
	v, ok := e.Synthesise(50)
	require.True(t, ok)
	require.InDelta(t, clamp((50-20)/60.0, 0, 0.50), v.F6, 1e-9)
	require.InDelta(t, clamp((50-30)/100.0, 0, 0.40), v.F3, 1e-9)
}

func TestExtractor_SynthesiseCapsAtMax(t *testing.T) {
	e := New()
	v, _ := e.Synthesise(200)
	require.Equal(t, 0.50, v.F6)
	require.Equal(t, 0.40, v.F3)
}

func TestPhi_ClampsToUnitInterval(t *testing.T) {
	require.Equal(t, 0.0, Phi(-100, 150))
	require.Equal(t, 1.0, Phi(1000, 150))
	require.InDelta(t, 0.5, Phi(150+150, 150), 1e-9)
}

func TestPhi_ZeroBaselineIsZero(t *testing.T) {
	require.Equal(t, 0.0, Phi(100, 0))
}

func TestExtractor_PenaltyRunDetectsFiveConsecutiveDeletes(t *testing.T) {
	e := New()
	var ts uint64
	for i := 0; i < 4; i++ {
		e.Push(press(ts, VKBackspace))
		ts += 100
	}
	require.False(t, e.PenaltyRun(), "only 4 consecutive deletes")

	e.Push(press(ts, VKBackspace))
	require.True(t, e.PenaltyRun(), "5th consecutive delete completes the run")
}

func TestExtractor_PenaltyRunBrokenByNonDeletePress(t *testing.T) {
	e := New()
	var ts uint64
	for i := 0; i < 4; i++ {
		e.Push(press(ts, VKBackspace))
		ts += 100
	}
	e.Push(press(ts, 'A'))
	ts += 100
	e.Push(press(ts, VKBackspace))
	require.False(t, e.PenaltyRun(), "run was broken by an intervening non-delete press")
}
