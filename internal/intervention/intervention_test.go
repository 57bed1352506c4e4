package intervention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gse/internal/engine"
)

func belief(pStuck float64) engine.Belief {
	rest := (1 - pStuck) / 2
	return engine.Belief{PFlow: rest, PInc: rest, PStuck: pStuck}
}

func TestMachine_IdleToNudge(t *testing.T) {
	m := New()
	now := time.Now()
	state := m.Tick(belief(0.65), now, nil, false, false)
	require.Equal(t, Nudge, state.Kind)
	require.InDelta(t, (0.65-0.60)/0.30, state.NudgeOpacity, 1e-9)
}

func TestMachine_NudgeToIdle(t *testing.T) {
	m := New()
	now := time.Now()
	m.Tick(belief(0.65), now, nil, false, false)
	state := m.Tick(belief(0.50), now, nil, false, false)
	require.Equal(t, Idle, state.Kind)
}

func TestMachine_NudgeToWallRequiresDwell(t *testing.T) {
	m := New()
	start := time.Now()
	m.Tick(belief(0.65), start, nil, false, false)

	state := m.Tick(belief(0.75), start.Add(10*time.Second), nil, false, false)
	require.Equal(t, Nudge, state.Kind, "must not reach Wall before 30s dwell")

	state = m.Tick(belief(0.75), start.Add(31*time.Second), nil, false, false)
	require.Equal(t, Wall, state.Kind)
}

func TestMachine_DwellResetOnDropBelowThreshold(t *testing.T) {
	m := New()
	start := time.Now()
	m.Tick(belief(0.65), start, nil, false, false)
	m.Tick(belief(0.75), start.Add(20*time.Second), nil, false, false)
	// Drops back under 0.70 -- dwell timer resets.
	m.Tick(belief(0.65), start.Add(25*time.Second), nil, false, false)
	state := m.Tick(belief(0.75), start.Add(40*time.Second), nil, false, false)
	require.Equal(t, Nudge, state.Kind, "dwell timer should have reset at t=25s")

	state = m.Tick(belief(0.75), start.Add(56*time.Second), nil, false, false)
	require.Equal(t, Wall, state.Kind)
}

func TestMachine_IdleToWallRequiresPassingThroughNudge(t *testing.T) {
	m := New()
	start := time.Now()
	// Single huge jump straight to a high p_stuck: cannot skip Nudge.
	state := m.Tick(belief(0.95), start, nil, false, false)
	require.NotEqual(t, Wall, state.Kind)
	require.Equal(t, Nudge, state.Kind)
}

func TestMachine_WallUnlocksOnMotion(t *testing.T) {
	m := New()
	start := time.Now()
	m.Tick(belief(0.65), start, nil, false, false)
	m.Tick(belief(0.75), start.Add(31*time.Second), nil, false, false)
	require.Equal(t, Wall, m.Current().Kind)

	state := m.Tick(belief(0.95), start.Add(32*time.Second), &Motion{At: start.Add(32 * time.Second)}, false, false)
	require.Equal(t, Idle, state.Kind)
}

func TestMachine_WallSafetyCap(t *testing.T) {
	m := New()
	start := time.Now()
	m.Tick(belief(0.65), start, nil, false, false)
	m.Tick(belief(0.75), start.Add(31*time.Second), nil, false, false)

	state := m.Tick(belief(0.95), start.Add(31*time.Second+wallSafetyCap+time.Second), nil, false, false)
	require.Equal(t, Idle, state.Kind)
}

func TestMachine_UserOverrideEscapesWall(t *testing.T) {
	m := New()
	start := time.Now()
	m.Tick(belief(0.65), start, nil, false, false)
	m.Tick(belief(0.75), start.Add(31*time.Second), nil, false, false)

	state := m.Tick(belief(0.95), start.Add(32*time.Second), nil, false, true)
	require.Equal(t, Idle, state.Kind)
}

func TestMachine_SuppressedDuringImeActive(t *testing.T) {
	m := New()
	now := time.Now()
	state := m.Tick(belief(0.95), now, nil, true, false)
	require.Equal(t, Idle, state.Kind, "intervention must never trigger while ime_active")
}
