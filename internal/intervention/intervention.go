// Package intervention implements the graduated escalation state machine:
// Idle -> Nudge -> Wall, driven by the smoothed Stuck probability and
// dwell timers, unlocked by a physical-movement signal.
package intervention

import (
	"time"

	"gse/internal/engine"
)

// Default escalation thresholds.
const (
	nudgeEnter    = 0.60
	wallEnter     = 0.70
	wallDwell     = 30 * time.Second
	wallSafetyCap = 5 * time.Minute
)

// Kind tags the current InterventionState variant.
type Kind int

const (
	Idle Kind = iota
	Nudge
	Wall
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Nudge:
		return "nudge"
	case Wall:
		return "wall"
	default:
		return "unknown"
	}
}

// State is the tagged InterventionState value.
type State struct {
	Kind Kind

	// NudgeOpacity is the derived click-through overlay opacity, only
	// meaningful when Kind == Nudge.
	NudgeOpacity float64

	// WallStartedAt is when the Wall state began, only meaningful when
	// Kind == Wall.
	WallStartedAt time.Time
}

// Thresholds parameterizes the escalation machine. DefaultThresholds
// matches the package-level defaults; NewWithThresholds lets a caller
// override them from config.Config without this package importing config.
type Thresholds struct {
	NudgeEnter    float64
	WallEnter     float64
	WallDwell     time.Duration
	WallSafetyCap time.Duration
}

// DefaultThresholds returns the package-level default constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NudgeEnter:    nudgeEnter,
		WallEnter:     wallEnter,
		WallDwell:     wallDwell,
		WallSafetyCap: wallSafetyCap,
	}
}

// Machine owns the single-writer InterventionState and the dwell timer
// used for the Nudge->Wall escalation.
type Machine struct {
	thresholds Thresholds
	state      State

	// aboveWallSince is where the current Nudge->Wall dwell started: the
	// Nudge entry time, or the latest Nudge tick with PStuck at or below
	// WallEnter, whichever came later.
	aboveWallSince time.Time
}

// New creates a Machine starting in Idle, using DefaultThresholds.
func New() *Machine {
	return NewWithThresholds(DefaultThresholds())
}

// NewWithThresholds creates a Machine starting in Idle with custom
// escalation thresholds, e.g. loaded from config.Config.
func NewWithThresholds(t Thresholds) *Machine {
	return &Machine{thresholds: t, state: State{Kind: Idle}}
}

// Motion is the physical-movement unlock signal; its arrival is the only
// Wall-unlock the core consumes (the accelerometer's displacement
// criterion is intentionally left unwired).
type Motion struct {
	At time.Time
}

// Current returns the machine's current state.
func (m *Machine) Current() State { return m.state }

// Tick evaluates the state machine for one Supervisor tick. imeActive
// suppresses all transitions (intervention never triggers during
// candidate-window navigation); userOverride forces an immediate Wall->Idle
// transition (the escape chord).
func (m *Machine) Tick(belief engine.Belief, now time.Time, motion *Motion, imeActive, userOverride bool) State {
	if imeActive {
		return m.state
	}

	switch m.state.Kind {
	case Idle:
		if belief.PStuck > m.thresholds.NudgeEnter {
			m.enterNudge(belief, now)
		}

	case Nudge:
		if belief.PStuck <= m.thresholds.NudgeEnter {
			m.enterIdle()
			break
		}
		m.updateNudgeOpacity(belief)

		if belief.PStuck > m.thresholds.WallEnter {
			if now.Sub(m.aboveWallSince) >= m.thresholds.WallDwell {
				m.enterWall(now)
			}
		} else {
			m.aboveWallSince = now
		}

	case Wall:
		if userOverride {
			m.enterIdle()
			break
		}
		if motion != nil {
			m.enterIdle()
			break
		}
		if now.Sub(m.state.WallStartedAt) >= m.thresholds.WallSafetyCap {
			m.enterIdle()
		}
	}

	return m.state
}

func (m *Machine) enterIdle() {
	m.state = State{Kind: Idle}
}

func (m *Machine) enterNudge(belief engine.Belief, now time.Time) {
	m.state = State{Kind: Nudge}
	m.aboveWallSince = now
	m.updateNudgeOpacity(belief)
}

// opacityRange is the PStuck headroom above NudgeEnter that ramps the
// overlay from transparent to fully opaque; fixed independent of
// WallEnter, which governs escalation timing rather than overlay visuals.
const opacityRange = 0.30

func (m *Machine) updateNudgeOpacity(belief engine.Belief) {
	m.state.NudgeOpacity = clamp01((belief.PStuck - m.thresholds.NudgeEnter) / opacityRange)
}

func (m *Machine) enterWall(now time.Time) {
	m.state = State{Kind: Wall, WallStartedAt: now}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
