// Package ime tracks the Input Method Editor's composition-mode flag
// (ime_open) and candidate-window-visible flag (ime_active), and emits
// ImeState log records with anti-flapping guarantees across three
// independent detection layers.
//
// ime_open is combined from, in strictly-ordered priority:
//
//  1. polled OS input-source state (when available);
//  2. IME-mode-switch scancodes observed by KeyCapture, toggled on both
//     press and release so asymmetric keyboards still reach the right
//     terminal value;
//  3. cross-process composition-start events, which imply
//     composition-capable mode.
//
// ime_active is set by a candidate-window monitor that scans the OS
// window list for candidate-panel classes (explicitly excluding the
// language-bar class, which is always visible and would otherwise cause
// permanent false positives), with an accessibility-focus query as
// fallback.
package ime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// pollInterval is how often the IME polling worker and the candidate
// window monitor wake on their own timeout.
const pollInterval = 100 * time.Millisecond

// settleDelay is the settling sleep before querying the OS input source,
// which both lets rapid toggles settle and enforces the "ImeState strictly
// after the key event" ordering invariant.
const settleDelay = 5 * time.Millisecond

// Layer identifies which detection layer currently drives ime_open.
type Layer int

const (
	// LayerPolled is the polled OS input-source API.
	LayerPolled Layer = iota
	// LayerScancode is a hook-observed IME-mode-toggle scancode edge.
	LayerScancode
	// LayerComposition is a cross-process composition-start event.
	LayerComposition
)

// State is a snapshot of the IME context at a point in time.
type State struct {
	ImeOpen   bool
	ImeActive bool
	HookAlive bool
	Timestamp time.Time
}

// Event is an ImeState log record. ImeContext's polling worker is the
// sole emitter of these records.
type Event struct {
	TimestampMS uint64
	On          bool
}

// Source abstracts the platform-specific query surfaces so the core logic
// (layer priority, anti-flap emission) is testable without real OS hooks.
type Source interface {
	// InputSourceOpen queries whether the current OS input source is a
	// composition-capable IME (e.g. contains "inputmethod.japanese").
	// The bool result is ignored when ok is false (platform unavailable).
	InputSourceOpen(ctx context.Context) (open bool, ok bool)

	// CandidateWindowVisible scans the OS window list for an active
	// candidate-panel class, excluding the language bar.
	CandidateWindowVisible() bool

	// AccessibilityFocusIsCandidate is the fallback focus query used when
	// the window-list scan is inconclusive.
	AccessibilityFocusIsCandidate() bool
}

// Context runs the two cooperating workers described above and exposes
// the combined, lock-free flags.
type Context struct {
	source Source

	imeOpen   atomic.Bool
	imeActive atomic.Bool
	hookAlive atomic.Bool
	polled    polledState

	// compositionFlag is the cross-process composition-start signal
	// (layer 3); reset by stale-flag recovery when neither scan confirms
	// a candidate window.
	compositionFlag atomic.Bool

	mu           sync.Mutex
	lastEmitted  *bool // nil until first observation, so it always emits
	events       chan Event
	wake         <-chan struct{}
	toggleDetect *toggleDetector

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an IME Context. wake is KeyCapture's capacity-1 wake
// channel, used to shorten the polling worker's 100ms timeout whenever a
// key event arrives.
func New(source Source, wake <-chan struct{}) *Context {
	return NewWithToggleDetector(source, wake, NewToggleDetector())
}

// NewToggleDetector builds a standalone scancode-toggle detector. Callers
// that must wire KeyCapture (which needs the detector at construction)
// before the Context (which needs KeyCapture's wake channel) construct the
// detector first and pass it to both via NewWithToggleDetector.
func NewToggleDetector() *toggleDetector {
	return &toggleDetector{
		toggleKeys: map[uint16]bool{
			0x15: true, // Alt+` / Kana on common JIS layouts (illustrative)
			0xF3: true, // VK_KANJI class codes
		},
	}
}

// NewWithToggleDetector creates a Context reusing an already-constructed
// toggle detector, breaking the KeyCapture/Context construction cycle: the
// Supervisor builds the detector, wires it into keystroke.New, then wires
// the resulting Capture's wake channel and the same detector in here.
func NewWithToggleDetector(source Source, wake <-chan struct{}, toggle *toggleDetector) *Context {
	return &Context{
		source:       source,
		wake:         wake,
		events:       make(chan Event, 64),
		toggleDetect: toggle,
	}
}

// ToggleDetector returns the keystroke.IMEToggleDetector to wire into
// KeyCapture so its callback can flip ime_open without taking a lock.
func (c *Context) ToggleDetector() *toggleDetector { return c.toggleDetect }

// toggleDetector implements keystroke.IMEToggleDetector; it is owned by
// Context but lives as its own small type so the hot callback path only
// ever touches one atomic.
type toggleDetector struct {
	toggleKeys map[uint16]bool
	open       atomic.Bool
}

func (t *toggleDetector) IsToggleKey(vk uint16) bool { return t.toggleKeys[vk] }

// OnToggleEdge flips the scancode-layer flag on both press and release.
func (t *toggleDetector) OnToggleEdge() {
	t.open.Store(!t.open.Load())
}

// NotifyCompositionStart is called by the platform's cross-process
// composition-change listener (layer 3).
func (c *Context) NotifyCompositionStart() {
	c.compositionFlag.Store(true)
}

// ImeOpenSnapshot, ImeActiveSnapshot and HookAlive return the combined,
// lock-free current state; SetHookAlive updates the hook-liveness flag.
func (c *Context) ImeOpenSnapshot() bool   { return c.resolveOpen() }
func (c *Context) ImeActiveSnapshot() bool { return c.imeActive.Load() }
func (c *Context) HookAlive() bool         { return c.hookAlive.Load() }
func (c *Context) SetHookAlive(v bool)     { c.hookAlive.Store(v) }

// resolveOpen applies the strictly-ordered three-layer priority: polled
// state wins when available, else the scancode-toggle layer, else the
// composition-event layer.
func (c *Context) resolveOpen() bool {
	if v, ok := c.polledCache(); ok {
		return v
	}
	if c.toggleDetect.open.Load() {
		return true
	}
	return c.compositionFlag.Load()
}

// polledState holds the last polled-layer result.
type polledState struct {
	open atomic.Bool
	ok   atomic.Bool
}

func (c *Context) polledCache() (bool, bool) {
	return c.polled.open.Load(), c.polled.ok.Load()
}
