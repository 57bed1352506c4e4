// Package keystroke provides the non-blocking global keystroke capture path.
//
// The contract is deliberately narrow: a platform hook's OS-level callback
// may only construct a KeyEvent, try-send it on a bounded channel, and flip
// a couple of atomics. It must never allocate beyond the event literal,
// never block, and never take a lock. Everything else — windowing, feature
// extraction, inference — happens downstream in the analysis worker.
package keystroke

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// KeyEvent is an immutable record of a single press or release.
//
// Timestamps are monotonic per-session; KeyCapture never stamps wall-clock.
type KeyEvent struct {
	TimestampMS uint64
	VKCode      uint16
	IsPress     bool
}

// queueCapacity is the bounded channel size the callback contract requires.
const queueCapacity = 64

// wakeCapacity is the capacity-1 wake queue used to nudge the IME poller.
const wakeCapacity = 1

// Capture is the non-blocking global keystroke capture path.
type Capture interface {
	// Start installs the platform hook and begins publishing events.
	Start(ctx context.Context) error

	// Stop uninstalls the hook and releases platform resources.
	Stop() error

	// IsAlive reports whether the hook is currently installed and healthy.
	IsAlive() bool

	// Events returns the bounded, non-blocking channel of captured events.
	Events() <-chan KeyEvent

	// Wake returns the capacity-1 signal channel used to nudge the IME
	// polling worker whenever a key event is observed.
	Wake() <-chan struct{}
}

// ErrPermissionDenied is returned when the OS refuses to install the hook,
// e.g. missing Accessibility permission on macOS or not being in the
// "input" group on Linux.
var ErrPermissionDenied = errors.New("keystroke: permission denied installing global hook")

// ErrAlreadyRunning is returned when Start is called on a running Capture.
var ErrAlreadyRunning = errors.New("keystroke: already running")

// ErrNotAvailable is returned when no capture backend exists for the platform.
var ErrNotAvailable = errors.New("keystroke: capture not available on this platform")

// New creates a Capture for the current platform.
func New(imeToggle IMEToggleDetector) Capture {
	return newPlatformCapture(imeToggle)
}

// IMEToggleDetector lets KeyCapture flip the ime_open atomic when it
// observes one of the platform's IME-mode-toggle scancodes, on both press
// and release, so asymmetric keyboards that only emit one edge still reach
// the correct terminal value (spec invariant: testable property 3).
type IMEToggleDetector interface {
	IsToggleKey(vk uint16) bool
	OnToggleEdge()
}

// base provides the shared bookkeeping every platform backend needs:
// alive flag, bounded event channel, wake channel, and a single atomic
// counter of dropped (overflowed) events for diagnostics.
type base struct {
	alive   atomic.Bool
	events  chan KeyEvent
	wake    chan struct{}
	dropped atomic.Uint64

	mu      sync.Mutex
	running bool
}

func newBase() base {
	return base{
		events: make(chan KeyEvent, queueCapacity),
		wake:   make(chan struct{}, wakeCapacity),
	}
}

func (b *base) Events() <-chan KeyEvent  { return b.events }
func (b *base) Wake() <-chan struct{}    { return b.wake }
func (b *base) IsAlive() bool            { return b.alive.Load() }
func (b *base) Dropped() uint64          { return b.dropped.Load() }

// publish performs the callback's steps (2)-(4): a non-blocking send of the
// event, a non-blocking wake signal, and the IME toggle check. It must
// never be called from outside the OS callback's own goroutine/thread and
// must never block.
func (b *base) publish(ev KeyEvent, toggle IMEToggleDetector) {
	select {
	case b.events <- ev:
	default:
		b.dropped.Add(1)
	}

	select {
	case b.wake <- struct{}{}:
	default:
	}

	if toggle != nil && toggle.IsToggleKey(ev.VKCode) {
		toggle.OnToggleEdge()
	}
}

func (b *base) setRunning(v bool) {
	b.mu.Lock()
	b.running = v
	b.mu.Unlock()
	b.alive.Store(v)
}

func (b *base) isRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}
