package keystroke

import (
	"context"
)

// SimulatedCapture is a Capture for testing and for the degraded-mode path
// when the real platform hook fails to install (PermissionDenied). It never
// touches the OS; events arrive only via Inject.
type SimulatedCapture struct {
	base
	toggle IMEToggleDetector
	cancel context.CancelFunc
}

// NewSimulated creates a Capture that never touches the OS.
func NewSimulated(toggle IMEToggleDetector) *SimulatedCapture {
	return &SimulatedCapture{base: newBase(), toggle: toggle}
}

func (s *SimulatedCapture) Start(ctx context.Context) error {
	if s.isRunning() {
		return ErrAlreadyRunning
	}
	_, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.setRunning(true)
	return nil
}

func (s *SimulatedCapture) Stop() error {
	if !s.isRunning() {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.setRunning(false)
	return nil
}

// Inject simulates a single OS callback invocation. Safe to call only
// while running; mirrors exactly the work the real hook callback does.
func (s *SimulatedCapture) Inject(ev KeyEvent) {
	if s.isRunning() {
		s.publish(ev, s.toggle)
	}
}

// Dropped returns the number of events silently dropped due to a full queue.
func (s *SimulatedCapture) Dropped() uint64 { return s.base.Dropped() }
