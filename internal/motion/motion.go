// Package motion provides the physical-movement unlock collaborator.
//
// Only a single "move" event crosses into the core from this collaborator;
// the rest of whatever sensing backs it (abstractly a sequence of (x,y,z)
// accelerometer samples) is entirely the collaborator's business. No
// laptop/desktop accelerometer API exists, so Source here is a
// manual/test-trigger stub rather than a real sampling loop — the
// poll-on-a-ticker, push-to-a-channel shape mirrors a process-state
// watcher, not any accelerometer SDK.
package motion

import (
	"context"
	"sync"
	"time"
)

// Event is the single signal the core consumes: physical movement was
// detected at At. The accelerometer's displacement criterion (how large a
// movement must be to count) is intentionally left unwired.
type Event struct {
	At time.Time
}

// Source is the Motion collaborator's capability surface. A concrete
// implementation owns whatever sampling loop or OS sensor API it needs and
// emits Event values on Events as movement crosses its own internal
// criterion.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan Event
}

// eventCapacity bounds the channel the same way keystroke.Capture bounds
// its event queue: a collaborator must never block on a slow consumer.
const eventCapacity = 8

// Stub is a desktop development backend with no real sensor behind it. It
// exposes Trigger for manual or test-driven movement injection and never
// emits anything on its own.
type Stub struct {
	mu      sync.Mutex
	events  chan Event
	running bool
}

// NewStub creates a Source with no autonomous behavior.
func NewStub() *Stub {
	return &Stub{events: make(chan Event, eventCapacity)}
}

// Start marks the stub running. It installs no timer and no OS hook.
func (s *Stub) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	return nil
}

// Stop marks the stub stopped; further Trigger calls are silently dropped.
func (s *Stub) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Events returns the bounded movement-event channel.
func (s *Stub) Events() <-chan Event {
	return s.events
}

// Trigger injects a movement event stamped with at, non-blocking: if the channel
// is full the event is dropped, matching the rest of the core's
// never-block-the-source contract.
func (s *Stub) Trigger(at time.Time) bool {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return false
	}
	select {
	case s.events <- Event{At: at}:
		return true
	default:
		return false
	}
}

var _ Source = (*Stub)(nil)
