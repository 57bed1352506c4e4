package ime

import (
	"context"
	"time"
)

// Start launches the polling worker and the candidate-window monitor.
// Both honor ctx cancellation on every wakeup, matching the shared
// shutdown-flag contract the rest of the core uses.
func (c *Context) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(2)
	go c.pollLoop(runCtx)
	go c.candidateLoop(runCtx)
}

// Stop cancels both workers and waits for them to exit. The event channel
// is left open.
func (c *Context) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// Events returns the channel of ImeState records. Context is the sole
// emitter; no other component may push to it.
func (c *Context) Events() <-chan Event { return c.events }

// pollLoop is the IME polling worker: wakes on a 100ms timeout or an
// early wake signal from KeyCapture, settles for 5ms (which also enforces
// the "emitted strictly after the keystroke" ordering invariant), queries
// the OS input source, and emits on change only.
func (c *Context) pollLoop(ctx context.Context) {
	defer c.wg.Done()

	timer := time.NewTimer(pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
			c.settleAndPoll(ctx)
		case <-timer.C:
			c.settleAndPoll(ctx)
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(pollInterval)
	}
}

func (c *Context) settleAndPoll(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(settleDelay):
	}

	open, ok := c.source.InputSourceOpen(ctx)
	c.polled.open.Store(open)
	c.polled.ok.Store(ok)

	resolved := c.resolveOpen()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastEmitted != nil && *c.lastEmitted == resolved {
		return
	}
	v := resolved
	c.lastEmitted = &v

	select {
	case c.events <- Event{TimestampMS: uint64(time.Now().UnixMilli()), On: resolved}:
	default:
		// Bounded channel full: dropped, matching SessionLogger's
		// overflow policy (QueueOverflow is never fatal).
	}
}

// candidateLoop is the candidate-window monitor: every 100ms it scans the
// OS window list (excluding the language bar) with an accessibility-focus
// fallback, and performs stale-flag recovery on the cross-process
// composition flag when neither scan confirms a candidate window.
func (c *Context) candidateLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			visible := c.source.CandidateWindowVisible()
			if !visible {
				visible = c.source.AccessibilityFocusIsCandidate()
			}
			c.imeActive.Store(visible)

			if c.compositionFlag.Load() && !visible {
				c.compositionFlag.Store(false)
			}
		}
	}
}
