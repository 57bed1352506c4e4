package supervisor

import (
	"context"
	"time"

	"gse/internal/feature"
	"gse/internal/intervention"
	"gse/internal/logging"
	"gse/internal/ui"
)

// analysisLoop is the sole tick source driving HMM updates: it suspends
// on a 1s receive timeout against the key event queue.
func (s *Supervisor) analysisLoop(ctx context.Context) {
	timer := time.NewTimer(tickInterval)
	defer timer.Stop()

	// lastEvent is when the key queue last delivered an event; silence
	// synthesis measures the pause from it, not from the last tick.
	lastEvent := s.sessionStart

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-s.capture.Events():
			if !ok {
				return
			}
			s.metrics.RecordKeystroke()
			if s.sessionLog != nil {
				s.sessionLog.Log(logging.NewKeyRecord(int64(ev.TimestampMS), ev.VKCode, ev.IsPress))
			}

			s.mu.Lock()
			s.extractor.Push(ev)
			s.mu.Unlock()

			now := time.Now()
			lastEvent = now
			if ev.IsPress && now.Sub(s.lastUpdate) >= tickInterval {
				s.runTick(now, func() feature.Vector {
					s.mu.Lock()
					defer s.mu.Unlock()
					return s.extractor.Compute()
				})
			}

		case <-timer.C:
			now := time.Now()
			silence := now.Sub(lastEvent).Seconds()
			s.runTick(now, func() feature.Vector {
				s.mu.Lock()
				defer s.mu.Unlock()
				v, _ := s.extractor.Synthesise(silence)
				return v
			})
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(tickInterval)
	}
}

// runTick runs one full update+publish cycle: compute the observation,
// advance the Estimator, apply EngineDegenerate recovery, evaluate the
// InterventionMachine, log a feat record, and publish to the UI
// collaborator. The Supervisor holds its mutex for the full update+publish
// so Belief publication is monotonically ordered per tick.
func (s *Supervisor) runTick(now time.Time, observe func() feature.Vector) {
	tickStart := time.Now()

	v := observe()

	s.mu.Lock()
	defer s.mu.Unlock()
	imeOpen := s.imeCtx.ImeOpenSnapshot()
	imeActive := s.imeCtx.ImeActiveSnapshot()
	penaltyRun := s.extractor.PenaltyRun()

	belief := s.estimator.Update(v, imeOpen, imeActive, penaltyRun)
	if belief.IsDegenerate() {
		s.estimator.Reset()
		belief = s.estimator.Current()
		if s.sessionLog != nil {
			s.sessionLog.Log(logging.NewMetaEngineReset(now.UnixMilli()))
		}
	}

	move := s.pendingMove
	s.pendingMove = nil
	override := s.userOverride.Swap(false)

	prevState := s.machine.Current()
	state := s.machine.Tick(belief, now, move, imeActive, override)
	s.lastUpdate = now

	s.metrics.RecordTick(time.Since(tickStart), belief.PFlow, belief.PInc, belief.PStuck)
	if state.Kind != prevState.Kind && state.Kind != intervention.Idle {
		s.metrics.RecordIntervention(int64(state.Kind))
	} else {
		s.metrics.SetInterventionState(int64(state.Kind))
	}

	if s.sessionLog != nil {
		s.sessionLog.Log(logging.NewFeatRecord(now.UnixMilli(), v.F1, v.F2, v.F3, v.F4, v.F5, v.F6,
			belief.PFlow, belief.PInc, belief.PStuck))
	}

	s.collaborator.PublishCognitiveState(ui.FromBelief(belief))
	if state.Kind != prevState.Kind {
		s.collaborator.PublishInterventionState(state)
	}
}

// imeEventLoop drains ImeContext's ImeState records into the session log,
// the sole allowed origin for that record type.
func (s *Supervisor) imeEventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.imeCtx.Events():
			if !ok {
				return
			}
			s.metrics.RecordImeFlap()
			if s.sessionLog != nil {
				s.sessionLog.Log(logging.NewImeStateRecord(int64(ev.TimestampMS), ev.On))
			}
		}
	}
}

// motionLoop records the latest motion event as pending; it is consumed
// and cleared by the next analysis tick's InterventionMachine.Tick call,
// satisfying the "within one tick" unlock latency a Wall-state release
// requires.
func (s *Supervisor) motionLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.motionSource.Events():
			if !ok {
				return
			}
			s.collaborator.PublishSensorAccelerometer(ui.SensorAccelerometer{Move: true})
			s.mu.Lock()
			s.pendingMove = &intervention.Motion{At: ev.At}
			s.mu.Unlock()
		}
	}
}
