// Package supervisor orchestrates the worker lifecycles of the cognitive
// state engine: it spawns KeyCapture, ImeContext, the Motion collaborator,
// and the SessionLogger, runs the 1Hz analysis loop that drives
// FeatureExtractor and the state Estimator, and feeds the InterventionMachine
// and UI collaborator from the one mutex-guarded Belief.
//
// Start/Stop lifecycle derives its own cancellable context, with one
// goroutine per source draining into internal channels and a panic-recovery
// wrapper around each worker via logging.CrashHandler.
package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"gse/internal/engine"
	"gse/internal/feature"
	"gse/internal/ime"
	"gse/internal/intervention"
	"gse/internal/keystroke"
	"gse/internal/logging"
	"gse/internal/metrics"
	"gse/internal/motion"
	"gse/internal/ui"
)

// tickInterval is the 1Hz analysis gate: the cognitive-state-update
// channel publishes once per tick, with no separate UI refresh cadence.
const tickInterval = time.Second

// ErrAlreadyRunning is returned by Start on an already-running Supervisor.
var ErrAlreadyRunning = errors.New("supervisor: already running")

// Supervisor owns every worker and the single mutex-guarded Belief +
// FeatureExtractor pair named in shared-resource policy.
type Supervisor struct {
	capture      keystroke.Capture
	imeCtx       *ime.Context
	motionSource motion.Source
	sessionLog   *logging.SessionLogger
	collaborator ui.Collaborator
	crash        *logging.CrashHandler
	metrics      *metrics.GSEMetrics

	mu        sync.Mutex
	extractor *feature.Extractor
	estimator engine.Estimator
	machine   *intervention.Machine

	lastUpdate   time.Time
	sessionStart time.Time
	sessionID    string
	pendingMove  *intervention.Motion

	userOverride atomic.Bool
	running      atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// buildConfig collects Option overrides that must be known before the
// keystroke/IME pipeline is wired, since Capture and Context are
// constructed together around a shared toggle detector and wake channel.
type buildConfig struct {
	captureFactory func(toggle keystroke.IMEToggleDetector) keystroke.Capture
	motionSource   motion.Source
	estimator      engine.Estimator
	metrics        *metrics.GSEMetrics
	collaborator   ui.Collaborator
	sessionID      string
	thresholds     intervention.Thresholds
}

// Option configures a Supervisor at construction.
type Option func(*buildConfig)

// WithUICollaborator sets the UI publish/command handle. Defaults to
// ui.NullCollaborator{} (headless).
func WithUICollaborator(c ui.Collaborator) Option {
	return func(c2 *buildConfig) { c2.collaborator = c }
}

// WithMotionSource overrides the default motion.Stub.
func WithMotionSource(src motion.Source) Option {
	return func(c *buildConfig) { c.motionSource = src }
}

// WithEstimator overrides the default engine.HMMEstimator, allowing an
// alternative Estimator implementation (heuristic, or a neural variant
// run on a background worker) to plug in without Supervisor changing.
func WithEstimator(e engine.Estimator) Option {
	return func(c *buildConfig) { c.estimator = e }
}

// WithMetrics overrides the default global metrics.GetMetrics().
func WithMetrics(m *metrics.GSEMetrics) Option {
	return func(c *buildConfig) { c.metrics = m }
}

// WithCapture overrides the default platform KeyCapture via a factory
// function, e.g. in tests: WithCapture(func(toggle keystroke.IMEToggleDetector)
// keystroke.Capture { return keystroke.NewSimulated(toggle) }). New calls
// factory with the same toggle detector it wires into ime.Context, so the
// injected Capture and the Context stay consistent.
func WithCapture(factory func(toggle keystroke.IMEToggleDetector) keystroke.Capture) Option {
	return func(c *buildConfig) { c.captureFactory = factory }
}

// WithSessionID pins the session identifier Start stamps into the meta
// record, instead of minting a fresh one. Lets a caller that already named
// the session log file (logging.SessionFilePath needs an id up front) keep
// the on-disk name and the meta record's session_id in agreement.
func WithSessionID(id string) Option {
	return func(c *buildConfig) { c.sessionID = id }
}

// WithThresholds overrides the InterventionMachine's escalation thresholds,
// e.g. loaded from config.Config, instead of intervention.DefaultThresholds.
func WithThresholds(t intervention.Thresholds) Option {
	return func(c *buildConfig) { c.thresholds = t }
}

// New creates a Supervisor with a fresh keystroke/IME pipeline wired
// together. sessionLog may be nil for a headless smoke run (e.g. in
// tests) -- no records are then persisted. Pass WithCapture to replace
// the default platform hook, e.g. with a SimulatedCapture sharing the
// same toggle detector constructed here.
func New(imeSource ime.Source, sessionLog *logging.SessionLogger, opts ...Option) *Supervisor {
	cfg := &buildConfig{
		motionSource: motion.NewStub(),
		estimator:    engine.NewHMMEstimator(),
		collaborator: ui.NullCollaborator{},
		metrics:      metrics.GetMetrics(),
		thresholds:   intervention.DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	toggle := ime.NewToggleDetector()
	var capture keystroke.Capture
	if cfg.captureFactory != nil {
		capture = cfg.captureFactory(toggle)
	} else {
		capture = keystroke.New(toggle)
	}
	imeCtx := ime.NewWithToggleDetector(imeSource, capture.Wake(), toggle)

	return &Supervisor{
		capture:      capture,
		imeCtx:       imeCtx,
		motionSource: cfg.motionSource,
		sessionLog:   sessionLog,
		collaborator: cfg.collaborator,
		crash:        logging.DefaultCrashHandler(),
		metrics:      cfg.metrics,
		extractor:    feature.New(),
		estimator:    cfg.estimator,
		machine:      intervention.NewWithThresholds(cfg.thresholds),
		sessionID:    cfg.sessionID,
	}
}

// Start spawns every worker goroutine. It returns once KeyCapture and the
// IME workers are installed; a PermissionDenied hook-install failure is not
// fatal -- the pipeline continues in degraded mode emitting only synthetic
// observations.
//
// Start derives its own cancellable context from ctx so Stop can terminate
// every worker deterministically even if the caller's ctx outlives the
// session (e.g. a process-wide context shared across Supervisor restarts).
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.sessionStart = time.Now()
	s.lastUpdate = s.sessionStart
	if s.sessionID == "" {
		s.sessionID = logging.NewSessionID()
	}

	if s.sessionLog != nil {
		s.sessionLog.Start()
		s.sessionLog.Log(logging.NewMetaStart(s.sessionStart.UnixMilli(), s.sessionID))
	}

	if err := s.capture.Start(ctx); err != nil {
		if errors.Is(err, keystroke.ErrPermissionDenied) || errors.Is(err, keystroke.ErrNotAvailable) {
			s.imeCtx.SetHookAlive(false)
		} else {
			return err
		}
	} else {
		s.imeCtx.SetHookAlive(true)
	}
	s.metrics.SetHookAlive(s.capture.IsAlive())

	s.imeCtx.Start(ctx)

	if err := s.motionSource.Start(ctx); err != nil {
		// Sensor/motion-source absence is expected; fails to None, not error.
	}

	s.wg.Add(3)
	go s.runRecovered(s.analysisLoop, ctx)
	go s.runRecovered(s.imeEventLoop, ctx)
	go s.runRecovered(s.motionLoop, ctx)

	return nil
}

// Stop cancels every worker, flushes the session log, and writes the
// session_end meta record.
func (s *Supervisor) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.capture.Stop()
	s.imeCtx.Stop()
	s.motionSource.Stop()
	s.cancel()
	s.wg.Wait()

	if s.sessionLog != nil {
		s.sessionLog.Log(logging.NewMetaEnd(time.Now().UnixMilli()))
		s.sessionLog.Flush()
		s.sessionLog.Stop()
	}
	return nil
}

// runRecovered wraps a worker loop with the crash policy: a worker panic
// is caught, logged as a crash report, and re-raised as a fatal session
// termination: no worker is auto-restarted.
func (s *Supervisor) runRecovered(fn func(context.Context), ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.crash.HandlePanic(r, map[string]interface{}{"type": "goroutine"})
			if s.sessionLog != nil {
				s.sessionLog.Flush()
			}
			panic(r)
		}
	}()
	fn(ctx)
}

// RequestUserOverride records the global escape-chord Wall override,
// consumed by the next intervention Tick.
func (s *Supervisor) RequestUserOverride() {
	s.userOverride.Store(true)
}

// CognitiveState returns the current display belief, for the UI
// collaborator's get_cognitive_state() command.
func (s *Supervisor) CognitiveState() ui.CognitiveStateUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ui.FromBelief(s.estimator.Current())
}

// HookAlive reports whether the keystroke hook is currently installed,
// for the UI collaborator's get_hook_status() command.
func (s *Supervisor) HookAlive() bool {
	return s.capture.IsAlive()
}

// InterventionState returns the current InterventionState.
func (s *Supervisor) InterventionState() intervention.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// SessionID returns the identifier minted for the current (or most recent)
// session by Start, used by callers to name the NDJSON log file and any
// SQLite mirror consistently.
func (s *Supervisor) SessionID() string {
	return s.sessionID
}
