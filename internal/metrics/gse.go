// Package metrics provides Prometheus-compatible metrics for gse.
package metrics

import "time"

// GSEMetrics holds all gse-specific metrics.
type GSEMetrics struct {
	registry *Registry

	// Counters
	KeystrokesTotal    *Counter
	TicksTotal         *Counter
	QueueDropsTotal    *Counter
	ImeFlapsTotal      *Counter
	InterventionsTotal *Counter
	ErrorsTotal        *Counter

	// Gauges
	BeliefPFlowPermille  *Gauge
	BeliefPIncPermille   *Gauge
	BeliefPStuckPermille *Gauge
	InterventionState    *Gauge // 0=Idle, 1=Nudge, 2=Wall
	HookAlive            *Gauge
	UptimeSeconds        *Gauge

	// Histograms
	TickLatency       *Histogram
	KeystrokeInterval *Histogram
}

// startTime records when metrics were initialized.
var startTime = time.Now()

// NewGSEMetrics creates and registers all gse metrics.
func NewGSEMetrics(registry *Registry) *GSEMetrics {
	if registry == nil {
		registry = Default()
	}

	m := &GSEMetrics{
		registry: registry,

		KeystrokesTotal: registry.RegisterCounter(
			"gse_keystrokes_total",
			"Total number of keystrokes captured",
			nil,
		),
		TicksTotal: registry.RegisterCounter(
			"gse_ticks_total",
			"Total number of 1Hz analysis ticks run",
			nil,
		),
		QueueDropsTotal: registry.RegisterCounter(
			"gse_queue_drops_total",
			"Total number of events dropped due to queue overflow",
			nil,
		),
		ImeFlapsTotal: registry.RegisterCounter(
			"gse_ime_flaps_total",
			"Total number of ime_open state transitions emitted",
			nil,
		),
		InterventionsTotal: registry.RegisterCounter(
			"gse_interventions_total",
			"Total number of escalations into Nudge or Wall",
			nil,
		),
		ErrorsTotal: registry.RegisterCounter(
			"gse_errors_total",
			"Total number of errors",
			nil,
		),

		BeliefPFlowPermille: registry.RegisterGauge(
			"gse_belief_p_flow_permille",
			"Current display belief P(Flow), scaled by 1000",
			nil,
		),
		BeliefPIncPermille: registry.RegisterGauge(
			"gse_belief_p_inc_permille",
			"Current display belief P(Incubation), scaled by 1000",
			nil,
		),
		BeliefPStuckPermille: registry.RegisterGauge(
			"gse_belief_p_stuck_permille",
			"Current display belief P(Stuck), scaled by 1000",
			nil,
		),
		InterventionState: registry.RegisterGauge(
			"gse_intervention_state",
			"Current intervention state: 0=Idle, 1=Nudge, 2=Wall",
			nil,
		),
		HookAlive: registry.RegisterGauge(
			"gse_hook_alive",
			"Whether the keystroke hook is currently installed: 0 or 1",
			nil,
		),
		UptimeSeconds: registry.RegisterGauge(
			"gse_uptime_seconds",
			"Number of seconds the supervisor has been running",
			nil,
		),

		TickLatency: registry.RegisterHistogram(
			"gse_tick_latency_seconds",
			"Wall-clock duration of one analysis tick (push+update+publish)",
			nil,
			[]float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		),
		KeystrokeInterval: registry.RegisterHistogram(
			"gse_keystroke_interval_seconds",
			"Time between keystrokes in seconds",
			nil,
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
	}

	return m
}

// RecordKeystroke records a keystroke.
func (m *GSEMetrics) RecordKeystroke() {
	m.KeystrokesTotal.Inc()
}

// RecordKeystrokeInterval records the interval between keystrokes.
func (m *GSEMetrics) RecordKeystrokeInterval(d time.Duration) {
	m.KeystrokeInterval.ObserveDuration(d)
}

// RecordTick records one analysis tick and its belief, in the same
// critical section the Supervisor already holds for the update+publish.
func (m *GSEMetrics) RecordTick(duration time.Duration, pFlow, pInc, pStuck float64) {
	m.TicksTotal.Inc()
	m.TickLatency.ObserveDuration(duration)
	m.BeliefPFlowPermille.Set(int64(pFlow * 1000))
	m.BeliefPIncPermille.Set(int64(pInc * 1000))
	m.BeliefPStuckPermille.Set(int64(pStuck * 1000))
}

// StartTickTimer returns a timer for one analysis tick.
func (m *GSEMetrics) StartTickTimer() *HistogramTimer {
	return m.TickLatency.Timer()
}

// RecordQueueDrop records a single dropped event, regardless of which
// bounded queue overflowed (keystroke, IME, or session-log sink).
func (m *GSEMetrics) RecordQueueDrop() {
	m.QueueDropsTotal.Inc()
}

// RecordImeFlap records one emitted ImeState transition.
func (m *GSEMetrics) RecordImeFlap() {
	m.ImeFlapsTotal.Inc()
}

// RecordIntervention records an escalation (Idle->Nudge or Nudge->Wall)
// and the new state.
func (m *GSEMetrics) RecordIntervention(state int64) {
	m.InterventionsTotal.Inc()
	m.InterventionState.Set(state)
}

// SetInterventionState updates the state gauge without counting a new
// escalation (e.g. Nudge->Idle or Wall->Idle transitions).
func (m *GSEMetrics) SetInterventionState(state int64) {
	m.InterventionState.Set(state)
}

// SetHookAlive reports the keystroke hook's liveness.
func (m *GSEMetrics) SetHookAlive(alive bool) {
	if alive {
		m.HookAlive.Set(1)
	} else {
		m.HookAlive.Set(0)
	}
}

// RecordError records an error.
func (m *GSEMetrics) RecordError() {
	m.ErrorsTotal.Inc()
}

// UpdateUptime updates the uptime metric.
func (m *GSEMetrics) UpdateUptime() {
	m.UptimeSeconds.Set(int64(time.Since(startTime).Seconds()))
}

// Snapshot returns a snapshot of key metrics.
func (m *GSEMetrics) Snapshot() map[string]interface{} {
	m.UpdateUptime()
	return map[string]interface{}{
		"keystrokes_total":     m.KeystrokesTotal.Value(),
		"ticks_total":          m.TicksTotal.Value(),
		"queue_drops_total":    m.QueueDropsTotal.Value(),
		"ime_flaps_total":      m.ImeFlapsTotal.Value(),
		"interventions_total":  m.InterventionsTotal.Value(),
		"errors_total":         m.ErrorsTotal.Value(),
		"belief_p_flow":        float64(m.BeliefPFlowPermille.Value()) / 1000,
		"belief_p_inc":         float64(m.BeliefPIncPermille.Value()) / 1000,
		"belief_p_stuck":       float64(m.BeliefPStuckPermille.Value()) / 1000,
		"intervention_state":   m.InterventionState.Value(),
		"hook_alive":           m.HookAlive.Value(),
		"uptime_seconds":       m.UptimeSeconds.Value(),
		"tick_latency_avg_sec": m.TickLatency.Mean(),
	}
}

// Global gse metrics instance.
var defaultGSEMetrics *GSEMetrics

// GetMetrics returns the global gse metrics instance.
func GetMetrics() *GSEMetrics {
	if defaultGSEMetrics == nil {
		defaultGSEMetrics = NewGSEMetrics(Default())
	}
	return defaultGSEMetrics
}

// InitMetrics initializes the global gse metrics with a custom registry.
func InitMetrics(registry *Registry) *GSEMetrics {
	defaultGSEMetrics = NewGSEMetrics(registry)
	return defaultGSEMetrics
}
