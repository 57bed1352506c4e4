package engine

import "gse/internal/feature"

// Estimator is the polymorphic state-estimation capability: the HMM
// implementation is the default concrete case, but alternative
// implementations (heuristic, or a neural variant executed on a background
// worker) can plug in without the Supervisor changing.
type Estimator interface {
	// Update advances the estimator by one tick and returns the smoothed
	// (display) belief. While imeActive is true the call is a no-op that
	// returns the belief unchanged -- candidate-window keystrokes must
	// never advance the estimator, so the display stays bit-identical to
	// its value at the instant imeActive became true.
	Update(v feature.Vector, imeOpen, imeActive, penaltyRun bool) Belief

	// Current returns the last computed display belief without advancing.
	Current() Belief

	// Reset returns the estimator to its initial uniform-prior state.
	Reset()
}
