package engine

import (
	"sync"

	"gse/internal/feature"
)

// hysteresisAlpha is the normal display-belief smoothing rate, giving the
// display roughly 4s (1/0.25 ticks at 1Hz) of effective dwell.
const hysteresisAlpha = 0.25

// hysteresisAlphaPenalty is the faster smoothing rate applied when the
// penalty bin was emitted this tick, halving that dwell so the display
// reacts quickly to a clear delete-storm.
const hysteresisAlphaPenalty = 0.50

// HMMEstimator is the default Estimator: a discrete-observation HMM with
// a hysteresis EMA smoothing layer.
type HMMEstimator struct {
	mu sync.Mutex

	raw     Belief
	display Belief

	smoothedAxes Point
	haveAxes     bool
}

// NewHMMEstimator creates an estimator with both beliefs at the uniform
// prior.
func NewHMMEstimator() *HMMEstimator {
	return &HMMEstimator{raw: UniformPrior, display: UniformPrior}
}

// Update runs the latent projection, axis smoothing, discretisation, one
// HMM forward step, and the hysteresis layer, returning the new display
// belief. Consumers (intervention, UI, logger) must only ever read the
// display belief returned here or from Current — never the raw belief.
// While imeActive is true, Update leaves every internal state untouched
// and returns the current display belief unchanged, so a candidate-window
// keystroke never moves it.
func (h *HMMEstimator) Update(v feature.Vector, imeOpen, imeActive, penaltyRun bool) Belief {
	h.mu.Lock()
	defer h.mu.Unlock()

	if imeActive {
		return h.display
	}

	baseline := Select(imeOpen)
	rawPoint := Project(v, baseline)

	if !h.haveAxes {
		h.smoothedAxes = rawPoint
		h.haveAxes = true
	} else {
		h.smoothedAxes = SmoothAxes(rawPoint, h.smoothedAxes)
	}

	bin := Discretise(h.smoothedAxes, penaltyRun)
	h.raw = ForwardStep(h.raw, bin)

	alpha := hysteresisAlpha
	if penaltyRun {
		alpha = hysteresisAlphaPenalty
	}
	h.display = blend(h.raw, h.display, alpha)

	return h.display
}

// blend computes alpha*raw + (1-alpha)*display component-wise.
func blend(raw, display Belief, alpha float64) Belief {
	return Belief{
		PFlow:  alpha*raw.PFlow + (1-alpha)*display.PFlow,
		PInc:   alpha*raw.PInc + (1-alpha)*display.PInc,
		PStuck: alpha*raw.PStuck + (1-alpha)*display.PStuck,
	}
}

// Current returns the last computed display belief without advancing.
func (h *HMMEstimator) Current() Belief {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.display
}

// Reset returns the estimator to the uniform prior, used by the
// Supervisor's EngineDegenerate recovery path.
func (h *HMMEstimator) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.raw = UniformPrior
	h.display = UniformPrior
	h.haveAxes = false
}

var _ Estimator = (*HMMEstimator)(nil)
