package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gse/internal/feature"
)

func TestBelief_IsValidSimplex(t *testing.T) {
	require.True(t, UniformPrior.IsValidSimplex())
	require.False(t, Belief{PFlow: 0.5, PInc: 0.5, PStuck: 0.5}.IsValidSimplex())
}

func TestForwardStep_AlwaysProducesValidSimplex(t *testing.T) {
	belief := UniformPrior
	for bin := 0; bin < NumBins; bin++ {
		belief = ForwardStep(belief, bin)
		require.True(t, belief.IsValidSimplex(), "bin %d produced invalid simplex: %+v", bin, belief)
	}
}

func TestDiscretise_PenaltyBinOverridesGrid(t *testing.T) {
	require.Equal(t, PenaltyBin, Discretise(Point{X: 0, Y: 0}, true))
}

func TestDiscretise_CornersMapToExpectedBins(t *testing.T) {
	require.Equal(t, 0, Discretise(Point{X: 0, Y: 0}, false))
	require.Equal(t, gridSize-1, Discretise(Point{X: 0.999, Y: 0}, false))
	require.Equal(t, (gridSize-1)*gridSize, Discretise(Point{X: 0, Y: 0.999}, false))
}

func TestHMMEstimator_SimplexInvariantAcrossSequence(t *testing.T) {
	e := NewHMMEstimator()
	v := feature.Vector{F1: 100, F4: 6, F5: 0, F6: 0, F3: 0}
	for i := 0; i < 50; i++ {
		belief := e.Update(v, false, false, false)
		require.True(t, belief.IsValidSimplex())
	}
}

func TestHMMEstimator_PureFlowConverges(t *testing.T) {
	e := NewHMMEstimator()
	// Fast rhythmic typing, no deletes, no long gaps: classic Flow signature.
	v := feature.Vector{F1: 100, F2: 20, F3: 0, F4: 8, F5: 0, F6: 0}
	var belief Belief
	for i := 0; i < 30; i++ {
		belief = e.Update(v, false, false, false)
	}
	require.Greater(t, belief.PFlow, 0.5)
	require.Less(t, belief.PStuck, 0.3)
}

func TestHMMEstimator_PenaltyBinDrivesStuck(t *testing.T) {
	e := NewHMMEstimator()
	v := feature.Vector{F1: 100, F3: 0.5, F4: 2, F5: 3, F6: 0.4}
	var belief Belief
	for i := 0; i < 20; i++ {
		belief = e.Update(v, false, false, true)
	}
	require.Greater(t, belief.PStuck, 0.5)
}

func TestHMMEstimator_HysteresisBoundedStep(t *testing.T) {
	e := NewHMMEstimator()
	v1 := feature.Vector{F1: 100, F4: 8}
	e.Update(v1, false, false, false)
	prevDisplay := e.Current()

	v2 := feature.Vector{F1: 2000, F3: 0.9, F5: 10, F6: 0.9}
	display := e.Update(v2, false, false, true) // penalty-rate alpha=0.50

	// display must move only by at most alpha * (max possible belief delta)
	// that tick -- bounded, not an instantaneous jump to raw.
	require.LessOrEqual(t, display.PStuck-prevDisplay.PStuck, hysteresisAlphaPenalty)
}

func TestHMMEstimator_ResetReturnsToUniformPrior(t *testing.T) {
	e := NewHMMEstimator()
	v := feature.Vector{F1: 2000, F3: 0.9, F5: 10, F6: 0.9}
	for i := 0; i < 10; i++ {
		e.Update(v, false, false, true)
	}
	e.Reset()
	require.Equal(t, UniformPrior, e.Current())
}

func TestHMMEstimator_ImeActiveFreezesDisplayBelief(t *testing.T) {
	e := NewHMMEstimator()
	v1 := feature.Vector{F1: 100, F4: 8}
	e.Update(v1, false, false, false)
	frozen := e.Current()

	// A keystroke that would otherwise move belief sharply toward Stuck
	// must be a no-op while imeActive is true.
	v2 := feature.Vector{F1: 2000, F3: 0.9, F5: 10, F6: 0.9}
	for i := 0; i < 10; i++ {
		display := e.Update(v2, false, true, true)
		require.Equal(t, frozen, display)
	}
	require.Equal(t, frozen, e.Current())
}

func TestBaseline_SelectsByImeOpen(t *testing.T) {
	require.Equal(t, CodingBaseline, Select(false))
	require.Equal(t, WritingBaseline, Select(true))
}

func TestPhiProjection_ClampedToUnitSquare(t *testing.T) {
	p := Project(feature.Vector{F1: 1e9, F3: 1e9, F4: 1e9, F5: 1e9, F6: 1e9}, CodingBaseline)
	require.LessOrEqual(t, p.X, 1.0)
	require.LessOrEqual(t, p.Y, 1.0)
	require.GreaterOrEqual(t, p.X, 0.0)
	require.GreaterOrEqual(t, p.Y, 0.0)
}
