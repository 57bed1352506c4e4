package engine

import "gonum.org/v1/gonum/mat"

// emissionFloor is the additive Laplace-style smoothing epsilon that caps
// achievable probability per state near 0.88-0.90 and prevents degenerate
// absorbing fixed points.
const emissionFloor = 0.04

// TransitionMatrix is the fixed 3x3 HMM transition matrix A (rows = from,
// cols = to), in Flow/Inc/Stuck order.
var TransitionMatrix = mat.NewDense(3, 3, []float64{
	0.80, 0.13, 0.07, // from Flow
	0.12, 0.80, 0.08, // from Inc
	0.06, 0.18, 0.76, // from Stuck
})

// EmissionMatrix is the 3x26 emission matrix B. Bins with high X/low Y
// favour Stuck, low X/low Y favour Incubation, low X/high Y favour Flow;
// the penalty bin (25) is strongly Stuck-favouring. Built procedurally
// from the grid geometry rather than as a hand-typed literal, so the two
// historically ambiguous "?" cells resolve the same way as
// their neighbours instead of being special-cased.
var EmissionMatrix = buildEmissionMatrix()

func buildEmissionMatrix() *mat.Dense {
	m := mat.NewDense(3, NumBins, nil)

	for row := 0; row < gridSize; row++ { // y bin: 0 = low Y, 4 = high Y
		yFrac := float64(row) / float64(gridSize-1)
		for col := 0; col < gridSize; col++ { // x bin: 0 = low X, 4 = high X
			xFrac := float64(col) / float64(gridSize-1)
			bin := row*gridSize + col

			flowScore := (1 - xFrac) * yFrac
			incScore := (1 - xFrac) * (1 - yFrac)
			stuckScore := xFrac * (1 - yFrac)

			total := flowScore + incScore + stuckScore
			if total == 0 {
				flowScore, incScore, stuckScore = 1.0/3, 1.0/3, 1.0/3
				total = 1
			}

			m.Set(0, bin, flowScore/total)
			m.Set(1, bin, incScore/total)
			m.Set(2, bin, stuckScore/total)
		}
	}

	// Penalty bin: a run of >=5 consecutive deletes is strongly
	// Stuck-favouring regardless of where the latent point itself sits.
	m.Set(0, PenaltyBin, 0.05)
	m.Set(1, PenaltyBin, 0.15)
	m.Set(2, PenaltyBin, 0.80)

	return m
}

// ForwardStep runs one HMM forward step: pi'_j = (sum_i pi_i * A_ij) *
// (B_j,o + epsilon), then normalises to sum 1.
func ForwardStep(prior Belief, bin int) Belief {
	piVec := mat.NewVecDense(3, prior.slice()[:])

	var predicted mat.VecDense
	predicted.MulVec(TransitionMatrix.T(), piVec)

	var next [3]float64
	for j := 0; j < 3; j++ {
		next[j] = predicted.AtVec(j) * (EmissionMatrix.At(j, bin) + emissionFloor)
	}

	return beliefFromSlice(normalize(next))
}
