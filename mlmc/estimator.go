package mlmc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Estimate is the result of combining all level corrections: the expectation
// of the finest model and the variance of that estimate.
type Estimate struct {
	Value    float64
	Variance float64
}

// ComputeEstimate aggregates raw per-level model outputs into the MLMC
// estimate. Sample counts are recovered from the output lengths and the
// paired corrections Y_l computed exactly as LevelDifferences does.
//
// The expectation is the count-weighted mean over the union of every level's
// output values; the estimator variance pools the per-level population
// variances of the corrections, each shrunk by its own sample count:
//
//	Var = sum_l PopVar(Y_l) / N_l
//
// so it falls with more coarse base samples and with more expensive paired
// correction samples alike. Levels with zero assigned samples contribute
// nothing and are skipped, never fatal.
func ComputeEstimate(outputs [][]float64) (Estimate, error) {
	diffs, err := LevelDifferences(outputs, nil)
	if err != nil {
		return Estimate{}, err
	}
	return estimateFromDiffs(outputs, diffs)
}

// estimateFromDiffs aggregates outputs whose corrections were already
// computed, so callers that needed the diffs for something else (e.g. a
// write-through sink) do not difference twice.
func estimateFromDiffs(outputs, diffs [][]float64) (Estimate, error) {
	var sum float64
	var count int
	for l, level := range outputs {
		for _, v := range level {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Estimate{}, fmt.Errorf("%w: level %d outputs contain a non-finite value", ErrInvalidValue, l)
			}
			sum += v
		}
		count += len(level)
	}
	if count == 0 {
		return Estimate{}, fmt.Errorf("%w: no samples on any level", ErrInvalidValue)
	}

	variance := 0.0
	for _, y := range diffs {
		if len(y) == 0 {
			continue
		}
		variance += stat.PopVariance(y, nil) / float64(len(y))
	}

	return Estimate{Value: sum / float64(count), Variance: variance}, nil
}
