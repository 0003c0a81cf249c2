package mlmc

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/mlmc-sim/mlmc-sim/mlmc/cache"
)

// CostsAndVariances runs a pilot of pilotSize draws per level and measures
// the unit cost and correction variance of every level.
//
// Each level draws its own pilot inputs; for l > 0 both model l and model
// l-1 evaluate the identical draws so that the variance measured is that of
// the paired correction Y_l = f_l(x) - f_l-1(x), not of the raw outputs.
// Variances are population variances (divide by N). The reported cost of a
// correction level is the sum of both participating models' unit costs,
// since producing one Y_l sample runs both.
//
// Unit costs come from a model's cost hint when it provides one, otherwise
// from wall-clock timing of the pilot evaluations.
func (s *Simulator) CostsAndVariances(pilotSize int) (costs, variances []float64, err error) {
	return s.costsAndVariances(pilotSize, nil)
}

// CostsAndVariancesCached behaves like CostsAndVariances and additionally
// persists every level's pilot (inputs, outputs) pairs to a cache store at
// path, so a later full run can reuse the pilot evaluations instead of
// re-running them.
func (s *Simulator) CostsAndVariancesCached(pilotSize int, path string) (costs, variances []float64, err error) {
	if path == "" {
		return nil, nil, fmt.Errorf("%w: cache path must not be empty", ErrInvalidValue)
	}
	return s.costsAndVariances(pilotSize, func(inputs, outputs [][]float64) error {
		return cache.Write(path, inputs, outputs)
	})
}

func (s *Simulator) costsAndVariances(pilotSize int, persist func(inputs, outputs [][]float64) error) ([]float64, []float64, error) {
	if len(s.models) < 2 {
		return nil, nil, fmt.Errorf("%w: pilot needs at least 2 levels, got %d", ErrConfiguration, len(s.models))
	}
	if pilotSize < 2 {
		return nil, nil, fmt.Errorf("%w: pilot sample size must be >= 2, got %d", ErrInvalidValue, pilotSize)
	}

	levels := len(s.models)
	unitCosts := make([]float64, levels)
	variances := make([]float64, levels)
	pilotInputs := make([][]float64, levels)
	pilotOutputs := make([][]float64, levels)

	for l := 0; l < levels; l++ {
		inputs, err := s.source.Sample(pilotSize)
		if err != nil {
			return nil, nil, fmt.Errorf("drawing pilot sample for level %d: %w", l, err)
		}
		pilotInputs[l] = inputs

		fine, cost := evaluateTimed(s.models[l], inputs)
		unitCosts[l] = cost
		pilotOutputs[l] = fine

		y := fine
		if l > 0 {
			coarse, _ := evaluateTimed(s.models[l-1], inputs)
			y = make([]float64, len(fine))
			for i := range fine {
				y[i] = fine[i] - coarse[i]
			}
		}
		variances[l] = stat.PopVariance(y, nil)
		logrus.Debugf("pilot level %d: unit cost %.6g, correction variance %.6g", l, cost, variances[l])
	}

	costs := make([]float64, levels)
	costs[0] = unitCosts[0]
	for l := 1; l < levels; l++ {
		costs[l] = unitCosts[l] + unitCosts[l-1]
	}

	if persist != nil {
		if err := persist(pilotInputs, pilotOutputs); err != nil {
			return nil, nil, fmt.Errorf("persisting pilot cache: %w", err)
		}
	}
	return costs, variances, nil
}

// evaluateTimed evaluates model over every input and returns the outputs
// plus the unit cost: the model's hint when present, wall-clock seconds per
// evaluation otherwise.
func evaluateTimed(model Model, inputs []float64) ([]float64, float64) {
	outputs := make([]float64, len(inputs))
	start := time.Now()
	for i, x := range inputs {
		outputs[i] = model.Evaluate(x)
	}
	elapsed := time.Since(start).Seconds()

	if h, ok := model.(CostHinted); ok && h.Cost() > 0 {
		return outputs, h.Cost()
	}
	if len(inputs) == 0 {
		return outputs, 0
	}
	return outputs, elapsed / float64(len(inputs))
}

// OptimalSampleSizes solves the classical MLMC allocation for a target
// standard error epsilon of the overall estimate:
//
//	N_l = ceil( eps^-2 * sqrt(V_l/C_l) * sum_k sqrt(V_k*C_k) )
//
// It is a pure numeric solve with no retry. Costs must be positive and
// finite, variances non-negative and finite, epsilon positive and finite;
// anything else is ErrInvalidValue.
func OptimalSampleSizes(costs, variances []float64, epsilon float64) ([]int, error) {
	if len(costs) == 0 || len(costs) != len(variances) {
		return nil, fmt.Errorf("%w: need matching non-empty costs and variances, got %d and %d",
			ErrInvalidValue, len(costs), len(variances))
	}
	if !(epsilon > 0) || math.IsInf(epsilon, 0) {
		return nil, fmt.Errorf("%w: epsilon must be positive and finite, got %g", ErrInvalidValue, epsilon)
	}
	for l := range costs {
		if !(costs[l] > 0) || math.IsInf(costs[l], 0) {
			return nil, fmt.Errorf("%w: cost for level %d must be positive and finite, got %g", ErrInvalidValue, l, costs[l])
		}
		if variances[l] < 0 || math.IsNaN(variances[l]) || math.IsInf(variances[l], 0) {
			return nil, fmt.Errorf("%w: variance for level %d must be non-negative and finite, got %g", ErrInvalidValue, l, variances[l])
		}
	}

	sumSqrtVC := 0.0
	for l := range costs {
		sumSqrtVC += math.Sqrt(variances[l] * costs[l])
	}

	sizes := make([]int, len(costs))
	invEps2 := 1 / (epsilon * epsilon)
	for l := range costs {
		n := math.Ceil(invEps2 * math.Sqrt(variances[l]/costs[l]) * sumSqrtVC)
		// float64(math.MaxInt) rounds up to 2^63, which already does not
		// fit an int; converting anything at or past it would wrap.
		if n >= float64(math.MaxInt) {
			return nil, fmt.Errorf("%w: optimal sample size for level %d overflows (epsilon %g too small)",
				ErrInvalidValue, l, epsilon)
		}
		sizes[l] = int(n)
	}
	return sizes, nil
}
