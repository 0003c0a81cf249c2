package mlmc

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlmc-sim/mlmc-sim/mlmc/cache"
)

// linearHierarchy builds three cost-hinted models f_l(x) = (l+1)*x, so every
// correction Y_l equals x and pilot variances are exactly predictable.
func linearHierarchy() []Model {
	return []Model{
		FuncModel{Fn: func(x float64) float64 { return x }, EvalCost: 1},
		FuncModel{Fn: func(x float64) float64 { return 2 * x }, EvalCost: 10},
		FuncModel{Fn: func(x float64) float64 { return 3 * x }, EvalCost: 100},
	}
}

func TestCostsAndVariances_PairsAdjacentUnitCosts(t *testing.T) {
	// GIVEN a replayed input stream and cost hints [1, 10, 100]
	sim, err := NewSimulator(NewDataInput(seq(0, 12)), linearHierarchy())
	require.NoError(t, err)

	costs, variances, err := sim.CostsAndVariances(4)
	require.NoError(t, err)

	// THEN a correction level costs the sum of both participating models
	assert.Equal(t, []float64{1, 11, 110}, costs)

	// AND every Y_l reduces to the pilot draws themselves, with population
	// variance popvar(0,1,2,3) = 1.25 on each level
	for l, v := range variances {
		assert.InDelta(t, 1.25, v, 1e-12, "level %d", l)
	}
}

func TestCostsAndVariances_RejectsThinHierarchies(t *testing.T) {
	sim, err := NewSimulator(NewDataInput(seq(0, 10)), []Model{FuncModel{Fn: func(x float64) float64 { return x }}})
	require.NoError(t, err)

	_, _, err = sim.CostsAndVariances(4)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestCostsAndVariances_RejectsTinyPilot(t *testing.T) {
	sim, err := NewSimulator(NewDataInput(seq(0, 10)), linearHierarchy())
	require.NoError(t, err)

	_, _, err = sim.CostsAndVariances(1)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestCostsAndVariancesCached_PersistsPilotPairs(t *testing.T) {
	// GIVEN a pilot that writes its evaluations to a cache file
	path := filepath.Join(t.TempDir(), "pilot.cache")
	sim, err := NewSimulator(NewDataInput(seq(0, 12)), linearHierarchy())
	require.NoError(t, err)

	_, _, err = sim.CostsAndVariancesCached(4, path)
	require.NoError(t, err)

	// THEN the store holds each level's pilot inputs and fine outputs
	err = cache.With(path, func(store *cache.Store) error {
		in1, err := store.Read(cache.PartitionInputs, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{4, 5, 6, 7}, in1)

		out1, err := store.Read(cache.PartitionOutputs, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{8, 10, 12, 14}, out1)
		return nil
	})
	require.NoError(t, err)
}

func TestOptimalSampleSizes_ClassicalAllocation(t *testing.T) {
	costs := []float64{1, 10, 100}
	variances := []float64{150, 120, 100}

	sizes, err := OptimalSampleSizes(costs, variances, 1.0)
	require.NoError(t, err)

	// N_l = ceil(sqrt(V_l/C_l) * (sqrt(150)+sqrt(1200)+sqrt(10000)))
	assert.Equal(t, []int{1800, 509, 147}, sizes)
}

func TestOptimalSampleSizes_MonotoneInEpsilon(t *testing.T) {
	costs := []float64{1, 10, 100}
	variances := []float64{150, 120, 100}

	epsilons := []float64{0.1, 0.5, 1.0, 2.0, 10.0}
	var prev []int
	for _, eps := range epsilons {
		sizes, err := OptimalSampleSizes(costs, variances, eps)
		require.NoError(t, err)
		if prev != nil {
			// Looser precision never demands more samples on any level.
			for l := range sizes {
				assert.LessOrEqual(t, sizes[l], prev[l], "epsilon %g level %d", eps, l)
			}
		}
		prev = sizes
	}
}

func TestOptimalSampleSizes_RejectsBadNumerics(t *testing.T) {
	good := []float64{1, 10}

	tests := []struct {
		name      string
		costs     []float64
		variances []float64
		epsilon   float64
	}{
		{"zero epsilon", good, good, 0},
		{"negative epsilon", good, good, -1},
		{"NaN epsilon", good, good, math.NaN()},
		{"Inf epsilon", good, good, math.Inf(1)},
		{"negative cost", []float64{-1, 10}, good, 1},
		{"zero cost", []float64{0, 10}, good, 1},
		{"NaN cost", []float64{math.NaN(), 10}, good, 1},
		{"negative variance", good, []float64{-5, 10}, 1},
		{"Inf variance", good, []float64{math.Inf(1), 10}, 1},
		{"length mismatch", []float64{1}, good, 1},
		{"empty", nil, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OptimalSampleSizes(tt.costs, tt.variances, tt.epsilon)
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestOptimalSampleSizes_TinyEpsilonOverflows(t *testing.T) {
	costs := []float64{1, 10, 100}
	variances := []float64{150, 120, 100}

	// eps^-2 is finite here but the solve exceeds the int range.
	_, err := OptimalSampleSizes(costs, variances, 1e-9)
	assert.ErrorIs(t, err, ErrInvalidValue)

	// And here eps^-2 itself is +Inf.
	_, err = OptimalSampleSizes(costs, variances, 1e-200)
	assert.ErrorIs(t, err, ErrInvalidValue)
}
