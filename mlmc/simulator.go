package mlmc

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mlmc-sim/mlmc-sim/mlmc/cache"
)

// Simulator wires an input source and an ordered model hierarchy (level 0 =
// coarsest and cheapest) into the full estimation pipeline. All methods are
// stateless over their arguments; the only held state is the configuration.
type Simulator struct {
	source InputSource
	models []Model
	sink   DiffSink
}

// Option configures optional Simulator collaborators.
type Option func(*Simulator)

// WithDiffSink write-throughs every level's correction vector to sink during
// Run, one call per level.
func WithDiffSink(sink DiffSink) Option {
	return func(s *Simulator) { s.sink = sink }
}

// NewSimulator validates and assembles a Simulator. The models slice is
// ordered by strictly increasing fidelity and cost.
func NewSimulator(source InputSource, models []Model, opts ...Option) (*Simulator, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: input source is nil", ErrConfiguration)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: at least one level model is required", ErrConfiguration)
	}
	for l, m := range models {
		if m == nil {
			return nil, fmt.Errorf("%w: model for level %d is nil", ErrConfiguration, l)
		}
	}
	s := &Simulator{source: source, models: models}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Levels returns the depth of the model hierarchy.
func (s *Simulator) Levels() int { return len(s.models) }

// LevelInputs draws one continuous stream of StreamLen(counts) inputs and
// slices it into the overlapping per-level windows. Window construction
// completes before any evaluation can start; the overlap regions alias the
// same stream positions and are therefore bit-identical across levels.
func (s *Simulator) LevelInputs(counts []int) ([][]float64, error) {
	windows, err := BuildSampleWindows(counts)
	if err != nil {
		return nil, err
	}
	stream, err := s.source.Sample(StreamLen(counts))
	if err != nil {
		return nil, fmt.Errorf("drawing input stream: %w", err)
	}
	return SliceStream(windows, stream)
}

// LevelInputsFromCache draws the input stream and strips every draw already
// present in the cache store, narrowing the store's outputs to the matched
// entries as a side effect. It returns the per-level inputs still requiring
// evaluation and the per-level count of reused samples.
//
// Deduplication operates on the plain per-level chunks of the stream (N_l
// values each, no overlap extension), mirroring how caches are written.
func (s *Simulator) LevelInputsFromCache(counts []int, store *cache.Store) ([][]float64, []int, error) {
	if _, err := BuildSampleWindows(counts); err != nil {
		return nil, nil, err
	}
	stream, err := s.source.Sample(StreamLen(counts))
	if err != nil {
		return nil, nil, fmt.Errorf("drawing input stream: %w", err)
	}

	remaining, hits, matches, err := store.CompareInputs(counts, stream)
	if err != nil {
		return nil, nil, fmt.Errorf("deduplicating against cache: %w", err)
	}
	if err := store.NarrowOutputs(matches); err != nil {
		return nil, nil, fmt.Errorf("narrowing cached outputs: %w", err)
	}

	inputs := make([][]float64, len(counts))
	offset := 0
	for l, n := range counts {
		fresh := n - hits[l]
		inputs[l] = remaining[offset : offset+fresh]
		offset += fresh
	}
	logrus.Debugf("cache reuse per level: %v", hits)
	return inputs, hits, nil
}

// StoreLevelInputs materializes the per-level window inputs for counts and
// writes each level to a plain-text file, one value per line. This is step
// one of the modular workflow: an external runner evaluates the files and
// writes matching per-level output files for LoadLevelOutputs.
//
// names may be nil, which uses level<l>_inputs.txt; otherwise it must carry
// exactly one name per level.
func (s *Simulator) StoreLevelInputs(counts []int, names []string) error {
	if names == nil {
		names = DefaultLevelFiles(len(counts), "_inputs.txt")
	}
	if len(names) != len(counts) {
		return fmt.Errorf("%w: %d file names for %d levels", ErrInvalidType, len(names), len(counts))
	}
	inputs, err := s.LevelInputs(counts)
	if err != nil {
		return err
	}
	for l, values := range inputs {
		if err := writeValuesFile(names[l], values); err != nil {
			return fmt.Errorf("storing level %d inputs: %w", l, err)
		}
	}
	return nil
}

// EvaluateLevels runs every level's model over its input slice. Levels are
// embarrassingly parallel, so evaluation fans out one goroutine per level;
// each goroutine owns a disjoint output slice and there is no shared mutable
// state. A hung model call blocks its level; this layer imposes no timeout.
func (s *Simulator) EvaluateLevels(inputs [][]float64) ([][]float64, error) {
	if len(inputs) != len(s.models) {
		return nil, fmt.Errorf("%w: %d input levels for %d models", ErrInvalidType, len(inputs), len(s.models))
	}

	outputs := make([][]float64, len(inputs))
	var wg sync.WaitGroup
	wg.Add(len(inputs))
	for l := range inputs {
		go func(l int) {
			defer wg.Done()
			model := s.models[l]
			out := make([]float64, len(inputs[l]))
			for i, x := range inputs[l] {
				out[i] = model.Evaluate(x)
			}
			outputs[l] = out
		}(l)
	}
	wg.Wait()
	return outputs, nil
}

// Result bundles everything a full Run produced.
type Result struct {
	Estimate    Estimate
	SampleSizes []int
	Costs       []float64
	Variances   []float64
	Elapsed     time.Duration
}

// Run executes the whole pipeline: pilot cost/variance measurement, optimal
// sample allocation for the target standard error epsilon, window
// construction, parallel model evaluation, differencing (written through to
// the sink when one is configured) and estimation. Any numeric failure
// aborts with no partial result.
func (s *Simulator) Run(epsilon float64, pilotSize int) (*Result, error) {
	start := time.Now()

	costs, variances, err := s.CostsAndVariances(pilotSize)
	if err != nil {
		return nil, err
	}
	logrus.Infof("pilot done: costs=%v variances=%v", costs, variances)

	sizes, err := OptimalSampleSizes(costs, variances, epsilon)
	if err != nil {
		return nil, err
	}
	logrus.Infof("optimal sample sizes for epsilon=%g: %v", epsilon, sizes)

	inputs, err := s.LevelInputs(sizes)
	if err != nil {
		return nil, err
	}
	outputs, err := s.EvaluateLevels(inputs)
	if err != nil {
		return nil, err
	}

	diffs, err := LevelDifferences(outputs, s.sink)
	if err != nil {
		return nil, err
	}
	estimate, err := estimateFromDiffs(outputs, diffs)
	if err != nil {
		return nil, err
	}

	return &Result{
		Estimate:    estimate,
		SampleSizes: sizes,
		Costs:       costs,
		Variances:   variances,
		Elapsed:     time.Since(start),
	}, nil
}
