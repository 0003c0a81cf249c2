package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mlmc-sim/mlmc-sim/mlmc"
	"github.com/mlmc-sim/mlmc-sim/mlmc/cache"
)

var (
	// CLI flags for the estimation run
	seed         int64   // Seed for reproducible input draws
	logLevel     string  // Log verbosity level
	planPath     string  // YAML level-plan file
	epsilon      float64 // Target standard error of the estimate
	pilotSamples int     // Pilot sample size per level
	cachePath    string  // Evaluation cache file ("" disables caching)
	diffsDir     string  // Directory for per-level correction files ("" disables)
	showProgress bool    // Render progress bars during model evaluation
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "mlmc-sim",
	Short: "Multi-level Monte Carlo estimator for hierarchies of stochastic models",
}

// runCmd executes a full estimation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the multi-level Monte Carlo estimation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		plan, err := LoadLevelPlan(planPath)
		if err != nil {
			logrus.Fatalf("Unable to read level plan: %v", err)
		}
		if err := plan.Validate(); err != nil {
			logrus.Fatalf("Invalid level plan: %v", err)
		}

		result, err := runEstimation(plan)
		if err != nil {
			logrus.Fatalf("Estimation failed: %v", err)
		}

		fmt.Printf("MLMC estimate:  %g\n", result.Estimate.Value)
		fmt.Printf("MLMC precision: %g\n", result.Estimate.Variance)
		fmt.Printf("Sample sizes:   %v\n", result.SampleSizes)
		fmt.Printf("Level costs:    %v\n", result.Costs)
		logrus.Info("Estimation complete.")
	},
}

// runEstimation drives the pipeline stage by stage so the CLI can layer
// caching and progress reporting around the core operations.
//
// The pilot and the main stream are drawn from identically seeded sources,
// so when caching is enabled the pilot's draws reappear verbatim at the head
// of the main stream and their evaluations are served from the cache.
func runEstimation(plan *LevelPlan) (*mlmc.Result, error) {
	models := plan.Models()
	st := plan.Stiffness

	pilotSource := mlmc.NewBetaInput(st.Shift, st.Scale, st.Alpha, st.Beta,
		mlmc.NewPartitionedRNG(mlmc.NewSimulationKey(seed)))
	pilotSim, err := mlmc.NewSimulator(pilotSource, models)
	if err != nil {
		return nil, err
	}

	var costs, variances []float64
	if cachePath != "" {
		costs, variances, err = pilotSim.CostsAndVariancesCached(pilotSamples, cachePath)
	} else {
		costs, variances, err = pilotSim.CostsAndVariances(pilotSamples)
	}
	if err != nil {
		return nil, err
	}
	logrus.Infof("Pilot of %d samples/level done: costs=%v variances=%v", pilotSamples, costs, variances)

	sizes, err := mlmc.OptimalSampleSizes(costs, variances, epsilon)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Optimal sample sizes for epsilon=%g: %v", epsilon, sizes)

	mainSource := mlmc.NewBetaInput(st.Shift, st.Scale, st.Alpha, st.Beta,
		mlmc.NewPartitionedRNG(mlmc.NewSimulationKey(seed)))
	sim, err := mlmc.NewSimulator(mainSource, models)
	if err != nil {
		return nil, err
	}
	inputs, err := sim.LevelInputs(sizes)
	if err != nil {
		return nil, err
	}

	var outputs [][]float64
	if cachePath != "" {
		outputs, err = evaluateWithCache(models, inputs)
	} else {
		outputs, err = evaluateLevels(models, inputs)
	}
	if err != nil {
		return nil, err
	}

	if diffsDir != "" {
		if _, err := mlmc.LevelDifferences(outputs, mlmc.NewFileSink(diffsDir)); err != nil {
			return nil, err
		}
	}

	estimate, err := mlmc.ComputeEstimate(outputs)
	if err != nil {
		return nil, err
	}
	return &mlmc.Result{Estimate: estimate, SampleSizes: sizes, Costs: costs, Variances: variances}, nil
}

// evaluateLevels runs every model over its window inputs with a progress bar
// across the whole workload.
func evaluateLevels(models []mlmc.Model, inputs [][]float64) ([][]float64, error) {
	total := 0
	for _, in := range inputs {
		total += len(in)
	}
	bar := pb.StartNew(total)
	if !showProgress {
		bar.SetWriter(io.Discard)
	}
	defer bar.Finish()

	outputs := make([][]float64, len(inputs))
	for l, in := range inputs {
		out := make([]float64, len(in))
		for i, x := range in {
			out[i] = models[l].Evaluate(x)
			bar.Increment()
		}
		outputs[l] = out
	}
	return outputs, nil
}

// evaluateWithCache strips cached draws from each level's window before
// evaluating, then splices the cached outputs back in. The spliced output
// set keeps each level's window length but not its draw order; that is fine
// for the count-weighted statistics downstream.
func evaluateWithCache(models []mlmc.Model, inputs [][]float64) ([][]float64, error) {
	windowLens := make([]int, len(inputs))
	var flat []float64
	for l, in := range inputs {
		windowLens[l] = len(in)
		flat = append(flat, in...)
	}

	outputs := make([][]float64, len(inputs))
	err := cache.With(cachePath, func(store *cache.Store) error {
		remaining, hits, matches, err := store.CompareInputs(windowLens, flat)
		if err != nil {
			return err
		}
		if err := store.NarrowOutputs(matches); err != nil {
			return err
		}
		logrus.Infof("Cache hits per level: %v", hits)

		bar := pb.StartNew(len(remaining))
		if !showProgress {
			bar.SetWriter(io.Discard)
		}
		defer bar.Finish()

		offset := 0
		for l := range inputs {
			fresh := make([]float64, windowLens[l]-hits[l])
			for i := range fresh {
				fresh[i] = models[l].Evaluate(remaining[offset+i])
				bar.Increment()
			}
			offset += len(fresh)

			outputs[l], err = store.MergedOutputs(l, fresh)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("evaluating against cache %s: %w", cachePath, err)
	}
	return outputs, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for reproducible input draws")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&planPath, "plan", "examples/springmass.yaml", "YAML level-plan file")
	runCmd.Flags().Float64Var(&epsilon, "epsilon", 0.05, "Target standard error of the estimate")
	runCmd.Flags().IntVar(&pilotSamples, "pilot-samples", 100, "Pilot sample size per level")
	runCmd.Flags().StringVar(&cachePath, "cache", "", "Evaluation cache file (empty disables caching)")
	runCmd.Flags().StringVar(&diffsDir, "diffs-dir", "", "Directory for per-level correction files (empty disables)")
	runCmd.Flags().BoolVar(&showProgress, "progress", false, "Render progress bars during model evaluation")

	rootCmd.AddCommand(runCmd)
}
