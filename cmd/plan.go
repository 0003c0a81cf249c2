package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mlmc-sim/mlmc-sim/mlmc"
)

// LevelPlan describes a spring-mass model hierarchy, loadable from a YAML
// file. Levels are ordered coarsest first; fidelity comes from a shrinking
// integration time step.
type LevelPlan struct {
	Mass      float64         `yaml:"mass"`
	Duration  float64         `yaml:"duration"`
	Stiffness StiffnessConfig `yaml:"stiffness"`
	Levels    []LevelConfig   `yaml:"levels"`
}

// StiffnessConfig parameterizes the random spring stiffness draw
// shift + scale*Beta(alpha, beta).
type StiffnessConfig struct {
	Shift float64 `yaml:"shift"`
	Scale float64 `yaml:"scale"`
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
}

// LevelConfig holds one fidelity tier of the hierarchy.
type LevelConfig struct {
	TimeStep float64 `yaml:"time_step"`
	Cost     float64 `yaml:"cost"` // seconds per evaluation; 0 = measure by timing
}

// LoadLevelPlan reads and parses a YAML level-plan file.
func LoadLevelPlan(path string) (*LevelPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading level plan: %w", err)
	}
	var plan LevelPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing level plan: %w", err)
	}
	return &plan, nil
}

// Validate checks that the plan describes a usable hierarchy.
func (p *LevelPlan) Validate() error {
	if p.Mass <= 0 {
		return fmt.Errorf("mass must be positive, got %g", p.Mass)
	}
	if len(p.Levels) < 2 {
		return fmt.Errorf("a hierarchy needs at least 2 levels, got %d", len(p.Levels))
	}
	prev := 0.0
	for l, lc := range p.Levels {
		if lc.TimeStep <= 0 {
			return fmt.Errorf("level %d time_step must be positive, got %g", l, lc.TimeStep)
		}
		if l > 0 && lc.TimeStep >= prev {
			return fmt.Errorf("level %d time_step %g must shrink below level %d's %g",
				l, lc.TimeStep, l-1, prev)
		}
		prev = lc.TimeStep
	}
	if p.Stiffness.Alpha <= 0 || p.Stiffness.Beta <= 0 {
		return fmt.Errorf("stiffness alpha and beta must be positive, got %g and %g",
			p.Stiffness.Alpha, p.Stiffness.Beta)
	}
	return nil
}

// Models builds the ordered model hierarchy the plan describes.
func (p *LevelPlan) Models() []mlmc.Model {
	duration := p.Duration
	if duration <= 0 {
		duration = 10.0
	}
	models := make([]mlmc.Model, len(p.Levels))
	for l, lc := range p.Levels {
		models[l] = &SpringMassModel{
			Mass:     p.Mass,
			TimeStep: lc.TimeStep,
			Duration: duration,
			EvalCost: lc.Cost,
		}
	}
	return models
}
