package mlmc

import "math"

// Model is one fidelity tier of the hierarchy: a pure function from a single
// draw to a scalar output. Implementations must be safe for concurrent calls
// because levels are evaluated in parallel.
type Model interface {
	Evaluate(x float64) float64
}

// CostHinted is an optional interface for models that know their evaluation
// cost up front. When a level's model provides a hint, the pilot skips
// wall-clock timing for that level and trusts the hint; costs then stay
// stable across hosts and runs.
type CostHinted interface {
	Cost() float64
}

// FuncModel adapts a plain function to the Model interface.
// EvalCost, when positive, is exposed as a cost hint.
type FuncModel struct {
	Fn       func(float64) float64
	EvalCost float64
}

func (m FuncModel) Evaluate(x float64) float64 { return m.Fn(x) }

func (m FuncModel) Cost() float64 { return m.EvalCost }

// DataModel replays previously computed (input, output) pairs: evaluating a
// recorded input returns its recorded output, anything else returns NaN.
// Matching is exact on the float64 bit pattern, the same rule the evaluation
// cache uses.
type DataModel struct {
	outputs  map[float64]float64
	evalCost float64
}

// NewDataModel builds a DataModel from parallel input/output slices. The
// shorter slice bounds the recorded set; duplicate inputs keep the last
// recorded output.
func NewDataModel(inputs, outputs []float64, cost float64) *DataModel {
	n := min(len(inputs), len(outputs))
	m := make(map[float64]float64, n)
	for i := 0; i < n; i++ {
		m[inputs[i]] = outputs[i]
	}
	return &DataModel{outputs: m, evalCost: cost}
}

func (m *DataModel) Evaluate(x float64) float64 {
	if y, ok := m.outputs[x]; ok {
		return y
	}
	return math.NaN()
}

func (m *DataModel) Cost() float64 { return m.evalCost }
