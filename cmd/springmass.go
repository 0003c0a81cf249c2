package cmd

// SpringMassModel is the demo hierarchy used by the run command: a mass
// hanging from a spring of random stiffness, integrated with explicit Euler.
// Fidelity is the integration time step; the output is the maximum
// displacement over the simulated duration. The estimation core treats it as
// an opaque Model like any user-supplied simulator.
type SpringMassModel struct {
	Mass     float64 // kg
	Gravity  float64 // m/s^2; 0 means standard gravity
	TimeStep float64 // s, the fidelity knob
	Duration float64 // s, simulated horizon
	EvalCost float64 // seconds per evaluation; 0 = measure by timing
}

// Evaluate integrates z'' = g - (k/m) z from rest and returns the maximum
// displacement reached, for spring stiffness k.
func (m *SpringMassModel) Evaluate(stiffness float64) float64 {
	g := m.Gravity
	if g == 0 {
		g = 9.81
	}

	var z, v, maxZ float64
	for t := 0.0; t < m.Duration; t += m.TimeStep {
		a := g - (stiffness/m.Mass)*z
		v += a * m.TimeStep
		z += v * m.TimeStep
		if z > maxZ {
			maxZ = z
		}
	}
	return maxZ
}

// Cost reports the configured per-evaluation cost hint.
func (m *SpringMassModel) Cost() float64 { return m.EvalCost }
