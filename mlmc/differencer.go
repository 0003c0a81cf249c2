package mlmc

import "fmt"

// OutputSampleSizes recovers the per-level sample counts N_l from raw model
// output lengths. Because window l holds N_l + N_{l+1} positions, lengths
// telescope from the top: N_L = len_L and N_l = len_l - N_{l+1}.
//
// Lengths that cannot come from a single consistent count vector (a derived
// count would be negative) are rejected with ErrInvalidValue.
func OutputSampleSizes(outputs [][]float64) ([]int, error) {
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: outputs must be a non-empty slice of levels", ErrInvalidType)
	}
	for l, level := range outputs {
		if level == nil {
			return nil, fmt.Errorf("%w: outputs for level %d are nil", ErrInvalidType, l)
		}
	}

	sizes := make([]int, len(outputs))
	top := len(outputs) - 1
	sizes[top] = len(outputs[top])
	for l := top - 1; l >= 0; l-- {
		sizes[l] = len(outputs[l]) - sizes[l+1]
		if sizes[l] < 0 {
			return nil, fmt.Errorf("%w: level %d outputs (%d values) shorter than level %d overlap (%d values)",
				ErrInvalidValue, l, len(outputs[l]), l+1, sizes[l+1])
		}
	}
	return sizes, nil
}

// LevelDifferences turns raw per-level outputs into the telescoping
// correction vectors Y_l. Level 0 keeps its own N_0 outputs unchanged; for
// l > 0, the head of level l (the fine evaluations of the shared draws) is
// paired element-for-element with the tail of level l-1 (the coarse
// evaluations of the same draws):
//
//	Y_l = outputs[l][:N_l] - outputs[l-1][N_{l-1}:]
//
// When sink is non-nil every Y_l is written through to it, one call per
// level, giving callers an audit trail of the corrections.
func LevelDifferences(outputs [][]float64, sink DiffSink) ([][]float64, error) {
	sizes, err := OutputSampleSizes(outputs)
	if err != nil {
		return nil, err
	}

	diffs := make([][]float64, len(outputs))
	for l, n := range sizes {
		y := make([]float64, n)
		if l == 0 {
			copy(y, outputs[0][:n])
		} else {
			head := outputs[l][:n]
			tail := outputs[l-1][sizes[l-1]:]
			for i := range head {
				y[i] = head[i] - tail[i]
			}
		}
		diffs[l] = y
	}

	if sink != nil {
		for l, y := range diffs {
			if err := sink.WriteLevel(l, y); err != nil {
				return nil, fmt.Errorf("writing level %d differences: %w", l, err)
			}
		}
	}
	return diffs, nil
}
