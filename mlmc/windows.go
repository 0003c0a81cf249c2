package mlmc

import "fmt"

// SampleWindow is the half-open slice [Start, End) of the global input
// stream assigned to one level. Adjacent windows overlap: window l and
// window l+1 share exactly N_{l+1} positions, so the fine and coarse models
// of a correction term evaluate bit-identical draws. The overlap is never
// re-sampled.
type SampleWindow struct {
	Level int
	Start int
	End   int
}

// Len returns the number of stream positions assigned to the window.
func (w SampleWindow) Len() int { return w.End - w.Start }

// StreamLen returns the total stream length the windows for counts are cut
// from, which is the plain sum of per-level sample counts.
func StreamLen(counts []int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// BuildSampleWindows lays out the per-level windows for the given sample
// counts over a single stream of StreamLen(counts) draws. Window l starts at
// the sum of all coarser counts and spans N_l + N_{l+1} positions (the top
// level spans N_L only).
//
// The window layout is computed atomically from the full count vector;
// callers must not grow or shrink counts afterwards and expect the overlap
// guarantees to hold.
func BuildSampleWindows(counts []int) ([]SampleWindow, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: sample counts must be a non-empty slice", ErrInvalidType)
	}
	for l, n := range counts {
		if n < 0 {
			return nil, fmt.Errorf("%w: sample count for level %d is negative (%d)", ErrInvalidType, l, n)
		}
	}

	windows := make([]SampleWindow, len(counts))
	offset := 0
	for l, n := range counts {
		next := 0
		if l+1 < len(counts) {
			next = counts[l+1]
		}
		windows[l] = SampleWindow{Level: l, Start: offset, End: offset + n + next}
		offset += n
	}
	return windows, nil
}

// SliceStream applies windows to the stream they were built for and returns
// the per-level input slices. The returned slices alias the stream, which
// keeps the overlap regions bit-identical by construction.
func SliceStream(windows []SampleWindow, stream []float64) ([][]float64, error) {
	inputs := make([][]float64, len(windows))
	for i, w := range windows {
		if w.Start < 0 || w.End > len(stream) || w.Start > w.End {
			return nil, fmt.Errorf("%w: window %d [%d,%d) outside stream of length %d",
				ErrInvalidValue, w.Level, w.Start, w.End, len(stream))
		}
		inputs[i] = stream[w.Start:w.End]
	}
	return inputs, nil
}
