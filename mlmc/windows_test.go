package mlmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSampleWindows_ReferenceLayout(t *testing.T) {
	// GIVEN sample counts [5,4,3,2,1] over the stream 0..8
	windows, err := BuildSampleWindows([]int{5, 4, 3, 2, 1})
	require.NoError(t, err)

	// THEN each window matches the documented half-open layout
	expected := []SampleWindow{
		{Level: 0, Start: 0, End: 9},
		{Level: 1, Start: 5, End: 12},
		{Level: 2, Start: 9, End: 14},
		{Level: 3, Start: 12, End: 15},
		{Level: 4, Start: 14, End: 15},
	}
	assert.Equal(t, expected, windows)
}

func TestBuildSampleWindows_LengthSums(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
	}{
		{"uniform", []int{10, 10, 10}},
		{"descending", []int{1000, 600, 300, 100, 50, 10}},
		{"with zero level", []int{5, 0, 3}},
		{"single level", []int{24}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows, err := BuildSampleWindows(tt.counts)
			require.NoError(t, err)

			// Sum of window lengths = sum of N_l plus sum of N_{l+1} for l < L.
			want := 0
			for l, n := range tt.counts {
				want += n
				if l > 0 {
					want += n
				}
			}
			got := 0
			for _, w := range windows {
				got += w.Len()
			}
			assert.Equal(t, want, got)

			// The top window holds exactly its own count.
			assert.Equal(t, tt.counts[len(tt.counts)-1], windows[len(windows)-1].Len())
		})
	}
}

func TestBuildSampleWindows_OverlapIsSharedSlice(t *testing.T) {
	// GIVEN a stream sliced by the windows for [10, 6, 3, 1]
	counts := []int{10, 6, 3, 1}
	windows, err := BuildSampleWindows(counts)
	require.NoError(t, err)

	stream := make([]float64, StreamLen(counts))
	for i := range stream {
		stream[i] = float64(i) * 1.5
	}
	inputs, err := SliceStream(windows, stream)
	require.NoError(t, err)

	// THEN the tail of each level equals the head of the next, element for element
	assert.Equal(t, inputs[0][10:], inputs[1][:6])
	assert.Equal(t, inputs[1][6:], inputs[2][:3])
	assert.Equal(t, inputs[2][3:], inputs[3])
}

func TestBuildSampleWindows_RejectsBadCounts(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
	}{
		{"nil", nil},
		{"empty", []int{}},
		{"negative entry", []int{3, -1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSampleWindows(tt.counts)
			assert.ErrorIs(t, err, ErrInvalidType)
		})
	}
}

func TestSliceStream_RejectsShortStream(t *testing.T) {
	windows, err := BuildSampleWindows([]int{3, 2})
	require.NoError(t, err)

	_, err = SliceStream(windows, make([]float64, 4))
	assert.ErrorIs(t, err, ErrInvalidValue)
}
