package mlmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestRandomInput_DeterministicForSeed(t *testing.T) {
	// GIVEN two beta inputs built from the same key
	in1 := NewBetaInput(1.0, 2.5, 3, 2, NewPartitionedRNG(NewSimulationKey(1)))
	in2 := NewBetaInput(1.0, 2.5, 3, 2, NewPartitionedRNG(NewSimulationKey(1)))

	s1, err := in1.Sample(50)
	require.NoError(t, err)
	s2, err := in2.Sample(50)
	require.NoError(t, err)

	// THEN the draws are bit-identical
	assert.Equal(t, s1, s2)
}

func TestRandomInput_ShiftScaleBounds(t *testing.T) {
	// shift + scale*Beta stays inside [shift, shift+scale]
	in := NewBetaInput(1.0, 2.5, 3, 2, NewPartitionedRNG(NewSimulationKey(9)))

	samples, err := in.Sample(1000)
	require.NoError(t, err)
	require.Len(t, samples, 1000)
	for _, v := range samples {
		assert.GreaterOrEqual(t, v, 1.0)
		assert.LessOrEqual(t, v, 3.5)
	}
}

func TestRandomInput_ConsecutiveCallsContinueStream(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(3))
	whole := NewRandomInput(distuv.Uniform{Min: 0, Max: 1, Src: rng.SourceFor(SubsystemStream)})
	split := NewRandomInput(distuv.Uniform{Min: 0, Max: 1, Src: rng.SourceFor(SubsystemStream)})

	all, err := whole.Sample(20)
	require.NoError(t, err)

	head, err := split.Sample(12)
	require.NoError(t, err)
	tail, err := split.Sample(8)
	require.NoError(t, err)

	assert.Equal(t, all, append(append([]float64{}, head...), tail...))
}

func TestRandomInput_NilDistribution(t *testing.T) {
	_, err := (&RandomInput{}).Sample(3)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestDataInput_ReplaysInOrder(t *testing.T) {
	in := NewDataInput(seq(0, 10))

	head, err := in.Sample(4)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, head)

	tail, err := in.Sample(6)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6, 7, 8, 9}, tail)
	assert.Equal(t, 0, in.Remaining())
}

func TestDataInput_ExhaustionFails(t *testing.T) {
	in := NewDataInput(seq(0, 5))

	_, err := in.Sample(3)
	require.NoError(t, err)

	_, err = in.Sample(3)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, 2, in.Remaining())
}

func TestDataInput_ZeroCount(t *testing.T) {
	in := NewDataInput(nil)
	out, err := in.Sample(0)
	require.NoError(t, err)
	assert.Empty(t, out)
}
