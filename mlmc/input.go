package mlmc

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// InputSource supplies draws from the governing random variable. Sample is
// deterministic for a given seed and independent across calls; the windowing
// layer relies on consecutive calls continuing the same stream.
type InputSource interface {
	// Sample returns count draws. count <= 0 yields an empty slice.
	Sample(count int) ([]float64, error)
}

// Rander is the draw contract satisfied by every gonum distuv distribution.
type Rander interface {
	Rand() float64
}

// RandomInput samples an affine transform shift + scale*X of a seeded
// distribution. The common case is a distuv distribution whose Src field was
// seeded from a PartitionedRNG subsystem.
type RandomInput struct {
	dist  Rander
	shift float64
	scale float64
}

// NewRandomInput wraps dist as an InputSource with identity transform.
func NewRandomInput(dist Rander) *RandomInput {
	return &RandomInput{dist: dist, scale: 1}
}

// NewShiftedInput wraps dist as shift + scale*X, matching hierarchies whose
// random coefficient lives on an interval away from the origin (e.g. a
// spring stiffness on [1, 3.5]).
func NewShiftedInput(dist Rander, shift, scale float64) *RandomInput {
	return &RandomInput{dist: dist, shift: shift, scale: scale}
}

// NewBetaInput is a convenience for the shifted Beta draw used throughout
// the examples: shift + scale*Beta(alpha, beta).
func NewBetaInput(shift, scale, alpha, beta float64, rng *PartitionedRNG) *RandomInput {
	dist := distuv.Beta{Alpha: alpha, Beta: beta, Src: rng.SourceFor(SubsystemStream)}
	return NewShiftedInput(dist, shift, scale)
}

func (r *RandomInput) Sample(count int) ([]float64, error) {
	if r.dist == nil {
		return nil, fmt.Errorf("%w: random input has no distribution", ErrConfiguration)
	}
	out := make([]float64, 0, max(count, 0))
	for i := 0; i < count; i++ {
		out = append(out, r.shift+r.scale*r.dist.Rand())
	}
	return out, nil
}

// DataInput replays a pre-recorded stream of draws in order, so a run can be
// reproduced exactly from persisted inputs. It is consumed sequentially and
// never rewinds.
type DataInput struct {
	values []float64
	pos    int
}

// NewDataInput creates a DataInput over values. The slice is not copied;
// callers must not mutate it while the source is in use.
func NewDataInput(values []float64) *DataInput {
	return &DataInput{values: values}
}

func (d *DataInput) Sample(count int) ([]float64, error) {
	if count <= 0 {
		return []float64{}, nil
	}
	if d.pos+count > len(d.values) {
		return nil, fmt.Errorf("%w: recorded input exhausted (%d values left, %d requested)",
			ErrConfiguration, len(d.values)-d.pos, count)
	}
	out := d.values[d.pos : d.pos+count]
	d.pos += count
	return out, nil
}

// Remaining reports how many recorded draws have not been consumed yet.
func (d *DataInput) Remaining() int {
	return len(d.values) - d.pos
}
