// Package netdata provides concrete dataset implementations bound to
// network layers.
package netdata

import (
	"fmt"

	"github.com/latticeml/lattice/internal/network"
)

// Dense is a float32-backed input dataset laid out row-major per example:
// example i occupies values [i*featureSize, (i+1)*featureSize).
type Dense struct {
	name   string
	dim    network.Dim
	values []float32
}

// NewDense allocates a zeroed dense dataset of the given shape.
func NewDense(name string, dim network.Dim) *Dense {
	return &Dense{
		name:   name,
		dim:    dim,
		values: make([]float32, dim.Size()),
	}
}

func (d *Dense) Name() string      { return d.name }
func (d *Dense) Dim() network.Dim  { return d.dim }
func (d *Dense) Values() []float32 { return d.values }

// SetExample copies vals into the slot for example i. The value count
// must equal the feature size exactly.
func (d *Dense) SetExample(i int, vals []float32) error {
	w := d.dim.FeatureSize()
	if i < 0 || i >= int(d.dim.Examples) {
		return fmt.Errorf("netdata: example index %d out of range [0,%d)", i, d.dim.Examples)
	}
	if len(vals) != w {
		return fmt.Errorf("netdata: example %d has %d values, dataset %q expects %d", i, len(vals), d.name, w)
	}
	copy(d.values[i*w:(i+1)*w], vals)
	return nil
}

// Example returns the value slice for example i.
func (d *Dense) Example(i int) []float32 {
	w := d.dim.FeatureSize()
	return d.values[i*w : (i+1)*w]
}
