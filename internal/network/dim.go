package network

import "fmt"

// Dim describes the shape of a layer or dataset: up to three spatial
// extents plus the number of examples in the batch. Rank bounds which of
// X/Y/Z are meaningful; unused trailing extents are fixed at 1. Examples
// is always the batch width and never part of the feature shape.
//
// Dim is a value type and is compared with ==.
type Dim struct {
	Rank     int
	X        uint32
	Y        uint32
	Z        uint32
	Examples uint32
}

// Dim1 returns a rank-1 shape with no examples set.
func Dim1(x uint32) Dim {
	return Dim{Rank: 1, X: max(x, 1), Y: 1, Z: 1}
}

// Dim2 returns a rank-2 shape with no examples set.
func Dim2(x, y uint32) Dim {
	return Dim{Rank: 2, X: max(x, 1), Y: max(y, 1), Z: 1}
}

// Dim3 returns a rank-3 shape with no examples set.
func Dim3(x, y, z uint32) Dim {
	return Dim{Rank: 3, X: max(x, 1), Y: max(y, 1), Z: max(z, 1)}
}

// WithExamples returns a copy of d sized for a batch of n examples.
func (d Dim) WithExamples(n uint32) Dim {
	d.Examples = n
	return d
}

// FeatureSize is the number of values per example.
func (d Dim) FeatureSize() int {
	return int(d.X) * int(d.Y) * int(d.Z)
}

// Size is the total number of values across the batch.
func (d Dim) Size() int {
	return d.FeatureSize() * int(d.Examples)
}

// SameExtents reports whether d and o agree on the spatial extents,
// ignoring rank and batch width.
func (d Dim) SameExtents(o Dim) bool {
	return d.X == o.X && d.Y == o.Y && d.Z == o.Z
}

func (d Dim) String() string {
	return fmt.Sprintf("(x=%d,y=%d,z=%d,examples=%d)", d.X, d.Y, d.Z, d.Examples)
}
