package network

// Dataset is the capability a caller-supplied data container must expose
// for the network to validate it. The network reads only the name and the
// shape; the values themselves are exchanged between the caller and the
// engine.
type Dataset interface {
	Name() string
	Dim() Dim
}

// OutputDataset receives prediction results. The engine writes Values in
// place; when the network runs in top-k mode it writes Indices and Scores
// instead, k entries per example.
//
// Use Network.CreateOutputDataset to get one sized correctly for an
// output layer and the configured k selector.
type OutputDataset struct {
	name string
	dim  Dim

	// Values holds the full output, row-major per example,
	// dim.FeatureSize() values each. Populated when k is All.
	Values []float32

	// Indices and Scores hold the ranked top-k result per example,
	// k entries each, highest score first. Populated in top-k mode.
	Indices []uint32
	Scores  []float32
}

// NewOutputDataset returns an output container of the given shape. The
// value buffer is sized to the full shape; top-k buffers are sized when
// k > 0.
func NewOutputDataset(name string, dim Dim, k uint32) *OutputDataset {
	out := &OutputDataset{
		name:   name,
		dim:    dim,
		Values: make([]float32, dim.Size()),
	}
	if k > 0 {
		n := int(k) * int(dim.Examples)
		out.Indices = make([]uint32, n)
		out.Scores = make([]float32, n)
	}
	return out
}

func (o *OutputDataset) Name() string { return o.name }
func (o *OutputDataset) Dim() Dim     { return o.dim }

// ExampleValues returns the slice of Values belonging to example i.
func (o *OutputDataset) ExampleValues(i int) []float32 {
	w := o.dim.FeatureSize()
	return o.Values[i*w : (i+1)*w]
}

// TopK returns the ranked indices and scores for example i, or nil slices
// when the dataset was not created in top-k mode.
func (o *OutputDataset) TopK(i int) ([]uint32, []float32) {
	if len(o.Indices) == 0 {
		return nil, nil
	}
	k := len(o.Indices) / int(o.dim.Examples)
	return o.Indices[i*k : (i+1)*k], o.Scores[i*k : (i+1)*k]
}
