package cpu

import (
	"fmt"
	"math"

	"github.com/latticeml/lattice/pkg/lnf"
)

// denseLayer is one fully-connected step of the forward chain. Weights
// are stored row-major by input unit: w[i*out+j] connects input i to
// output j, matching the on-disk layout.
type denseLayer struct {
	name string
	in   int
	out  int
	w    []float32
	b    []float32
	act  func(float32) float32
}

// forward holds the scratch buffers for one pass through the chain, so
// per-example runs allocate nothing.
type forward struct {
	chain []denseLayer
	cur   []float32
	next  []float32
}

func newForward(chain []denseLayer) *forward {
	widest := 0
	for _, dl := range chain {
		widest = max(widest, dl.in, dl.out)
	}
	return &forward{
		chain: chain,
		cur:   make([]float32, widest),
		next:  make([]float32, widest),
	}
}

// run computes the output vector for a single example. The returned
// slice aliases internal scratch and is valid until the next call.
func (f *forward) run(input []float32) []float32 {
	copy(f.cur, input)
	x := f.cur[:len(input)]
	for _, dl := range f.chain {
		y := f.next[:dl.out]
		matvec(dl, x, y)
		f.cur, f.next = f.next, f.cur
		x = y
	}
	return x
}

// matvec computes y = act(x*W + b) for one dense layer.
func matvec(dl denseLayer, x, y []float32) {
	copy(y, dl.b)
	for i := 0; i < dl.in; i++ {
		xi := x[i]
		if xi == 0 {
			continue
		}
		row := dl.w[i*dl.out : (i+1)*dl.out]
		for j, wij := range row {
			y[j] += xi * wij
		}
	}
	if dl.act != nil {
		for j := range y {
			y[j] = dl.act(y[j])
		}
	}
}

func activation(name string) (func(float32) float32, error) {
	switch name {
	case "", lnf.ActIdentity:
		return nil, nil
	case lnf.ActReLU:
		return relu, nil
	case lnf.ActSigmoid:
		return sigmoid, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}

func relu(v float32) float32 {
	if v < 0 {
		return 0
	}
	return v
}

func sigmoid(v float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(v))))
}
