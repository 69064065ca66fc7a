// Package network implements the validation and lifecycle layer between
// callers and an inference engine. A Network binds named input/output
// layers to caller-supplied datasets, checks every shape, arity and
// batch-size contract before the engine is invoked, and sequences the
// engine lifecycle (load, predict, close) so a released engine can never
// be handed another call.
package network

import (
	"fmt"
	"sync"
)

// Engine is the network's view of the native inference engine. The
// network owns its engine exclusively; nothing else may call it.
type Engine interface {
	// LoadDatasets stages input data for subsequent predict calls.
	LoadDatasets(datasets []Dataset) error

	// Predict runs inference and writes results into outputs in place,
	// honoring the k selector.
	Predict(k KSelector, inputs []Dataset, outputs []*OutputDataset) error

	// Shutdown releases all engine-side resources.
	Shutdown() error
}

// Network orchestrates predictions against a loaded model. It holds the
// run configuration, the ordered input and output layers reported by the
// engine at load time, and the engine itself.
//
// Datasets bind to layers positionally: element i of a dataset slice is
// validated against layer i. Callers order their slices to match
// InputLayers and OutputLayers.
//
// A Network serializes Load, Predict and Close internally, so concurrent
// use is safe; calls block rather than overlap. Close is idempotent, and
// every operation after Close fails with ErrClosed.
type Network struct {
	cfg          Config
	inputLayers  []Layer
	outputLayers []Layer

	mu     sync.Mutex
	engine Engine
	closed bool
}

// NewNetwork assembles a network from a loaded engine and its layer
// metadata. Exactly one output layer is supported at the moment; lifting
// this means mapping per-output k selectors, not restructuring.
func NewNetwork(cfg Config, engine Engine, inputLayers, outputLayers []Layer) (*Network, error) {
	if engine == nil {
		return nil, fmt.Errorf("network: engine is required")
	}
	if len(outputLayers) != 1 {
		return nil, fmt.Errorf("%w: exactly one output layer is supported, got %d",
			ErrUnsupportedTopology, len(outputLayers))
	}
	return &Network{
		cfg:          cfg,
		inputLayers:  append([]Layer(nil), inputLayers...),
		outputLayers: append([]Layer(nil), outputLayers...),
		engine:       engine,
	}, nil
}

func (n *Network) Config() Config { return n.cfg }

// InputLayers returns the ordered input layers. The slice is a copy.
func (n *Network) InputLayers() []Layer {
	return append([]Layer(nil), n.inputLayers...)
}

// OutputLayers returns the ordered output layers. The slice is a copy.
func (n *Network) OutputLayers() []Layer {
	return append([]Layer(nil), n.outputLayers...)
}

// Load stages input datasets in the engine for subsequent Predict calls.
// Datasets are validated against the input layers exactly as Predict
// validates them, so a dataset that would fail Predict fails here first.
func (n *Network) Load(datasets []Dataset) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	if err := n.checkInputs(datasets); err != nil {
		return err
	}
	if err := n.engine.LoadDatasets(datasets); err != nil {
		return engineErr("load datasets", err)
	}
	return nil
}

// PredictOne is the single-layer convenience form of Predict.
func (n *Network) PredictOne(input Dataset, output *OutputDataset) error {
	if len(n.inputLayers) != 1 || len(n.outputLayers) != 1 {
		return fmt.Errorf("%w: single-dataset predict requires a network with one input and one output layer",
			ErrUnsupportedOperation)
	}
	return n.Predict([]Dataset{input}, []*OutputDataset{output})
}

// PredictAlloc runs Predict with freshly allocated output datasets, one
// per output layer, sized for the configured k selector. The populated
// outputs are returned.
func (n *Network) PredictAlloc(inputs []Dataset) ([]*OutputDataset, error) {
	outputs := make([]*OutputDataset, len(n.outputLayers))
	for i, layer := range n.outputLayers {
		out, err := n.CreateOutputDataset(layer)
		if err != nil {
			return nil, err
		}
		outputs[i] = out
	}
	if err := n.Predict(inputs, outputs); err != nil {
		return nil, err
	}
	return outputs, nil
}

// Predict validates every dataset against its bound layer and the
// configured batch size, then issues exactly one engine call. Validation
// runs entirely before the engine is touched: arity before per-element
// shape before batch size, inputs before outputs, so the first violated
// rule is the one reported and a failed call has no side effects.
func (n *Network) Predict(inputs []Dataset, outputs []*OutputDataset) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	if err := n.checkInputs(inputs); err != nil {
		return err
	}
	if err := n.checkOutputs(outputs); err != nil {
		return err
	}
	if err := n.engine.Predict(n.cfg.K, inputs, outputs); err != nil {
		return engineErr("predict", err)
	}
	return nil
}

func (n *Network) checkInputs(inputs []Dataset) error {
	if len(inputs) != len(n.inputLayers) {
		return &ArityError{Kind: Input, Want: len(n.inputLayers), Got: len(inputs)}
	}
	for i, in := range inputs {
		layer := n.inputLayers[i]
		d := in.Dim()
		if d.Rank != layer.Dim.Rank || !d.SameExtents(layer.Dim) {
			return &ShapeError{
				Layer:   layer.Name,
				Dataset: in.Name(),
				Index:   i,
				Want:    layer.Dim.WithExamples(n.cfg.BatchSize),
				Got:     d,
			}
		}
		if d.Examples != n.cfg.BatchSize {
			return &BatchSizeError{Dataset: in.Name(), Index: i, Want: n.cfg.BatchSize, Got: d.Examples}
		}
	}
	return nil
}

func (n *Network) checkOutputs(outputs []*OutputDataset) error {
	if len(outputs) != len(n.outputLayers) {
		return &ArityError{Kind: Output, Want: len(n.outputLayers), Got: len(outputs)}
	}
	for i, out := range outputs {
		layer := n.outputLayers[i]
		d := out.Dim()
		want := n.outputDim(layer)
		if !d.SameExtents(want) {
			return &ShapeError{
				Layer:   layer.Name,
				Dataset: out.Name(),
				Index:   i,
				Want:    want,
				Got:     d,
			}
		}
		if d.Examples != n.cfg.BatchSize {
			return &BatchSizeError{Dataset: out.Name(), Index: i, Want: n.cfg.BatchSize, Got: d.Examples}
		}
	}
	return nil
}

// outputDim is the shape an output dataset must have for the given layer
// under the configured k selector. Top-k collapses the spatial extents
// into a flat ranked list of width k; what top-k means for layers of
// rank > 1 is unresolved, so the collapse applies regardless of rank.
func (n *Network) outputDim(layer Layer) Dim {
	if n.cfg.K.All() {
		return layer.Dim.WithExamples(n.cfg.BatchSize)
	}
	return Dim1(n.cfg.K.K()).WithExamples(n.cfg.BatchSize)
}

// CreateOutputDataset returns an empty output dataset correctly shaped
// for the given output layer and the configured k selector, named after
// the layer's dataset name.
func (n *Network) CreateOutputDataset(layer Layer) (*OutputDataset, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, ErrClosed
	}
	return NewOutputDataset(layer.DatasetName, n.outputDim(layer), n.cfg.K.K()), nil
}

// Close shuts the engine down and marks the network closed. The first
// call releases the engine; later calls are no-ops returning nil.
func (n *Network) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	if err := n.engine.Shutdown(); err != nil {
		return engineErr("shutdown", err)
	}
	return nil
}
