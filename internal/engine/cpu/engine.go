// Package cpu implements the reference pure-Go inference engine for
// dense feed-forward networks stored in the LNF container format.
package cpu

import (
	"fmt"

	"github.com/latticeml/lattice/internal/network"
	"github.com/latticeml/lattice/pkg/lnf"
)

// valueSource is the buffer capability an input dataset must provide so
// the engine can read its values.
type valueSource interface {
	Values() []float32
}

// Engine runs predictions for one loaded model. It implements
// network.Engine and additionally exposes the layer metadata needed to
// construct a Network around it.
//
// The reference engine supports networks with exactly one input and one
// output layer, with any number of hidden layers between them.
type Engine struct {
	file  *lnf.File
	name  string
	batch uint32
	k     uint32

	inputLayers  []network.Layer
	outputLayers []network.Layer
	chain        []denseLayer

	staged []network.Dataset
}

// Load opens the model at cfg.ModelPath and prepares it for prediction.
// The weight chain is validated up front: every non-input layer must
// carry a weight matrix shaped to its predecessor and a bias vector.
func Load(cfg network.Config) (*Engine, error) {
	file, err := lnf.Open(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.ModelPath, err)
	}
	eng, err := build(file, cfg)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return eng, nil
}

func build(file *lnf.File, cfg network.Config) (*Engine, error) {
	eng := &Engine{
		file:  file,
		name:  file.Model.Name,
		batch: cfg.BatchSize,
		k:     cfg.K.K(),
	}

	prevSize := 0
	for _, li := range file.Model.Layers {
		switch li.Kind {
		case lnf.KindInput:
			if len(eng.chain) > 0 {
				return nil, fmt.Errorf("model %s: input layer %q after non-input layers", eng.name, li.Name)
			}
			eng.inputLayers = append(eng.inputLayers, toLayer(li, network.Input))
			prevSize = li.FeatureSize()
		case lnf.KindHidden, lnf.KindOutput:
			if prevSize == 0 {
				return nil, fmt.Errorf("model %s: layer %q has no predecessor", eng.name, li.Name)
			}
			dl, err := loadDense(file, li, prevSize)
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", eng.name, err)
			}
			eng.chain = append(eng.chain, dl)
			prevSize = li.FeatureSize()
			if li.Kind == lnf.KindOutput {
				eng.outputLayers = append(eng.outputLayers, toLayer(li, network.Output))
			}
		}
	}

	if len(eng.inputLayers) != 1 {
		return nil, fmt.Errorf("model %s: cpu engine supports exactly one input layer, got %d",
			eng.name, len(eng.inputLayers))
	}
	if len(eng.outputLayers) != 1 {
		return nil, fmt.Errorf("model %s: cpu engine supports exactly one output layer, got %d",
			eng.name, len(eng.outputLayers))
	}
	if last := file.Model.Layers[len(file.Model.Layers)-1]; last.Kind != lnf.KindOutput {
		return nil, fmt.Errorf("model %s: last layer %q is not an output layer", eng.name, last.Name)
	}
	outSize := eng.outputLayers[0].Dim.FeatureSize()
	if eng.k > 0 && int(eng.k) > outSize {
		return nil, fmt.Errorf("model %s: top-%d exceeds output layer width %d", eng.name, eng.k, outSize)
	}
	return eng, nil
}

func toLayer(li lnf.LayerInfo, kind network.LayerKind) network.Layer {
	dsName := li.DatasetName
	if dsName == "" {
		dsName = li.Name
	}
	return network.Layer{
		Name:        li.Name,
		DatasetName: dsName,
		Dim:         layerDim(li),
		Kind:        kind,
	}
}

func layerDim(li lnf.LayerInfo) network.Dim {
	switch {
	case li.Z > 1:
		return network.Dim3(li.X, li.Y, li.Z)
	case li.Y > 1:
		return network.Dim2(li.X, li.Y)
	default:
		return network.Dim1(li.X)
	}
}

func loadDense(file *lnf.File, li lnf.LayerInfo, inSize int) (denseLayer, error) {
	act, err := activation(li.Activation)
	if err != nil {
		return denseLayer{}, fmt.Errorf("layer %q: %w", li.Name, err)
	}
	outSize := li.FeatureSize()

	w, err := file.Tensor(li.Name + ".w")
	if err != nil {
		return denseLayer{}, fmt.Errorf("layer %q: %w", li.Name, err)
	}
	if len(w) != inSize*outSize {
		return denseLayer{}, fmt.Errorf("layer %q: weights have %d values, want %dx%d",
			li.Name, len(w), inSize, outSize)
	}
	b, err := file.Tensor(li.Name + ".b")
	if err != nil {
		return denseLayer{}, fmt.Errorf("layer %q: %w", li.Name, err)
	}
	if len(b) != outSize {
		return denseLayer{}, fmt.Errorf("layer %q: bias has %d values, want %d", li.Name, len(b), outSize)
	}

	return denseLayer{
		name: li.Name,
		in:   inSize,
		out:  outSize,
		w:    w,
		b:    b,
		act:  act,
	}, nil
}

// Name returns the model name from the container header.
func (e *Engine) Name() string { return e.name }

// InputLayers returns the input layer metadata in forward order.
func (e *Engine) InputLayers() []network.Layer {
	return append([]network.Layer(nil), e.inputLayers...)
}

// OutputLayers returns the output layer metadata.
func (e *Engine) OutputLayers() []network.Layer {
	return append([]network.Layer(nil), e.outputLayers...)
}

// LoadDatasets stages input datasets for later Predict calls. Each
// dataset must expose its backing values.
func (e *Engine) LoadDatasets(datasets []network.Dataset) error {
	for _, ds := range datasets {
		if _, ok := ds.(valueSource); !ok {
			return fmt.Errorf("dataset %q does not expose dense values", ds.Name())
		}
	}
	e.staged = append(e.staged[:0], datasets...)
	return nil
}

// Predict runs the forward pass for every example in the batch, writing
// either the full output vector or the top-k (index, score) pairs into
// outputs[0]. When inputs is empty, the datasets staged by LoadDatasets
// are used instead.
func (e *Engine) Predict(k network.KSelector, inputs []network.Dataset, outputs []*network.OutputDataset) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicErr("predict", rec)
		}
	}()

	if e.file == nil {
		return fmt.Errorf("engine is shut down")
	}
	if len(inputs) == 0 {
		inputs = e.staged
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return fmt.Errorf("cpu engine runs single input/output predictions, got %d/%d",
			len(inputs), len(outputs))
	}
	src, ok := inputs[0].(valueSource)
	if !ok {
		return fmt.Errorf("dataset %q does not expose dense values", inputs[0].Name())
	}

	in := src.Values()
	inWidth := e.inputLayers[0].Dim.FeatureSize()
	if len(in) < inWidth*int(e.batch) {
		return fmt.Errorf("dataset %q has %d values, want %d", inputs[0].Name(), len(in), inWidth*int(e.batch))
	}

	out := outputs[0]
	fw := newForward(e.chain)
	for ex := 0; ex < int(e.batch); ex++ {
		result := fw.run(in[ex*inWidth : (ex+1)*inWidth])
		if k.All() {
			copy(out.ExampleValues(ex), result)
		} else {
			idx, scores := out.TopK(ex)
			if len(idx) != int(k.K()) {
				return fmt.Errorf("dataset %q lacks top-%d buffers", out.Name(), k.K())
			}
			selectTopK(result, idx, scores)
		}
	}
	return nil
}

// Shutdown releases the model mapping. It is safe to call more than
// once.
func (e *Engine) Shutdown() error {
	if e.file == nil {
		return nil
	}
	file := e.file
	e.file = nil
	e.chain = nil
	e.staged = nil
	return file.Close()
}

func panicErr(op string, rec any) error {
	if recErr, ok := rec.(error); ok {
		return fmt.Errorf("cpu %s failed: %w", op, recErr)
	}
	return fmt.Errorf("cpu %s failed: %v", op, rec)
}
