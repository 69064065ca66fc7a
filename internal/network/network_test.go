package network

import (
	"errors"
	"fmt"
	"testing"
)

type stubDataset struct {
	name string
	dim  Dim
}

func (d stubDataset) Name() string { return d.name }
func (d stubDataset) Dim() Dim     { return d.dim }

// recordingEngine counts calls so tests can prove that validation runs
// entirely before the engine is touched.
type recordingEngine struct {
	loadCalls     int
	predictCalls  int
	shutdownCalls int

	lastK       KSelector
	predictErr  error
	shutdownErr error
}

func (e *recordingEngine) LoadDatasets(datasets []Dataset) error {
	e.loadCalls++
	return nil
}

func (e *recordingEngine) Predict(k KSelector, inputs []Dataset, outputs []*OutputDataset) error {
	e.predictCalls++
	e.lastK = k
	return e.predictErr
}

func (e *recordingEngine) Shutdown() error {
	e.shutdownCalls++
	return e.shutdownErr
}

func testConfig(t *testing.T, batch uint32, k uint32) Config {
	t.Helper()
	b := NewConfig("model.lnf").BatchSize(batch)
	if k > 0 {
		b.TopK(k)
	}
	cfg, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return cfg
}

// newTestNetwork builds the §8 scenario network: batch 4, one input layer
// (10,1,1), one output layer (3,1,1).
func newTestNetwork(t *testing.T, k uint32) (*Network, *recordingEngine) {
	t.Helper()
	eng := &recordingEngine{}
	cfg := testConfig(t, 4, k)
	net, err := NewNetwork(cfg, eng,
		[]Layer{{Name: "in", DatasetName: "in_data", Dim: Dim1(10), Kind: Input}},
		[]Layer{{Name: "out", DatasetName: "out_data", Dim: Dim1(3), Kind: Output}},
	)
	if err != nil {
		t.Fatalf("NewNetwork() error = %v", err)
	}
	return net, eng
}

func TestNewNetworkRejectsMultipleOutputLayers(t *testing.T) {
	t.Parallel()

	outputs := []Layer{
		{Name: "out1", Dim: Dim1(3), Kind: Output},
		{Name: "out2", Dim: Dim1(3), Kind: Output},
	}
	_, err := NewNetwork(testConfig(t, 4, 0), &recordingEngine{}, nil, outputs)
	if !errors.Is(err, ErrUnsupportedTopology) {
		t.Fatalf("NewNetwork() error = %v, want ErrUnsupportedTopology", err)
	}
}

func TestNewNetworkRequiresEngine(t *testing.T) {
	t.Parallel()

	_, err := NewNetwork(testConfig(t, 4, 0), nil, nil, []Layer{{Name: "out", Dim: Dim1(3)}})
	if err == nil {
		t.Fatal("NewNetwork() with nil engine: expected error")
	}
}

func TestPredictValidSucceedsWithOneEngineCall(t *testing.T) {
	t.Parallel()

	net, eng := newTestNetwork(t, 0)
	in := stubDataset{name: "in_data", dim: Dim1(10).WithExamples(4)}
	out := NewOutputDataset("out_data", Dim1(3).WithExamples(4), 0)

	if err := net.Predict([]Dataset{in}, []*OutputDataset{out}); err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if eng.predictCalls != 1 {
		t.Fatalf("engine predict calls = %d, want 1", eng.predictCalls)
	}
	if !eng.lastK.All() {
		t.Fatalf("engine received k = %v, want all", eng.lastK)
	}
}

func TestPredictInputArityMismatch(t *testing.T) {
	t.Parallel()

	net, eng := newTestNetwork(t, 0)
	out := NewOutputDataset("out_data", Dim1(3).WithExamples(4), 0)

	err := net.Predict(nil, []*OutputDataset{out})
	if !errors.Is(err, ErrArity) {
		t.Fatalf("Predict() error = %v, want ErrArity", err)
	}
	if eng.predictCalls != 0 {
		t.Fatalf("engine predict calls = %d, want 0", eng.predictCalls)
	}
}

func TestPredictOutputArityMismatch(t *testing.T) {
	t.Parallel()

	net, eng := newTestNetwork(t, 0)
	in := stubDataset{name: "in_data", dim: Dim1(10).WithExamples(4)}

	err := net.Predict([]Dataset{in}, nil)
	if !errors.Is(err, ErrArity) {
		t.Fatalf("Predict() error = %v, want ErrArity", err)
	}
	if eng.predictCalls != 0 {
		t.Fatalf("engine predict calls = %d, want 0", eng.predictCalls)
	}
}

func TestPredictInputShapeMismatch(t *testing.T) {
	t.Parallel()

	net, eng := newTestNetwork(t, 0)
	in := stubDataset{name: "in_data", dim: Dim1(11).WithExamples(4)}
	out := NewOutputDataset("out_data", Dim1(3).WithExamples(4), 0)

	err := net.Predict([]Dataset{in}, []*OutputDataset{out})
	if !errors.Is(err, ErrShape) {
		t.Fatalf("Predict() error = %v, want ErrShape", err)
	}
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("Predict() error = %T, want *ShapeError", err)
	}
	if shapeErr.Layer != "in" || shapeErr.Index != 0 {
		t.Fatalf("ShapeError = %+v, want layer \"in\" index 0", shapeErr)
	}
	if eng.predictCalls != 0 {
		t.Fatalf("engine predict calls = %d, want 0", eng.predictCalls)
	}
}

func TestPredictInputRankMismatch(t *testing.T) {
	t.Parallel()

	net, _ := newTestNetwork(t, 0)
	// Same extents, different rank: (10,1,1) as rank 2.
	in := stubDataset{name: "in_data", dim: Dim2(10, 1).WithExamples(4)}
	out := NewOutputDataset("out_data", Dim1(3).WithExamples(4), 0)

	if err := net.Predict([]Dataset{in}, []*OutputDataset{out}); !errors.Is(err, ErrShape) {
		t.Fatalf("Predict() error = %v, want ErrShape", err)
	}
}

func TestPredictBatchSizeMismatch(t *testing.T) {
	t.Parallel()

	net, eng := newTestNetwork(t, 0)
	in := stubDataset{name: "in_data", dim: Dim1(10).WithExamples(3)}
	out := NewOutputDataset("out_data", Dim1(3).WithExamples(4), 0)

	err := net.Predict([]Dataset{in}, []*OutputDataset{out})
	if !errors.Is(err, ErrBatchSize) {
		t.Fatalf("Predict() error = %v, want ErrBatchSize", err)
	}
	var batchErr *BatchSizeError
	if !errors.As(err, &batchErr) {
		t.Fatalf("Predict() error = %T, want *BatchSizeError", err)
	}
	if batchErr.Want != 4 || batchErr.Got != 3 {
		t.Fatalf("BatchSizeError = %+v, want want=4 got=3", batchErr)
	}
	if eng.predictCalls != 0 {
		t.Fatalf("engine predict calls = %d, want 0", eng.predictCalls)
	}
}

func TestPredictOutputShapeMismatchCitesLayer(t *testing.T) {
	t.Parallel()

	net, _ := newTestNetwork(t, 0)
	in := stubDataset{name: "in_data", dim: Dim1(10).WithExamples(4)}
	out := NewOutputDataset("out_data", Dim1(4).WithExamples(4), 0)

	err := net.Predict([]Dataset{in}, []*OutputDataset{out})
	if !errors.Is(err, ErrShape) {
		t.Fatalf("Predict() error = %v, want ErrShape", err)
	}
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("Predict() error = %T, want *ShapeError", err)
	}
	if shapeErr.Layer != "out" {
		t.Fatalf("ShapeError.Layer = %q, want \"out\"", shapeErr.Layer)
	}
}

func TestPredictValidationOrderInputsBeforeOutputs(t *testing.T) {
	t.Parallel()

	net, _ := newTestNetwork(t, 0)
	// Both the input and the output are wrong; the input must win.
	in := stubDataset{name: "in_data", dim: Dim1(99).WithExamples(4)}
	out := NewOutputDataset("out_data", Dim1(99).WithExamples(4), 0)

	err := net.Predict([]Dataset{in}, []*OutputDataset{out})
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("Predict() error = %v, want *ShapeError", err)
	}
	if shapeErr.Layer != "in" {
		t.Fatalf("first violation reported for layer %q, want \"in\"", shapeErr.Layer)
	}
}

func TestPredictTopKShapeContract(t *testing.T) {
	t.Parallel()

	net, _ := newTestNetwork(t, 2)
	in := stubDataset{name: "in_data", dim: Dim1(10).WithExamples(4)}

	// Full-shape output is wrong in top-k mode.
	full := NewOutputDataset("out_data", Dim1(3).WithExamples(4), 2)
	if err := net.Predict([]Dataset{in}, []*OutputDataset{full}); !errors.Is(err, ErrShape) {
		t.Fatalf("Predict() with full shape in top-2 mode: error = %v, want ErrShape", err)
	}

	topK := NewOutputDataset("out_data", Dim1(2).WithExamples(4), 2)
	if err := net.Predict([]Dataset{in}, []*OutputDataset{topK}); err != nil {
		t.Fatalf("Predict() with top-2 shape: error = %v", err)
	}
}

func TestPredictEngineFailurePropagates(t *testing.T) {
	t.Parallel()

	net, eng := newTestNetwork(t, 0)
	eng.predictErr = fmt.Errorf("device lost")
	in := stubDataset{name: "in_data", dim: Dim1(10).WithExamples(4)}
	out := NewOutputDataset("out_data", Dim1(3).WithExamples(4), 0)

	err := net.Predict([]Dataset{in}, []*OutputDataset{out})
	if !errors.Is(err, ErrEngine) {
		t.Fatalf("Predict() error = %v, want ErrEngine", err)
	}
}

func TestPredictOneRequiresSingleLayerTopology(t *testing.T) {
	t.Parallel()

	eng := &recordingEngine{}
	net, err := NewNetwork(testConfig(t, 4, 0), eng,
		[]Layer{
			{Name: "in1", Dim: Dim1(10), Kind: Input},
			{Name: "in2", Dim: Dim1(5), Kind: Input},
		},
		[]Layer{{Name: "out", Dim: Dim1(3), Kind: Output}},
	)
	if err != nil {
		t.Fatalf("NewNetwork() error = %v", err)
	}

	in := stubDataset{name: "in_data", dim: Dim1(10).WithExamples(4)}
	out := NewOutputDataset("out_data", Dim1(3).WithExamples(4), 0)
	if err := net.PredictOne(in, out); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("PredictOne() error = %v, want ErrUnsupportedOperation", err)
	}
}

func TestPredictAllocShapesOutputs(t *testing.T) {
	t.Parallel()

	net, eng := newTestNetwork(t, 0)
	in := stubDataset{name: "in_data", dim: Dim1(10).WithExamples(4)}

	outputs, err := net.PredictAlloc([]Dataset{in})
	if err != nil {
		t.Fatalf("PredictAlloc() error = %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("PredictAlloc() returned %d outputs, want 1", len(outputs))
	}
	if got, want := outputs[0].Dim(), Dim1(3).WithExamples(4); got != want {
		t.Fatalf("output dim = %v, want %v", got, want)
	}
	if outputs[0].Name() != "out_data" {
		t.Fatalf("output name = %q, want layer dataset name \"out_data\"", outputs[0].Name())
	}
	if eng.predictCalls != 1 {
		t.Fatalf("engine predict calls = %d, want 1", eng.predictCalls)
	}
}

func TestCreateOutputDatasetTopK(t *testing.T) {
	t.Parallel()

	eng := &recordingEngine{}
	layer := Layer{Name: "out", DatasetName: "out_data", Dim: Dim1(100), Kind: Output}
	net, err := NewNetwork(testConfig(t, 8, 5), eng,
		[]Layer{{Name: "in", Dim: Dim1(10), Kind: Input}}, []Layer{layer})
	if err != nil {
		t.Fatalf("NewNetwork() error = %v", err)
	}

	out, err := net.CreateOutputDataset(layer)
	if err != nil {
		t.Fatalf("CreateOutputDataset() error = %v", err)
	}
	if got, want := out.Dim(), Dim1(5).WithExamples(8); got != want {
		t.Fatalf("output dim = %v, want %v", got, want)
	}
	if len(out.Indices) != 5*8 || len(out.Scores) != 5*8 {
		t.Fatalf("top-k buffers sized %d/%d, want 40/40", len(out.Indices), len(out.Scores))
	}
}

func TestCreateOutputDatasetAll(t *testing.T) {
	t.Parallel()

	net, _ := newTestNetwork(t, 0)
	out, err := net.CreateOutputDataset(net.OutputLayers()[0])
	if err != nil {
		t.Fatalf("CreateOutputDataset() error = %v", err)
	}
	if got, want := out.Dim(), Dim1(3).WithExamples(4); got != want {
		t.Fatalf("output dim = %v, want %v", got, want)
	}
	if len(out.Values) != 3*4 {
		t.Fatalf("values sized %d, want 12", len(out.Values))
	}
	if len(out.Indices) != 0 {
		t.Fatalf("indices allocated in all mode: %d", len(out.Indices))
	}
}

func TestLoadValidatesLikePredict(t *testing.T) {
	t.Parallel()

	net, eng := newTestNetwork(t, 0)

	bad := stubDataset{name: "in_data", dim: Dim1(10).WithExamples(2)}
	if err := net.Load([]Dataset{bad}); !errors.Is(err, ErrBatchSize) {
		t.Fatalf("Load() error = %v, want ErrBatchSize", err)
	}
	if eng.loadCalls != 0 {
		t.Fatalf("engine load calls = %d, want 0", eng.loadCalls)
	}

	good := stubDataset{name: "in_data", dim: Dim1(10).WithExamples(4)}
	if err := net.Load([]Dataset{good}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if eng.loadCalls != 1 {
		t.Fatalf("engine load calls = %d, want 1", eng.loadCalls)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	net, eng := newTestNetwork(t, 0)
	if err := net.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := net.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if eng.shutdownCalls != 1 {
		t.Fatalf("engine shutdown calls = %d, want 1", eng.shutdownCalls)
	}
}

func TestOperationsAfterCloseFail(t *testing.T) {
	t.Parallel()

	net, eng := newTestNetwork(t, 0)
	if err := net.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	in := stubDataset{name: "in_data", dim: Dim1(10).WithExamples(4)}
	out := NewOutputDataset("out_data", Dim1(3).WithExamples(4), 0)

	if err := net.Predict([]Dataset{in}, []*OutputDataset{out}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Predict() after close: error = %v, want ErrClosed", err)
	}
	if err := net.Load([]Dataset{in}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Load() after close: error = %v, want ErrClosed", err)
	}
	if _, err := net.CreateOutputDataset(net.OutputLayers()[0]); !errors.Is(err, ErrClosed) {
		t.Fatalf("CreateOutputDataset() after close: error = %v, want ErrClosed", err)
	}
	if eng.predictCalls != 0 || eng.loadCalls != 0 {
		t.Fatalf("engine touched after close: %d predicts, %d loads", eng.predictCalls, eng.loadCalls)
	}
}

func TestCloseShutdownFailureWrapsEngineError(t *testing.T) {
	t.Parallel()

	net, eng := newTestNetwork(t, 0)
	eng.shutdownErr = fmt.Errorf("already released")
	if err := net.Close(); !errors.Is(err, ErrEngine) {
		t.Fatalf("Close() error = %v, want ErrEngine", err)
	}
	// The network is closed regardless; a retry stays a no-op.
	if err := net.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
