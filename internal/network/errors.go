package network

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedTopology is returned when constructing a network
	// with more than one output layer.
	ErrUnsupportedTopology = errors.New("unsupported network topology")

	// ErrUnsupportedOperation is returned when the single-dataset
	// predict form is used on a multi-layer network.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrArity is returned when a dataset slice length does not match
	// the corresponding layer slice length.
	ErrArity = errors.New("dataset count mismatch")

	// ErrShape is returned when a dataset's rank or extents disagree
	// with its bound layer, including top-k shape violations.
	ErrShape = errors.New("shape mismatch")

	// ErrBatchSize is returned when a dataset's example count differs
	// from the configured batch size.
	ErrBatchSize = errors.New("batch size mismatch")

	// ErrClosed is returned by any operation on a closed network.
	ErrClosed = errors.New("network is closed")

	// ErrEngine wraps failures surfaced by the engine.
	ErrEngine = errors.New("engine failure")
)

// ArityError reports a dataset/layer count disagreement.
type ArityError struct {
	Kind LayerKind
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("number of %s datasets (%d) does not match number of %s layers (%d)",
		e.Kind, e.Got, e.Kind, e.Want)
}

func (e *ArityError) Unwrap() error { return ErrArity }

// ShapeError reports a shape disagreement between a dataset and the layer
// it is bound to, carrying both shapes and the binding index.
type ShapeError struct {
	Layer   string
	Dataset string
	Index   int
	Want    Dim
	Got     Dim
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("dimension mismatch between layer %q and dataset %q at index %d: want %s, got %s",
		e.Layer, e.Dataset, e.Index, e.Want, e.Got)
}

func (e *ShapeError) Unwrap() error { return ErrShape }

// BatchSizeError reports a dataset whose example count differs from the
// network's batch size.
type BatchSizeError struct {
	Dataset string
	Index   int
	Want    uint32
	Got     uint32
}

func (e *BatchSizeError) Error() string {
	return fmt.Sprintf("examples in dataset %q at index %d (%d) do not match the network batch size (%d)",
		e.Dataset, e.Index, e.Got, e.Want)
}

func (e *BatchSizeError) Unwrap() error { return ErrBatchSize }

func engineErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrEngine, op, err)
}
