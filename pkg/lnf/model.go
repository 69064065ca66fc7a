package lnf

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Layer kinds as stored in the model header.
const (
	KindInput  = "input"
	KindHidden = "hidden"
	KindOutput = "output"
)

// Activations supported by dense layers.
const (
	ActIdentity = "identity"
	ActReLU     = "relu"
	ActSigmoid  = "sigmoid"
)

// Model is the JSON model description embedded in an LNF file. Layers
// appear in forward order: inputs first, then hidden layers, then
// outputs.
type Model struct {
	Name    string       `json:"name"`
	Layers  []LayerInfo  `json:"layers"`
	Weights []TensorInfo `json:"weights"`
}

// LayerInfo describes one layer of the stored network.
type LayerInfo struct {
	Name        string `json:"name"`
	DatasetName string `json:"dataset_name,omitempty"`
	Kind        string `json:"kind"`
	X           uint32 `json:"x"`
	Y           uint32 `json:"y,omitempty"`
	Z           uint32 `json:"z,omitempty"`
	Activation  string `json:"activation,omitempty"`
}

// FeatureSize is the number of units in the layer.
func (l LayerInfo) FeatureSize() int {
	return int(l.X) * int(max(l.Y, 1)) * int(max(l.Z, 1))
}

// TensorInfo locates one float32 tensor inside the payload. Offset is
// relative to the payload start; Size is in bytes and always equals
// Rows*Cols*4.
type TensorInfo struct {
	Name   string `json:"name"`
	Rows   uint32 `json:"rows"`
	Cols   uint32 `json:"cols"`
	Offset uint64 `json:"offset"`
	Size   uint64 `json:"size"`
}

func decodeModel(b []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: model header: %w", ErrCorruptFile, err)
	}
	for i, l := range m.Layers {
		if l.Name == "" {
			return nil, fmt.Errorf("%w: layer %d has no name", ErrCorruptFile, i)
		}
		switch l.Kind {
		case KindInput, KindHidden, KindOutput:
		default:
			return nil, fmt.Errorf("%w: layer %q has unknown kind %q", ErrCorruptFile, l.Name, l.Kind)
		}
		if l.X == 0 {
			return nil, fmt.Errorf("%w: layer %q has zero width", ErrCorruptFile, l.Name)
		}
	}
	return &m, nil
}

func encodeModel(m *Model) ([]byte, error) {
	return json.Marshal(m)
}
