package network

// LayerKind distinguishes input from output layers.
type LayerKind int

const (
	Input LayerKind = iota
	Output
)

func (k LayerKind) String() string {
	switch k {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "unknown"
	}
}

// Layer is a named fixed-shape endpoint of a loaded network. Layers are
// produced from engine metadata at load time and never change afterwards.
// DatasetName names the dataset the layer expects to be bound to; binding
// itself is positional (index i of the dataset slice binds to layer i).
type Layer struct {
	Name        string
	DatasetName string
	Dim         Dim
	Kind        LayerKind
}
