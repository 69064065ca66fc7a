package network

import "fmt"

// KSelector selects how much of an output layer a prediction returns:
// either the full layer shape, or only the top-k scoring positions per
// example. The zero value means "all".
//
// Top-K over output layers of rank > 1 is not generalized: the result
// shape always collapses the spatial extents to a flat ranked list of
// width k. This is a known limitation carried forward deliberately.
type KSelector struct {
	k uint32
}

// All returns the selector for the full output shape.
func All() KSelector { return KSelector{} }

// TopK returns the selector for the k highest-scoring positions per example.
func TopK(k uint32) KSelector { return KSelector{k: k} }

// All reports whether the selector requests the full output shape.
func (s KSelector) All() bool { return s.k == 0 }

// K is the requested width; 0 when the selector is All.
func (s KSelector) K() uint32 { return s.k }

func (s KSelector) String() string {
	if s.All() {
		return "all"
	}
	return fmt.Sprintf("top-%d", s.k)
}

// Config is the immutable run configuration of a network.
type Config struct {
	ModelPath string
	BatchSize uint32
	K         KSelector
}

// ConfigBuilder assembles a Config. Zero-valued fields are rejected by
// Build rather than defaulted, so misconfiguration fails loudly.
type ConfigBuilder struct {
	cfg    Config
	topK   uint32
	hasTop bool
}

// NewConfig starts a builder for a network loaded from path.
func NewConfig(path string) *ConfigBuilder {
	return &ConfigBuilder{cfg: Config{ModelPath: path}}
}

// BatchSize sets the batch width every bound dataset must match.
func (b *ConfigBuilder) BatchSize(n uint32) *ConfigBuilder {
	b.cfg.BatchSize = n
	return b
}

// TopK requests top-k reduction on predict. Not calling it leaves the
// selector at All.
func (b *ConfigBuilder) TopK(k uint32) *ConfigBuilder {
	b.topK = k
	b.hasTop = true
	return b
}

func (b *ConfigBuilder) Build() (Config, error) {
	if b.cfg.ModelPath == "" {
		return Config{}, fmt.Errorf("network config: model path is required")
	}
	if b.cfg.BatchSize == 0 {
		return Config{}, fmt.Errorf("network config: batch size must be positive")
	}
	if b.hasTop {
		if b.topK == 0 {
			return Config{}, fmt.Errorf("network config: top-k must be positive")
		}
		b.cfg.K = TopK(b.topK)
	}
	return b.cfg, nil
}
