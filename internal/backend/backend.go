// Package backend selects and constructs inference engines.
package backend

import (
	"fmt"
	"strings"

	"github.com/latticeml/lattice/internal/engine/cpu"
	"github.com/latticeml/lattice/internal/network"
)

const (
	CPU  = "cpu"
	Auto = "auto"
)

// Normalize canonicalizes a backend name, mapping the empty string to
// Auto.
func Normalize(name string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		return Auto, nil
	}
	switch backend {
	case CPU, Auto:
		return backend, nil
	default:
		return "", fmt.Errorf("unknown backend %q (expected auto or cpu)", backend)
	}
}

// Open loads the model named by cfg on the requested backend and
// assembles a ready network around the engine. Auto currently resolves
// to the cpu reference engine.
func Open(name string, cfg network.Config) (*network.Network, error) {
	backend, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	if backend != CPU && backend != Auto {
		return nil, fmt.Errorf("backend %q is not available in this build", backend)
	}

	eng, err := cpu.Load(cfg)
	if err != nil {
		return nil, err
	}
	net, err := network.NewNetwork(cfg, eng, eng.InputLayers(), eng.OutputLayers())
	if err != nil {
		_ = eng.Shutdown()
		return nil, err
	}
	return net, nil
}
