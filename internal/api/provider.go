package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/latticeml/lattice/internal/backend"
	"github.com/latticeml/lattice/internal/network"
)

// NetworkProvider hands callers a loaded network for a model id. The
// provider owns serialization: fn runs with exclusive access to the
// network.
type NetworkProvider interface {
	WithNetwork(ctx context.Context, modelID string, fn func(net *network.Network) error) error
	ListModels() ([]string, error)
}

type ProviderConfig struct {
	DefaultModelPath string
	ModelsPath       string
	Backend          string
	BatchSize        uint32
	TopK             uint32
}

// CachedNetworkProvider loads each model once and reuses the network
// across requests. A per-entry mutex serializes calls, matching the
// one-in-flight-call-per-network discipline the orchestrator expects.
type CachedNetworkProvider struct {
	cfg   ProviderConfig
	mu    sync.Mutex
	cache map[string]*networkEntry
}

type networkEntry struct {
	net *network.Network
	mu  sync.Mutex
}

const envLatticeModelsDir = "LATTICE_MODELS_DIR"

func NewCachedNetworkProvider(cfg ProviderConfig) *CachedNetworkProvider {
	return &CachedNetworkProvider{
		cfg:   cfg,
		cache: make(map[string]*networkEntry),
	}
}

func (p *CachedNetworkProvider) WithNetwork(ctx context.Context, modelID string, fn func(net *network.Network) error) error {
	path, err := p.resolveModelPath(modelID)
	if err != nil {
		return err
	}
	entry, err := p.getOrLoad(path)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(entry.net)
}

// Close shuts down every cached network.
func (p *CachedNetworkProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for path, entry := range p.cache {
		entry.mu.Lock()
		if err := entry.net.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", path, err)
		}
		entry.mu.Unlock()
		delete(p.cache, path)
	}
	return firstErr
}

func (p *CachedNetworkProvider) getOrLoad(path string) (*networkEntry, error) {
	p.mu.Lock()
	entry, ok := p.cache[path]
	p.mu.Unlock()
	if ok {
		return entry, nil
	}

	builder := network.NewConfig(path).BatchSize(p.cfg.BatchSize)
	if p.cfg.TopK > 0 {
		builder.TopK(p.cfg.TopK)
	}
	cfg, err := builder.Build()
	if err != nil {
		return nil, err
	}
	net, err := backend.Open(p.cfg.Backend, cfg)
	if err != nil {
		return nil, err
	}
	newEntry := &networkEntry{net: net}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.cache[path]; ok {
		_ = net.Close()
		return existing, nil
	}
	p.cache[path] = newEntry
	return newEntry, nil
}

// ListModels names the .lnf models the provider can serve.
func (p *CachedNetworkProvider) ListModels() ([]string, error) {
	names := make([]string, 0, 4)
	if p.cfg.DefaultModelPath != "" {
		names = append(names, modelName(p.cfg.DefaultModelPath))
	}
	dir := p.modelsDir()
	if dir != "" {
		paths, err := discoverModels(dir)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			names = append(names, modelName(path))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (p *CachedNetworkProvider) resolveModelPath(modelID string) (string, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID != "" {
		if looksLikePath(modelID) {
			return filepath.Clean(modelID), nil
		}
		dir := p.modelsDir()
		if dir == "" {
			return "", newInvalidRequest(fmt.Sprintf("models path is required to resolve model %q", modelID))
		}
		if resolved := resolveInDir(dir, modelID); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %q not found in %s", ErrModelNotFound, modelID, dir)
	}

	if p.cfg.DefaultModelPath != "" {
		return filepath.Clean(p.cfg.DefaultModelPath), nil
	}
	dir := p.modelsDir()
	if dir == "" {
		return "", newInvalidRequest("model is required")
	}
	models, err := discoverModels(dir)
	if err != nil {
		return "", err
	}
	switch len(models) {
	case 1:
		return models[0], nil
	case 0:
		return "", fmt.Errorf("%w: no .lnf models in %s", ErrModelNotFound, dir)
	default:
		return "", newInvalidRequest(fmt.Sprintf("multiple models found in %s; specify model", dir))
	}
}

func (p *CachedNetworkProvider) modelsDir() string {
	if strings.TrimSpace(p.cfg.ModelsPath) != "" {
		return strings.TrimSpace(p.cfg.ModelsPath)
	}
	return strings.TrimSpace(os.Getenv(envLatticeModelsDir))
}

func modelName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func looksLikePath(v string) bool {
	if strings.Contains(v, string(filepath.Separator)) {
		return true
	}
	return strings.HasSuffix(strings.ToLower(v), ".lnf")
}

func resolveInDir(dir, name string) string {
	cand := filepath.Join(dir, name)
	if fileExists(cand) {
		return cand
	}
	if !strings.HasSuffix(strings.ToLower(name), ".lnf") {
		cand = filepath.Join(dir, name+".lnf")
		if fileExists(cand) {
			return cand
		}
	}
	return ""
}

func discoverModels(dir string) ([]string, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("models path is not a directory: %s", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	models := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".lnf") {
			continue
		}
		models = append(models, filepath.Join(dir, e.Name()))
	}
	return models, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
