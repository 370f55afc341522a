package transport

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// Registry holds every configured Adapter, keyed by provider ID.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	def      string // "providerId/modelId", empty means pick the first model found
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

// SetDefault records the "providerId/modelId" string DefaultModel resolves.
func (r *Registry) SetDefault(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.def = model
}

func (r *Registry) Get(providerID string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not registered: %s", providerID)
	}
	return a, nil
}

func (r *Registry) GetModel(providerID, modelID string) (*core.ModelInfo, error) {
	a, err := r.Get(providerID)
	if err != nil {
		return nil, err
	}
	for _, m := range a.Models() {
		if m.ID == modelID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("model not found: %s/%s", providerID, modelID)
}

func (r *Registry) List() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) AllModels() []core.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.ModelInfo
	for _, a := range r.adapters {
		out = append(out, a.Models()...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProviderID != out[j].ProviderID {
			return out[i].ProviderID < out[j].ProviderID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ParseModelString splits "providerId/modelId"; a string with no slash is
// returned as modelID with an empty providerID.
func ParseModelString(s string) (providerID, modelID string) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

func (r *Registry) DefaultModel() (*core.ModelInfo, error) {
	r.mu.RLock()
	def := r.def
	r.mu.RUnlock()

	if def != "" {
		providerID, modelID := ParseModelString(def)
		if providerID != "" {
			return r.GetModel(providerID, modelID)
		}
	}

	all := r.AllModels()
	if len(all) == 0 {
		return nil, fmt.Errorf("no models registered")
	}
	return &all[0], nil
}
