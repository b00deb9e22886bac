package providers

import (
	"fmt"
	"sort"
	"sync"
)

// preference is the auto-selection order when no provider is named.
var preference = []string{"openrouter", "gemini", "openai"}

// Registry holds the configured providers by name. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p, replacing any provider with the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Select returns the named provider, or the first registered one in
// preference order when name is empty.
func (r *Registry) Select(name string) (Provider, error) {
	if name != "" {
		if p, ok := r.Get(name); ok {
			return p, nil
		}
		return nil, fmt.Errorf("provider %q is not configured", name)
	}
	for _, n := range preference {
		if p, ok := r.Get(n); ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no provider configured", ErrUpstreamUnavailable)
}
