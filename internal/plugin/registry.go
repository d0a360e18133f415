package plugin

import (
	"fmt"
	"sync"

	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
)

// Registry is an ordered set of plugins keyed by id.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	plugins map[string]Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register appends p. Registering an id twice is an error.
func (r *Registry) Register(p Plugin) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid plugin: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[p.ID]; exists {
		return fmt.Errorf("plugin %s already registered", p.ID)
	}
	r.plugins[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

// Get returns the plugin registered under id.
func (r *Registry) Get(id string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	return p, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// List returns the plugins in registration order.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.plugins[id])
	}
	return out
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ResolvePlugins builds the effective plugin list. Built-ins come first and
// inline plugins follow; with useBuiltIn false only the inline plugins are
// used.
func ResolvePlugins(builtIns, inline []Plugin, useBuiltIn bool) (*Registry, error) {
	r := NewRegistry()
	var all []Plugin
	if useBuiltIn {
		all = append(all, builtIns...)
	}
	all = append(all, inline...)
	for _, p := range all {
		if err := r.Register(p); err != nil {
			return nil, foundationerrors.PluginError("cannot resolve plugins").
				WithContext("plugin", p.ID).WithCause(err).Build()
		}
	}
	return r, nil
}

// ApplyError wraps a failure raised while applying plugin id.
func ApplyError(id string, err error) error {
	if classified, ok := foundationerrors.AsClassified(err); ok {
		return classified.WithContext("plugin", id)
	}
	return foundationerrors.PluginError(fmt.Sprintf("plugin %s failed to apply", id)).
		WithContext("plugin", id).WithCause(err).Build()
}
