package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"header-rules/internal/common/errors"
)

// Registry maps backend names to the factories that open them. A backend may
// be known under several names; aliases resolve to the canonical name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]StorageFactory
	aliases   map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]StorageFactory),
		aliases:   make(map[string]string),
	}
}

// Register adds a backend under name and any aliases. Registering a name
// again replaces its factory.
func (r *Registry) Register(name string, factory StorageFactory, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	for _, alias := range aliases {
		r.aliases[alias] = name
	}
}

// Resolve returns the canonical backend name for name, or false when no
// backend answers to it
func (r *Registry) Resolve(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolve(name)
}

func (r *Registry) resolve(name string) (string, bool) {
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	_, ok := r.factories[name]
	return name, ok
}

// Create opens the backend called name with config
func (r *Registry) Create(name string, config StorageConfig) (Store, error) {
	r.mu.RLock()
	canonical, ok := r.resolve(name)
	factory := r.factories[canonical]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.ConfigError(fmt.Sprintf("storage type %q not registered (have: %s)",
			name, strings.Join(r.Types(), ", ")))
	}
	return factory.Create(config)
}

// Types lists the canonical backend names in order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
