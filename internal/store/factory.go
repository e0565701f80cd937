package store

import (
	"fmt"
	"sort"
	"sync"
)

// Builder creates a store from config.
type Builder func(config Config) (Store, error)

var registry = struct {
	mu       sync.RWMutex
	builders map[string]Builder
}{builders: make(map[string]Builder)}

func init() {
	RegisterStoreType("memory", func(Config) (Store, error) { return NewMemory(), nil })
	RegisterStoreType("none", func(Config) (Store, error) { return Disabled{}, nil })
	RegisterStoreType("sqlite", func(c Config) (Store, error) { return NewSQLiteStore(c) })
	RegisterStoreType("postgresql", func(c Config) (Store, error) { return NewPostgreSQLStore(c) })
	RegisterStoreType("postgres", func(c Config) (Store, error) { return NewPostgreSQLStore(c) })
}

// RegisterStoreType registers a builder under a type name. Embedders may add
// their own store types before constructing a timer.
func RegisterStoreType(storeType string, builder Builder) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.builders[storeType] = builder
}

// CreateStore builds a store for config.Type.
func CreateStore(config Config) (Store, error) {
	registry.mu.RLock()
	builder, ok := registry.builders[config.Type]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported store type: %s (supported: %v)", config.Type, SupportedTypes())
	}
	return builder(config)
}

// SupportedTypes lists registered store type names, sorted.
func SupportedTypes() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	types := make([]string, 0, len(registry.builders))
	for t := range registry.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
