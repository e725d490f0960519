package storage

import (
	"fmt"
	"sync"

	"daisychain/internal/common/errors"
)

// Factory creates storage adapters for one backend type. Adapter packages
// register their factory in init(), so importing an adapter package for
// side effects makes its backend available.
type Factory interface {
	Create(config Config) (Storage, error)
	GetType() string
}

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes a storage factory available under the given type name.
func Register(storageType string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[storageType] = factory
}

// Create instantiates a storage adapter of the given type.
func Create(storageType string, config Config) (Storage, error) {
	registryMu.RLock()
	factory, exists := factories[storageType]
	registryMu.RUnlock()

	if !exists {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported database type: %s", storageType))
	}

	return factory.Create(config)
}

// AvailableTypes returns the registered backend type names.
func AvailableTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	return types
}
