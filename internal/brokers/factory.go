package brokers

import (
	"fmt"
	"sync"

	"daisychain/internal/common/errors"
)

// Factory creates brokers for one transport type. Implementations register
// themselves in init(), mirroring the storage adapter pattern.
type Factory interface {
	Create(config Config) (Broker, error)
	GetType() string
}

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes a broker factory available under the given type name.
func Register(brokerType string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[brokerType] = factory
}

// Create instantiates a broker of the given type.
func Create(brokerType string, config Config) (Broker, error) {
	registryMu.RLock()
	factory, exists := factories[brokerType]
	registryMu.RUnlock()

	if !exists {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported broker type: %s", brokerType))
	}

	return factory.Create(config)
}

// AvailableTypes returns the registered broker type names.
func AvailableTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	return types
}
