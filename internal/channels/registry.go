package channels

import (
	"fmt"
	"strings"
	"sync"

	"daisychain/internal/common/errors"
)

// Registry maps channel names to implementations. Lookups are
// case-insensitive; registration is explicit, done once at startup.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry creates an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel under its own name. Registering the same name
// twice returns an error rather than silently replacing.
func (r *Registry) Register(channel Channel) error {
	key := strings.ToLower(channel.Name())

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[key]; exists {
		return errors.ValidationError(fmt.Sprintf("channel %q is already registered", channel.Name()))
	}
	r.channels[key] = channel
	return nil
}

// Get resolves a channel by name, case-insensitively.
func (r *Registry) Get(name string) (Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channel, exists := r.channels[strings.ToLower(name)]
	if !exists {
		return nil, errors.NotFoundError(fmt.Sprintf("channel %q", name))
	}
	return channel, nil
}

// IsRegistered reports whether a channel name resolves.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.channels[strings.ToLower(name)]
	return exists
}

// Names returns the registered channel names as given at registration.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.channels))
	for _, channel := range r.channels {
		names = append(names, channel.Name())
	}
	return names
}

// Count returns the number of registered channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
