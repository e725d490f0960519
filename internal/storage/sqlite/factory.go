package sqlite

import (
	"fmt"

	"daisychain/internal/storage"
)

// Factory creates SQLite storage adapters.
type Factory struct{}

func (f *Factory) Create(config storage.Config) (storage.Storage, error) {
	sqliteConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for SQLite adapter: %T", config)
	}
	return NewAdapter(sqliteConfig)
}

func (f *Factory) GetType() string { return "sqlite" }

func init() {
	storage.Register("sqlite", &Factory{})
}
