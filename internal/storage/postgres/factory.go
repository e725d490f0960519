package postgres

import (
	"fmt"

	"daisychain/internal/storage"
)

// Factory creates PostgreSQL storage adapters.
type Factory struct{}

func (f *Factory) Create(config storage.Config) (storage.Storage, error) {
	pgConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for PostgreSQL adapter: %T", config)
	}
	return NewAdapter(pgConfig)
}

func (f *Factory) GetType() string { return "postgres" }

func init() {
	storage.Register("postgres", &Factory{})
}
