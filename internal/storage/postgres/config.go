// Package postgres provides the PostgreSQL implementation of the recipe store.
package postgres

import "daisychain/internal/common/errors"

// Config holds PostgreSQL adapter configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.ConfigError("PostgreSQL host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.ConfigError("PostgreSQL port must be between 1 and 65535")
	}
	if c.User == "" {
		return errors.ConfigError("PostgreSQL user cannot be empty")
	}
	if c.Database == "" {
		return errors.ConfigError("PostgreSQL database cannot be empty")
	}
	return nil
}

func (c *Config) GetType() string { return "postgres" }
