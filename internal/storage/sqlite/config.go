package sqlite

import "daisychain/internal/common/errors"

// Config holds SQLite adapter configuration
type Config struct {
	DatabasePath string
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.ConfigError("SQLite database path cannot be empty")
	}
	return nil
}

// GetType returns the storage type identifier
func (c *Config) GetType() string {
	return "sqlite"
}
