// Package config provides configuration management for the daisychain
// service. It loads configuration from environment variables with sensible
// defaults and validates the result before the application starts.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: HTTP server port for webhook ingestion (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - PUBLIC_BASE_URL: Externally reachable base URL used when registering
//     provider webhooks (e.g. "https://daisychain.example.com")
//   - TLS_CERT_FILE, TLS_KEY_FILE: Serve HTTPS when both are set
//
// Database Configuration:
//   - DATABASE_TYPE: "sqlite" or "postgres" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./daisychain.db)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER,
//     POSTGRES_PASSWORD, POSTGRES_SSL_MODE: PostgreSQL settings
//
// Dispatch Queue:
//   - BROKER_TYPE: "rabbitmq", "redis" or "memory" (default: memory)
//   - RABBITMQ_URL: RabbitMQ connection URL
//   - TRIGGER_QUEUE: Queue name for trigger events (default: triggers)
//   - REDIS_ADDRESS, REDIS_PASSWORD, REDIS_DB, REDIS_POOL_SIZE: Redis settings
//   - WORKER_COUNT: Concurrent trigger resolution workers (default: 4)
//
// Security:
//   - TOKEN_ENCRYPTION_KEY: Key used to encrypt stored provider tokens
//
// Provider secrets (all optional; a webhook without its secret rejects
// every delivery, and Gmail without credentials cannot send):
//   - GITHUB_WEBHOOK_SECRET
//   - INSTAGRAM_CLIENT_SECRET
//   - FACEBOOK_APP_SECRET, FACEBOOK_VERIFY_TOKEN
//   - DROPBOX_APP_SECRET
//   - GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET
//   - SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration values for the daisychain service.
// Load() populates it from environment variables; Validate() must pass
// before the configuration is used.
type Config struct {
	// Application settings
	Port          string
	LogLevel      string
	PublicBaseURL string
	TLSCertFile   string
	TLSKeyFile    string

	// Database configuration
	DatabaseType     string
	DatabasePath     string
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	// Dispatch queue configuration
	BrokerType    string
	RabbitMQURL   string
	TriggerQueue  string
	RedisAddress  string
	RedisPassword string
	RedisDB       string
	RedisPoolSize string
	WorkerCount   int

	// Security
	TokenEncryptionKey string

	// Provider secrets
	Github    GithubConfig
	Instagram InstagramConfig
	Facebook  FacebookConfig
	Dropbox   DropboxConfig
	Gmail     GmailConfig
	SMTP      SMTPConfig
}

// GithubConfig holds the shared secret Github signs webhook deliveries with.
type GithubConfig struct {
	WebhookSecret string
}

// InstagramConfig holds the secret Instagram signs subscription deliveries
// with.
type InstagramConfig struct {
	ClientSecret string
}

// FacebookConfig holds the secret Facebook signs update deliveries with and
// the token the subscription handshake must present.
type FacebookConfig struct {
	AppSecret   string
	VerifyToken string
}

// DropboxConfig holds the secret Dropbox signs webhook deliveries with.
type DropboxConfig struct {
	AppSecret string
}

// GmailConfig holds the Gmail OAuth application credentials
type GmailConfig struct {
	ClientID     string
	ClientSecret string
}

// SMTPConfig holds settings for the mail channel's SMTP delivery
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Load creates a new Config instance with values loaded from environment
// variables. Unset variables fall back to their defaults. Call Validate()
// on the result before use.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		TLSCertFile:   getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:    getEnv("TLS_KEY_FILE", ""),

		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:     getEnv("DATABASE_PATH", "./daisychain.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "daisychain"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		BrokerType:    getEnv("BROKER_TYPE", "memory"),
		RabbitMQURL:   getEnv("RABBITMQ_URL", ""),
		TriggerQueue:  getEnv("TRIGGER_QUEUE", "triggers"),
		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),
		WorkerCount:   getIntEnv("WORKER_COUNT", 4),

		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),

		Github: GithubConfig{
			WebhookSecret: getEnv("GITHUB_WEBHOOK_SECRET", ""),
		},
		Instagram: InstagramConfig{
			ClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		},
		Facebook: FacebookConfig{
			AppSecret:   getEnv("FACEBOOK_APP_SECRET", ""),
			VerifyToken: getEnv("FACEBOOK_VERIFY_TOKEN", ""),
		},
		Dropbox: DropboxConfig{
			AppSecret: getEnv("DROPBOX_APP_SECRET", ""),
		},
		Gmail: GmailConfig{
			ClientID:     getEnv("GMAIL_CLIENT_ID", ""),
			ClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "daisychain@localhost"),
		},
	}
}

// Validate checks required fields, formats, and cross-field dependencies.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	switch c.DatabaseType {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite' or 'postgres'")
	}

	if c.DatabaseType == "postgres" || c.DatabaseType == "postgresql" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	switch c.BrokerType {
	case "rabbitmq":
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when using the rabbitmq broker")
		}
	case "redis":
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required when using the redis broker")
		}
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
	case "memory":
	default:
		return fmt.Errorf("BROKER_TYPE must be 'rabbitmq', 'redis' or 'memory'")
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}

	if c.TriggerQueue == "" {
		return fmt.Errorf("TRIGGER_QUEUE cannot be empty")
	}

	return nil
}

// PostgresDSN builds the PostgreSQL connection string from the configuration.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort,
		c.PostgresDB, c.PostgresSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
