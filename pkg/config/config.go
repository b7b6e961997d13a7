package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `env:", prefix=SERVER_"`
	Store    StoreConfig    `env:", prefix=STORE_"`
	Provider ProviderConfig `env:", prefix=PROVIDER_"`
	Sync     SyncConfig     `env:", prefix=SYNC_"`
	Redis    RedisConfig    `env:", prefix=REDIS_"`
	NATS     NATSConfig     `env:", prefix=NATS_"`
	Security SecurityConfig `env:", prefix=SECURITY_"`
	Logging  LoggingConfig  `env:", prefix=LOG_"`
}

// ServerConfig holds HTTP API server configuration
type ServerConfig struct {
	Host         string        `env:"HOST, default=0.0.0.0"`
	Port         int           `env:"PORT, default=8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT, default=120s"`
}

// StoreConfig holds SQLite store configuration
type StoreConfig struct {
	Path         string        `env:"PATH, default=./yahoo_finance_stocks.db"`
	BusyTimeout  time.Duration `env:"BUSY_TIMEOUT, default=5s"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS, default=4"`
}

// ProviderConfig holds market-data provider configuration
type ProviderConfig struct {
	BaseURL   string        `env:"BASE_URL, default=https://query1.finance.yahoo.com"`
	Timeout   time.Duration `env:"TIMEOUT, default=30s"`
	RateLimit time.Duration `env:"RATE_LIMIT, default=250ms"`
	UserAgent string        `env:"USER_AGENT, default=stockdb/1.0"`
}

// SyncConfig holds synchronization engine configuration
type SyncConfig struct {
	SeriesFile     string        `env:"SERIES_FILE, default=./stocks_intervals.json"`
	MaxConcurrent  int           `env:"MAX_CONCURRENT, default=3"`
	UpdateInterval time.Duration `env:"UPDATE_INTERVAL, default=6h"`
	MaxAttempts    int           `env:"MAX_ATTEMPTS, default=15"`
	RetryBackoff   time.Duration `env:"RETRY_BACKOFF, default=15s"`
	Prefilter      bool          `env:"PREFILTER, default=false"`
}

// RedisConfig holds Redis configuration for the latest-bar cache
type RedisConfig struct {
	Enabled      bool          `env:"ENABLED, default=false"`
	Host         string        `env:"HOST, default=localhost"`
	Port         int           `env:"PORT, default=6379"`
	Password     string        `env:"PASSWORD"`
	DB           int           `env:"DB, default=0"`
	PoolSize     int           `env:"POOL_SIZE, default=10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS, default=2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT, default=5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=3s"`
	TTL          time.Duration `env:"TTL, default=24h"`
}

// NATSConfig holds NATS configuration for sync event publishing
type NATSConfig struct {
	Enabled       bool          `env:"ENABLED, default=false"`
	URL           string        `env:"URL, default=nats://localhost:4222"`
	MaxReconnect  int           `env:"MAX_RECONNECT, default=10"`
	ReconnectWait time.Duration `env:"RECONNECT_WAIT, default=2s"`
	SubjectPrefix string        `env:"SUBJECT_PREFIX, default=stockdb.sync"`
}

// SecurityConfig holds security configuration for the HTTP API
type SecurityConfig struct {
	CORSEnabled bool     `env:"CORS_ENABLED, default=true"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=*"`
	CORSMethods []string `env:"CORS_METHODS, default=GET,POST,OPTIONS"`
	CORSHeaders []string `env:"CORS_HEADERS, default=*"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=text"`
	Output string `env:"OUTPUT, default=stdout"`
}

// Load loads configuration from environment variables using go-envconfig
func Load() (*Config, error) {
	ctx := context.Background()
	var cfg Config

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}

	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider base URL is required")
	}

	if c.Sync.MaxConcurrent <= 0 {
		return fmt.Errorf("invalid sync concurrency: %d", c.Sync.MaxConcurrent)
	}

	if c.Sync.MaxAttempts <= 0 {
		return fmt.Errorf("invalid retry attempt count: %d", c.Sync.MaxAttempts)
	}

	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("Redis host is required when Redis is enabled")
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("NATS URL is required when NATS is enabled")
	}

	return nil
}

// GetServerAddr returns the HTTP API listen address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
