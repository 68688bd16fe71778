package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Cache     CacheConfig
	Pricing   PricingConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects where the price ledger and shopping lists live
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // "memory", "postgres" or "sqlite"
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type      string        `mapstructure:"type"` // "memory", "redis" or "none"
	RedisURL  string        `mapstructure:"redis_url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// PricingConfig holds ledger and store-selection tuning
type PricingConfig struct {
	LedgerWindow          time.Duration `mapstructure:"ledger_window"`
	VerificationThreshold int           `mapstructure:"verification_threshold"`
	DefaultMaxDays        int           `mapstructure:"default_max_days"`
	DefaultMaxStores      int           `mapstructure:"default_max_stores"`
	TopStoresLimit        int           `mapstructure:"top_stores_limit"`
	EnableDebugLogging    bool          `mapstructure:"enable_debug_logging"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
	Burst int `mapstructure:"burst"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pantrylens/")

	// Environment variable settings: PANTRYLENS_SERVER_PORT -> server.port
	v.SetEnvPrefix("PANTRYLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// setDefaults sets default configuration values. Every key needs a default so
// that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*", "http://localhost:3000"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Storage defaults
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", "pantrylens:")
	v.SetDefault("cache.ttl", "5m")

	// Pricing defaults
	v.SetDefault("pricing.ledger_window", "720h") // 30 days
	v.SetDefault("pricing.verification_threshold", 3)
	v.SetDefault("pricing.default_max_days", 90)
	v.SetDefault("pricing.default_max_stores", 3)
	v.SetDefault("pricing.top_stores_limit", 10)
	v.SetDefault("pricing.enable_debug_logging", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)

	// Log defaults
	v.SetDefault("log.level", "")
}

// validate validates the configuration
func validate(config *Config) error {
	if strings.TrimSpace(config.Server.Port) == "" {
		return fmt.Errorf("server port is required (set PANTRYLENS_SERVER_PORT)")
	}

	switch config.Storage.Driver {
	case "memory":
	case "postgres", "sqlite":
		if config.Storage.DSN == "" {
			return fmt.Errorf("storage DSN is required for driver '%s' (set PANTRYLENS_STORAGE_DSN)", config.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage driver must be 'memory', 'postgres' or 'sqlite', got: %s", config.Storage.Driver)
	}

	switch config.Cache.Type {
	case "memory", "none":
	case "redis":
		if config.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when cache type is 'redis'")
		}
	default:
		return fmt.Errorf("cache type must be 'memory', 'redis' or 'none', got: %s", config.Cache.Type)
	}

	if config.Pricing.LedgerWindow <= 0 {
		return fmt.Errorf("pricing ledger window must be positive, got: %s", config.Pricing.LedgerWindow)
	}
	if config.Pricing.VerificationThreshold < 1 {
		return fmt.Errorf("pricing verification threshold must be at least 1, got: %d", config.Pricing.VerificationThreshold)
	}
	if config.Pricing.DefaultMaxDays < 1 || config.Pricing.DefaultMaxDays > 3650 {
		return fmt.Errorf("pricing default max days must be between 1 and 3650, got: %d", config.Pricing.DefaultMaxDays)
	}
	if config.Pricing.DefaultMaxStores < 1 {
		return fmt.Errorf("pricing default max stores must be at least 1, got: %d", config.Pricing.DefaultMaxStores)
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("rate limit per IP must not be negative, got: %d", config.RateLimit.PerIP)
	}

	return nil
}

// Validate checks a configuration built or modified outside Load
func (c *Config) Validate() error {
	return validate(c)
}
