package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "COMMUNITY"

// Storage backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig
	Storage    StorageConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Server     ServerConfig
	Engagement EngagementConfig
	Logging    LoggingConfig
	Telemetry  TelemetryConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// StorageConfig selects where posts live
type StorageConfig struct {
	Backend string // "memory" or "postgres"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL     string
	Enabled bool
}

// CacheConfig holds the in-process listing cache configuration, used when Redis is off
type CacheConfig struct {
	Enabled bool
	Size    int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ShutdownTimeout time.Duration
}

// EngagementConfig tunes post mutation and listing behavior
type EngagementConfig struct {
	MaxConflictRetries int
	TrendingLimit      int
	DefaultPageSize    int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string
	Format       string // "json" or "text"
	ScalyrFormat bool   // Enable Scalyr-compatible JSON format
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled           bool
	JaegerURL         string
	PrometheusEnabled bool
	ServiceName       string
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	// Load from environment
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	// Load from config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.community")
	viper.AddConfigPath("/etc/community")

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found; this is OK if we have env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:             getString("database_url", ""),
			MaxOpenConns:    getInt("db_max_open_conns", 25),
			MaxIdleConns:    getInt("db_max_idle_conns", 5),
			ConnMaxLifetime: GetDuration("db_conn_max_lifetime", 30*time.Minute),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getString("storage_backend", BackendMemory)),
		},
		Redis: RedisConfig{
			URL:     getString("redis_url", ""),
			Enabled: getString("redis_url", "") != "",
		},
		Cache: CacheConfig{
			Enabled: getBool("cache_enabled", true),
			Size:    getInt("cache_size", 1024),
		},
		Server: ServerConfig{
			Port:            getInt("http_server_port", 8080),
			Host:            getString("http_server_host", "0.0.0.0"),
			ShutdownTimeout: GetDuration("http_shutdown_timeout", 10*time.Second),
		},
		Engagement: EngagementConfig{
			MaxConflictRetries: getInt("max_conflict_retries", 5),
			TrendingLimit:      getInt("trending_limit", 10),
			DefaultPageSize:    getInt("default_page_size", 20),
		},
		Logging: LoggingConfig{
			Level:        getString("log_level", "INFO"),
			Format:       getString("log_format", "json"),
			ScalyrFormat: getBool("log_scalyr_format", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:           getBool("telemetry_enabled", false),
			JaegerURL:         getString("jaeger_url", ""),
			PrometheusEnabled: getBool("prometheus_enabled", true),
			ServiceName:       getString("service_name", "community"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("storage_backend", BackendMemory)
	viper.SetDefault("http_server_port", 8080)
	viper.SetDefault("http_server_host", "0.0.0.0")
	viper.SetDefault("log_level", "INFO")
	viper.SetDefault("log_format", "json")
	viper.SetDefault("max_conflict_retries", 5)
	viper.SetDefault("trending_limit", 10)
	viper.SetDefault("default_page_size", 20)
	viper.SetDefault("cache_size", 1024)
	viper.SetDefault("service_name", "community")
}

func getString(key, defaultValue string) string {
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	// Also check environment variable directly
	if val := os.Getenv(envPrefix + "_" + toEnvKey(key)); val != "" {
		return val
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	if val := os.Getenv(envPrefix + "_" + toEnvKey(key)); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	if val := os.Getenv(envPrefix + "_" + toEnvKey(key)); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultValue
}

// toEnvKey converts snake_case or kebab-case to UPPER_SNAKE_CASE
func toEnvKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage_backend must be %q or %q", BackendMemory, BackendPostgres)
	}
	if c.Engagement.MaxConflictRetries < 1 || c.Engagement.MaxConflictRetries > 20 {
		return fmt.Errorf("max_conflict_retries must be between 1 and 20")
	}
	if c.Engagement.TrendingLimit < 1 || c.Engagement.TrendingLimit > 50 {
		return fmt.Errorf("trending_limit must be between 1 and 50")
	}
	if c.Engagement.DefaultPageSize < 1 || c.Engagement.DefaultPageSize > 50 {
		return fmt.Errorf("default_page_size must be between 1 and 50")
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		return fmt.Errorf("cache_size must be positive when the cache is enabled")
	}
	return nil
}

// GetDuration returns a duration from config key, with default
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	if viper.IsSet(key) {
		return viper.GetDuration(key)
	}
	if val := os.Getenv(envPrefix + "_" + toEnvKey(key)); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultValue
}
