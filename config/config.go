package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Logging     LoggingConfig
	Cache       CacheConfig
	Performance PerformanceConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Connection pool settings
	MaxConns int
	MinConns int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// CacheConfig holds tree cache configuration. PolicyFile, when set,
// points at a YAML file overriding the TTL policy per visibility class.
type CacheConfig struct {
	Enabled         bool
	MaxSize         int
	CleanupInterval time.Duration
	PublishedTTL    time.Duration
	PrivateTTL      time.Duration
	BackendTimeout  time.Duration
	PolicyFile      string

	// HTTP cache directives for published trees
	HTTPMaxAge               time.Duration
	HTTPStaleWhileRevalidate time.Duration
}

// PerformanceConfig holds performance monitoring configuration
type PerformanceConfig struct {
	MetricsEnabled     bool
	MonitoringEnabled  bool
	SlowQueryThreshold time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getIntEnv("DB_PORT", 5432),
			Database: getEnv("DB_NAME", "postgres"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSLMODE", "prefer"),
			MaxConns: getIntEnv("DB_MAX_CONNS", 10),
			MinConns: getIntEnv("DB_MIN_CONNS", 2),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Cache: CacheConfig{
			Enabled:                  getBoolEnv("CACHE_ENABLED", true),
			MaxSize:                  getIntEnv("CACHE_MAX_SIZE", 10000),
			CleanupInterval:          getDurationEnv("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
			PublishedTTL:             getDurationEnv("CACHE_PUBLISHED_TTL", 30*time.Minute),
			PrivateTTL:               getDurationEnv("CACHE_PRIVATE_TTL", time.Minute),
			BackendTimeout:           getDurationEnv("CACHE_BACKEND_TIMEOUT", 250*time.Millisecond),
			PolicyFile:               getEnv("CACHE_POLICY_FILE", ""),
			HTTPMaxAge:               getDurationEnv("CACHE_HTTP_MAX_AGE", 5*time.Minute),
			HTTPStaleWhileRevalidate: getDurationEnv("CACHE_HTTP_SWR", time.Minute),
		},
		Performance: PerformanceConfig{
			MetricsEnabled:     getBoolEnv("METRICS_ENABLED", true),
			MonitoringEnabled:  getBoolEnv("MONITORING_ENABLED", true),
			SlowQueryThreshold: getDurationEnv("SLOW_QUERY_THRESHOLD", 500*time.Millisecond),
		},
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets duration from environment variable with default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets integer from environment variable with default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv gets boolean from environment variable with default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return &ConfigError{Field: "DB_HOST", Message: "database host is required"}
	}
	if c.Database.Database == "" {
		return &ConfigError{Field: "DB_NAME", Message: "database name is required"}
	}
	if c.Cache.PrivateTTL > c.Cache.PublishedTTL {
		return &ConfigError{Field: "CACHE_PRIVATE_TTL", Message: "private TTL must not exceed published TTL"}
	}
	return nil
}

// ConfigError represents configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
