// Package config provides environment-driven application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// SecurityConfig exposes the token-signing configuration consumed by the
// auth services.
type SecurityConfig interface {
	GetJWTSecret() string
	GetJWTExpiration() time.Duration
	GetRefreshTokenExpiration() time.Duration
	IsRefreshRotationEnabled() bool
}

// AuthCacheConfig exposes the permission-cache and blacklist tuning knobs.
type AuthCacheConfig interface {
	GetPermissionCacheTTL() time.Duration
	GetBlacklistSweepInterval() time.Duration
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

// ServerConfig exposes HTTP server configuration.
type ServerConfig interface {
	GetServerPort() string
	GetReadTimeout() time.Duration
	GetWriteTimeout() time.Duration
	GetIdleTimeout() time.Duration
}

// AppConfig implements all configuration interfaces.
type AppConfig struct {
	serverPort             string
	jwtSecret              string
	environment            string
	logLevel               string
	redisAddr              string
	redisPassword          string
	redisDB                int
	readTimeout            time.Duration
	writeTimeout           time.Duration
	idleTimeout            time.Duration
	jwtExpiration          time.Duration
	refreshTokenExpiration time.Duration
	refreshRotationEnabled bool
	permissionCacheTTL     time.Duration
	blacklistSweepInterval time.Duration
}

// NewConfig creates a new configuration instance with default values
// and overrides from environment variables.
func NewConfig() *AppConfig {
	return &AppConfig{
		serverPort:             getEnvString("SERVER_PORT", "8080"),
		jwtSecret:              getEnvString("JWT_SECRET", generateDefaultJWTSecret()),
		environment:            getEnvString("ENVIRONMENT", "development"),
		logLevel:               getEnvString("LOG_LEVEL", "info"),
		redisAddr:              getEnvString("REDIS_ADDR", ""),
		redisPassword:          getEnvString("REDIS_PASSWORD", ""),
		redisDB:                getEnvInt("REDIS_DB", 0),
		readTimeout:            getEnvDuration("READ_TIMEOUT", "15s"),
		writeTimeout:           getEnvDuration("WRITE_TIMEOUT", "15s"),
		idleTimeout:            getEnvDuration("IDLE_TIMEOUT", "60s"),
		jwtExpiration:          getEnvDuration("JWT_EXPIRATION", "1h"),
		refreshTokenExpiration: getEnvDuration("REFRESH_TOKEN_EXPIRATION", "168h"), // 7 days
		refreshRotationEnabled: getEnvBool("REFRESH_ROTATION_ENABLED", true),
		permissionCacheTTL:     getEnvDuration("PERMISSION_CACHE_TTL", "5m"),
		blacklistSweepInterval: getEnvDuration("BLACKLIST_SWEEP_INTERVAL", "15m"),
	}
}

// GetServerPort returns the server port configuration.
func (c *AppConfig) GetServerPort() string {
	return c.serverPort
}

// GetJWTSecret returns the JWT signing secret.
func (c *AppConfig) GetJWTSecret() string {
	return c.jwtSecret
}

// GetEnvironment returns the application environment.
func (c *AppConfig) GetEnvironment() string {
	return c.environment
}

// GetLogLevel returns the log level configuration.
func (c *AppConfig) GetLogLevel() string {
	return c.logLevel
}

// IsProduction returns true when running in production.
func (c *AppConfig) IsProduction() bool {
	return c.environment == "production"
}

// GetReadTimeout returns the server read timeout.
func (c *AppConfig) GetReadTimeout() time.Duration {
	return c.readTimeout
}

// GetWriteTimeout returns the server write timeout.
func (c *AppConfig) GetWriteTimeout() time.Duration {
	return c.writeTimeout
}

// GetIdleTimeout returns the server idle timeout.
func (c *AppConfig) GetIdleTimeout() time.Duration {
	return c.idleTimeout
}

// GetJWTExpiration returns the access token lifetime.
func (c *AppConfig) GetJWTExpiration() time.Duration {
	return c.jwtExpiration
}

// GetRefreshTokenExpiration returns the refresh token lifetime.
func (c *AppConfig) GetRefreshTokenExpiration() time.Duration {
	return c.refreshTokenExpiration
}

// IsRefreshRotationEnabled reports whether refresh tokens are rotated and
// revoked on every refresh.
func (c *AppConfig) IsRefreshRotationEnabled() bool {
	return c.refreshRotationEnabled
}

// GetPermissionCacheTTL returns how long resolved permission sets stay fresh.
func (c *AppConfig) GetPermissionCacheTTL() time.Duration {
	return c.permissionCacheTTL
}

// GetBlacklistSweepInterval returns the cadence of expired-entry cleanup.
func (c *AppConfig) GetBlacklistSweepInterval() time.Duration {
	return c.blacklistSweepInterval
}

// GetRedisAddr returns the Redis address, empty when the in-memory cache
// backend should be used.
func (c *AppConfig) GetRedisAddr() string {
	return c.redisAddr
}

// GetRedisPassword returns the Redis password.
func (c *AppConfig) GetRedisPassword() string {
	return c.redisPassword
}

// GetRedisDB returns the Redis database index.
func (c *AppConfig) GetRedisDB() int {
	return c.redisDB
}

// Validate checks if the configuration is valid.
func (c *AppConfig) Validate() error {
	if c.serverPort == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if len(c.jwtSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters long")
	}

	if c.jwtExpiration <= 0 || c.refreshTokenExpiration <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}

	if c.refreshTokenExpiration <= c.jwtExpiration {
		return fmt.Errorf("refresh token lifetime must exceed access token lifetime")
	}

	if c.environment != "development" && c.environment != "staging" && c.environment != "production" {
		return fmt.Errorf("environment must be one of: development, staging, production")
	}

	return nil
}

// Helper functions for environment variable parsing.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Second
}

// generateDefaultJWTSecret generates a default JWT secret for development.
func generateDefaultJWTSecret() string {
	return "bms-server-development-jwt-secret-key-32chars-minimum-length-required"
}
