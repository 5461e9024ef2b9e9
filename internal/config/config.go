package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Engine    EngineConfig
	Sync      SyncConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host string
	Port string
	Env  string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret             string
	AccessTokenExpire  time.Duration
	RefreshTokenExpire time.Duration
}

// EngineConfig holds trading-engine endpoint configuration
type EngineConfig struct {
	APIURL         string
	WSURL          string
	AppID          string
	RequestTimeout time.Duration
}

// SyncConfig tunes the state reconciler and the engine connection
type SyncConfig struct {
	FeedCap                int
	BalanceRefreshInterval time.Duration
	FullRefreshInterval    time.Duration
	StatusSampleInterval   time.Duration
	ReconnectBaseDelay     time.Duration
	ReconnectGrowthFactor  float64
	ReconnectMaxAttempts   int
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute        int
	SessionRequestsPerMinute int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			AccessTokenExpire:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute,
			RefreshTokenExpire: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		},
		Engine: EngineConfig{
			APIURL:         getEnv("ENGINE_API_URL", "http://localhost:8000"),
			WSURL:          getEnv("ENGINE_WS_URL", "ws://localhost:8000/ws"),
			AppID:          getEnv("ENGINE_APP_ID", ""),
			RequestTimeout: time.Duration(getEnvAsInt("ENGINE_REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Sync: SyncConfig{
			FeedCap:                getEnvAsInt("SYNC_FEED_CAP", 50),
			BalanceRefreshInterval: time.Duration(getEnvAsInt("SYNC_BALANCE_REFRESH_SECONDS", 30)) * time.Second,
			FullRefreshInterval:    time.Duration(getEnvAsInt("SYNC_FULL_REFRESH_SECONDS", 120)) * time.Second,
			StatusSampleInterval:   time.Duration(getEnvAsInt("SYNC_STATUS_SAMPLE_SECONDS", 3)) * time.Second,
			ReconnectBaseDelay:     time.Duration(getEnvAsInt("WS_RECONNECT_BASE_DELAY_MS", 3000)) * time.Millisecond,
			ReconnectGrowthFactor:  getEnvAsFloat("WS_RECONNECT_GROWTH_FACTOR", 1.5),
			ReconnectMaxAttempts:   getEnvAsInt("WS_RECONNECT_MAX_ATTEMPTS", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}, ","),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute:        getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 120),
			SessionRequestsPerMinute: getEnvAsInt("RATE_LIMIT_SESSION_REQUESTS_PER_MINUTE", 5),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required fields
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.Sync.FeedCap <= 0 {
		return nil, fmt.Errorf("SYNC_FEED_CAP must be positive")
	}

	if cfg.Sync.ReconnectGrowthFactor < 1 {
		return nil, fmt.Errorf("WS_RECONNECT_GROWTH_FACTOR must be >= 1")
	}

	if cfg.Sync.ReconnectMaxAttempts < 0 {
		return nil, fmt.Errorf("WS_RECONNECT_MAX_ATTEMPTS must be >= 0")
	}

	return cfg, nil
}

// Address returns the full server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// RedisAddress returns the full Redis address
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if running in development mode
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string, separator string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, separator)
}
