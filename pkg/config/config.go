package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the service
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Limits   LimitsConfig
	Expiry   ExpiryConfig
	Identity IdentityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	UploadDir string
}

// LimitsConfig holds the upload size ceilings
type LimitsConfig struct {
	MaxTotalBytes      int64
	MaxSingleFileBytes int64
}

// ExpiryConfig holds the three independent time windows governing session
// and file lifetime. They are deliberately separate knobs: the steady-state
// TTL, the reaper cadence, and the more conservative staleness bound used by
// the one-shot sweep at startup.
type ExpiryConfig struct {
	SessionTTL     time.Duration
	ReaperInterval time.Duration
	StartupMaxAge  time.Duration
}

// IdentityConfig holds the signing secret for per-browser identity tokens
type IdentityConfig struct {
	Secret string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("HOST", "0.0.0.0"),
			Port:         getEnvInt("PORT", 5000),
			ReadTimeout:  getEnvDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Storage: StorageConfig{
			UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		},
		Limits: LimitsConfig{
			MaxTotalBytes:      getEnvInt64("MAX_TOTAL_SIZE", 100*1024*1024),
			MaxSingleFileBytes: getEnvInt64("MAX_FILE_SIZE", 80*1024*1024),
		},
		Expiry: ExpiryConfig{
			SessionTTL:     getEnvDuration("SESSION_TTL", 15*time.Minute),
			ReaperInterval: getEnvDuration("REAPER_INTERVAL", time.Minute),
			StartupMaxAge:  getEnvDuration("STARTUP_MAX_AGE", 30*time.Minute),
		},
		Identity: IdentityConfig{
			Secret: getEnv("IDENTITY_SECRET", randomSecret()),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}
}

// Addr returns the listen address
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// randomSecret generates a per-boot signing secret. Identity tokens only
// need to survive for the lifetime of the process, so losing the secret on
// restart is acceptable.
func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("unable to generate identity secret: %v", err))
	}
	return hex.EncodeToString(buf)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
