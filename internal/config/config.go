// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP server
	Port           string
	AllowedOrigins []string
	MaxUploadBytes int64

	// Storage
	StoreBackend          string
	GoogleCloudProject    string
	GoogleCredentialsFile string
	SQLiteDBPath          string
	ReceiptBucket         string

	// Reporting
	Timezone           string
	MonthCacheSize     int
	MonthCacheTTL      time.Duration
	CacheSweepSchedule string

	// Extraction
	GeminiAPIKey         string
	GeminiModel          string
	ExtractionTimeout    time.Duration
	ExtractionMaxRetries int
	ImageMaxDimension    int
	ImageJPEGQuality     int

	// Logging
	LogLevel  string
	LogFormat string

	problems []string
}

var defaultOrigins = []string{
	"http://localhost:1234",
	"http://127.0.0.1:1234",
	"http://localhost:3000",
}

// Load reads .env (when present) into the environment and then builds the
// configuration. Malformed numeric values are reported by Validate.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() *Config {
	c := &Config{}

	c.Port = getEnv("PORT", "8111")
	c.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", defaultOrigins)
	c.MaxUploadBytes = int64(c.getEnvInt("MAX_UPLOAD_BYTES", 10<<20))

	c.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", ""))
	if c.StoreBackend == "" {
		c.StoreBackend = "firestore"
		if os.Getenv("USE_MEMORY_STORE") == "true" || os.Getenv("ENV") == "local" {
			c.StoreBackend = "memory"
		}
	}
	c.GoogleCloudProject = getEnv("GOOGLE_CLOUD_PROJECT", "")
	c.GoogleCredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", "./data/ledger.db")
	c.ReceiptBucket = getEnv("RECEIPT_BUCKET", "")

	c.Timezone = getEnv("LEDGER_TIMEZONE", "UTC")
	c.MonthCacheSize = c.getEnvInt("MONTH_CACHE_SIZE", 4096)
	c.MonthCacheTTL = c.getEnvDuration("MONTH_CACHE_TTL", 5*time.Minute)
	c.CacheSweepSchedule = getEnv("CACHE_SWEEP_SCHEDULE", "@every 1m")

	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", "")
	c.GeminiModel = getEnv("GEMINI_MODEL", "gemini-1.5-flash")
	c.ExtractionTimeout = c.getEnvDuration("EXTRACTION_TIMEOUT", 30*time.Second)
	c.ExtractionMaxRetries = c.getEnvInt("EXTRACTION_MAX_RETRIES", 0)
	c.ImageMaxDimension = c.getEnvInt("IMAGE_MAX_DIMENSION", 800)
	c.ImageJPEGQuality = c.getEnvInt("IMAGE_JPEG_QUALITY", 85)

	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	c.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "json"))

	return c
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	errs := append([]string(nil), c.problems...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.StoreBackend {
	case "memory":
	case "firestore":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLITE_DB_PATH cannot be empty when using the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid store backend '%s': must be one of [memory firestore sqlite]", c.StoreBackend))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("invalid LEDGER_TIMEZONE '%s': %v", c.Timezone, err))
	}
	if c.MonthCacheSize < 0 {
		errs = append(errs, "MONTH_CACHE_SIZE cannot be negative")
	}
	if c.MonthCacheSize > 0 {
		if c.MonthCacheTTL <= 0 {
			errs = append(errs, "MONTH_CACHE_TTL must be positive when the month cache is enabled")
		}
		if _, err := cron.ParseStandard(c.CacheSweepSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("invalid CACHE_SWEEP_SCHEDULE '%s': %v", c.CacheSweepSchedule, err))
		}
	}

	if c.ExtractionTimeout <= 0 {
		errs = append(errs, "EXTRACTION_TIMEOUT must be positive")
	}
	if c.ExtractionMaxRetries < 0 || c.ExtractionMaxRetries > 10 {
		errs = append(errs, fmt.Sprintf("EXTRACTION_MAX_RETRIES %d must be between 0 and 10", c.ExtractionMaxRetries))
	}
	if c.ImageMaxDimension < 16 {
		errs = append(errs, fmt.Sprintf("IMAGE_MAX_DIMENSION %d must be at least 16", c.ImageMaxDimension))
	}
	if c.ImageJPEGQuality < 1 || c.ImageJPEGQuality > 100 {
		errs = append(errs, fmt.Sprintf("IMAGE_JPEG_QUALITY %d must be between 1 and 100", c.ImageJPEGQuality))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, "MAX_UPLOAD_BYTES must be positive")
	}

	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		errs = append(errs, fmt.Sprintf("invalid LOG_LEVEL '%s'", c.LogLevel))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Sprintf("invalid LOG_FORMAT '%s': must be json or console", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Location returns the zone reports bucket months in. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ExtractionEnabled reports whether receipt extraction can be offered.
func (c *Config) ExtractionEnabled() bool {
	return c.GeminiAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) getEnvInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("invalid %s '%s': must be an integer", key, value))
		return defaultValue
	}
	return n
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("invalid %s '%s': must be a duration such as 30s", key, value))
		return defaultValue
	}
	return d
}
