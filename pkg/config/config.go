// Package config loads the Marketo client configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sternrassler/marketo-client/pkg/client"
	"github.com/Sternrassler/marketo-client/pkg/logging"
	"github.com/Sternrassler/marketo-client/pkg/ratelimit"
)

// Config holds the process configuration.
type Config struct {
	BaseURL          string
	AccessToken      string
	CallDelaySeconds float64
	PartitionID      int
	RateLimit        float64
	MaxRetries       int
	UserAgent        string
	RedisURL         string
	LogLevel         string
	LogPretty        bool
	Port             string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first if present; variables already set win.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		BaseURL:     os.Getenv("MARKETO_BASE_URL"),
		AccessToken: os.Getenv("MARKETO_ACCESS_TOKEN"),
		UserAgent:   getEnv("USER_AGENT", "marketo-client/0.1.0"),
		RedisURL:    os.Getenv("REDIS_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnv("PORT", "8080"),
	}

	var err error
	if cfg.CallDelaySeconds, err = floatEnv("MARKETO_CALL_DELAY_SECONDS", 0); err != nil {
		return nil, err
	}
	if cfg.PartitionID, err = intEnv("MARKETO_PARTITION_ID", 1); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = floatEnv("MARKETO_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = intEnv("MARKETO_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.LogPretty, err = boolEnv("LOG_PRETTY", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("MARKETO_BASE_URL is required")
	}
	if c.CallDelaySeconds < 0 {
		return fmt.Errorf("MARKETO_CALL_DELAY_SECONDS must be >= 0 (got %v)", c.CallDelaySeconds)
	}
	if c.PartitionID < 1 {
		return fmt.Errorf("MARKETO_PARTITION_ID must be >= 1 (got %d)", c.PartitionID)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("MARKETO_RATE_LIMIT must be >= 0 (got %v)", c.RateLimit)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MARKETO_MAX_RETRIES must be >= 1 (got %d)", c.MaxRetries)
	}
	// AccessToken is optional, a token source may be injected instead
	return nil
}

// CallDelay returns the per-call delay.
func (c *Config) CallDelay() time.Duration {
	return ratelimit.FromSeconds(c.CallDelaySeconds).Interval
}

// Transport returns the transport configuration.
func (c *Config) Transport() client.Config {
	cfg := client.DefaultConfig(c.BaseURL, client.StaticToken(c.AccessToken))
	cfg.UserAgent = c.UserAgent
	cfg.RateLimit = c.RateLimit
	cfg.MaxRetries = c.MaxRetries
	return cfg
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func floatEnv(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, value)
	}
	return f, nil
}

func intEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func boolEnv(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}
