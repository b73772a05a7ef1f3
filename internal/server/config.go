// Package server provides configuration helpers that define runtime
// defaults, validation, and rate-limiting parameters for the StoryRiver
// service.
package server

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server and generation settings. Fields map directly
// to environment variables; unset variables take the tagged defaults.
type Config struct {
	Port           string   `env:"SERVER_PORT" envDefault:":8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	GenerateInterval time.Duration `env:"GENERATE_INTERVAL" envDefault:"3s"`
	GenerateTimeout  time.Duration `env:"GENERATE_TIMEOUT" envDefault:"45s"`
	ContextWindow    int           `env:"CONTEXT_WINDOW" envDefault:"1000"`
	MaxNewTokens     int           `env:"MAX_NEW_TOKENS" envDefault:"30"`
	MaxLength        int           `env:"RIVER_MAX_LENGTH" envDefault:"3500"`
	DeltaLimit       int           `env:"DELTA_LIMIT" envDefault:"78"`
	FallbackSeed     string        `env:"FALLBACK_SEED" envDefault:"Once upon a time..."`
	SnapshotPath     string        `env:"SNAPSHOT_PATH" envDefault:"river_data.json"`

	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"3s"`
	RateLimitCeiling   int           `env:"RATE_LIMIT_MAX_ENTRIES" envDefault:"10000"`
	RateLimitRetention time.Duration `env:"RATE_LIMIT_RETENTION" envDefault:"1h"`
	MaxWordLength      int           `env:"MAX_WORD_LENGTH" envDefault:"15"`

	LLMProvider string `env:"LLM_PROVIDER" envDefault:"scripted"`
	LLMModel    string `env:"LLM_MODEL"`
	LLMBaseURL  string `env:"LLM_BASE_URL"`
	LLMAPIKey   string `env:"LLM_API_KEY"`
}

// NewConfig creates a Config populated with the default values for all
// settings, ignoring the environment.
func NewConfig() *Config {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}); err != nil {
		// The defaults live in static struct tags; parsing them can only
		// fail if the tags themselves are broken.
		panic(fmt.Sprintf("parse default config: %v", err))
	}
	cfg.sanitize()
	return cfg
}

// NewConfigFromEnv creates a Config from environment variables, falling
// back to defaults for anything unset.
func NewConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config from environment: %w", err)
	}
	cfg.sanitize()
	return cfg, nil
}

// sanitize clamps nonsensical values back to their defaults so a bad
// environment cannot stall the cycle or disable rate limiting.
func (c *Config) sanitize() {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:8080"}
	}
	if c.GenerateInterval <= 0 {
		c.GenerateInterval = 3 * time.Second
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 45 * time.Second
	}
	if c.ContextWindow <= 0 {
		c.ContextWindow = 1000
	}
	if c.MaxNewTokens <= 0 {
		c.MaxNewTokens = 30
	}
	if c.MaxLength <= 0 {
		c.MaxLength = 3500
	}
	if c.DeltaLimit <= 0 {
		c.DeltaLimit = 78
	}
	if c.FallbackSeed == "" {
		c.FallbackSeed = "Once upon a time..."
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = 3 * time.Second
	}
	if c.RateLimitCeiling <= 0 {
		c.RateLimitCeiling = 10000
	}
	if c.RateLimitRetention <= 0 {
		c.RateLimitRetention = time.Hour
	}
	if c.MaxWordLength <= 0 {
		c.MaxWordLength = 15
	}
	if c.LLMProvider == "" {
		c.LLMProvider = "scripted"
	}
}
