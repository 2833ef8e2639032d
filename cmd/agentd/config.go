package main

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/backoff"
)

// Config is the daemon's environment-driven configuration.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// ListenAddr is the HTTP API bind address. Empty disables the API.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Store selects the persistence backend: memory, redis, or postgres.
	Store       string `envconfig:"STORE" default:"memory"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	PostgresURL string `envconfig:"POSTGRES_URL"`

	MaxConcurrency       int           `envconfig:"MAX_CONCURRENCY" default:"2"`
	MaxQueueSize         int           `envconfig:"MAX_QUEUE_SIZE" default:"100"`
	EnablePrioritization bool          `envconfig:"ENABLE_PRIORITIZATION" default:"true"`
	ShutdownTimeout      time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	RetryEnabled    bool          `envconfig:"RETRY_ENABLED" default:"true"`
	RetryMaxRetries int           `envconfig:"RETRY_MAX_RETRIES" default:"3"`
	RetryStrategy   string        `envconfig:"RETRY_STRATEGY" default:"exponential"`
	RetryBaseDelay  time.Duration `envconfig:"RETRY_BASE_DELAY" default:"5s"`
	RetryMaxDelay   time.Duration `envconfig:"RETRY_MAX_DELAY" default:"5m"`
	RetryMinJitter  float64       `envconfig:"RETRY_MIN_JITTER" default:"0.0"`
	RetryMaxJitter  float64       `envconfig:"RETRY_MAX_JITTER" default:"0.2"`
}

// Load reads configuration from a .env file (if present) and the
// environment.
func Load() (*Config, error) {
	// Env vars set in the shell take precedence; a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("copilot", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports configuration errors not caught by the engine's own
// Config.Validate.
func (c *Config) Validate() error {
	switch c.Store {
	case "memory", "redis":
	case "postgres":
		if c.PostgresURL == "" {
			return fmt.Errorf("COPILOT_POSTGRES_URL is required when store is postgres")
		}
	default:
		return fmt.Errorf("unknown store backend %q (want memory, redis, or postgres)", c.Store)
	}

	return nil
}

// EngineConfig converts the env-driven settings into the engine's Config.
func (c *Config) EngineConfig() copilot.Config {
	return copilot.Config{
		MaxConcurrency:       c.MaxConcurrency,
		MaxQueueSize:         c.MaxQueueSize,
		EnablePrioritization: c.EnablePrioritization,
		ShutdownTimeout:      c.ShutdownTimeout,
		Retry: backoff.Policy{
			Enabled:    c.RetryEnabled,
			MaxRetries: c.RetryMaxRetries,
			Strategy:   backoff.Strategy(c.RetryStrategy),
			BaseDelay:  c.RetryBaseDelay,
			MaxDelay:   c.RetryMaxDelay,
			MinJitter:  c.RetryMinJitter,
			MaxJitter:  c.RetryMaxJitter,
		},
	}
}
