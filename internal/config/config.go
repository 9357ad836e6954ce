// Package config loads the raffle engine configuration from an optional
// YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/raffle-engine/pkg/logger"
)

// DefaultPath is consulted when RAFFLE_CONFIG is unset.
const DefaultPath = "config/raffle.yaml"

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST"`
	Port int    `yaml:"port" env:"SERVER_PORT"`
}

// DatabaseConfig selects the persistence backend. An empty DSN runs the
// engine on the in-memory store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN    string `yaml:"dsn" env:"DATABASE_DSN"`
}

// RaffleConfig holds the fixed raffle parameters.
type RaffleConfig struct {
	Owner         string `yaml:"owner" env:"RAFFLE_OWNER"`
	Beneficiary   string `yaml:"beneficiary" env:"RAFFLE_BENEFICIARY"`
	EscrowAccount string `yaml:"escrow_account" env:"RAFFLE_ESCROW_ACCOUNT"`
	ProfitFactor  int64  `yaml:"profit_factor" env:"RAFFLE_PROFIT_FACTOR"`
	// CloseSchedule is an optional cron expression; when set, open rounds
	// are closed automatically on that schedule.
	CloseSchedule string `yaml:"close_schedule" env:"RAFFLE_CLOSE_SCHEDULE"`
}

// AuthConfig controls the HTTP authentication middleware. With an empty
// secret the API trusts the X-Caller-Identity header, which is only suitable
// for local development.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
}

// RateLimitConfig bounds per-caller request rates.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// Config is the full engine configuration.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	Raffle    RaffleConfig         `yaml:"raffle"`
	Auth      AuthConfig           `yaml:"auth"`
	RateLimit RateLimitConfig      `yaml:"rate_limit"`
}

// Load reads the config file named by RAFFLE_CONFIG (or DefaultPath) when it
// exists, then applies environment overrides on top of it.
func Load() (*Config, error) {
	path := os.Getenv("RAFFLE_CONFIG")
	if path == "" {
		path = DefaultPath
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from the given YAML file. A missing file
// is not an error; defaults and environment variables still apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// run on defaults + environment
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Raffle: RaffleConfig{
			Owner:         "owner",
			Beneficiary:   "beneficiary",
			EscrowAccount: "raffle-escrow",
			ProfitFactor:  20,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Raffle.ProfitFactor < 0 || c.Raffle.ProfitFactor > 100 {
		return fmt.Errorf("profit factor %d outside [0, 100]", c.Raffle.ProfitFactor)
	}
	return nil
}
