// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration for the simulator.
type Config struct {
	TickInterval    time.Duration `env:"TICK_INTERVAL" envDefault:"5s"`
	TickAmplitude   float64       `env:"TICK_AMPLITUDE" envDefault:"0.1"`
	DataDir         string        `env:"DATA_DIR" envDefault:"data"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	StartingBalance string        `env:"STARTING_BALANCE" envDefault:"1000"`
	AdminUsername   string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword   string        `env:"ADMIN_PASSWORD" envDefault:"admin"`

	// HTTPAddr enables the read-only market-data API when non-empty,
	// e.g. ":8080".
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:""`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment, applies defaults, and validates values.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: must be > 0, got %s", cfg.TickInterval)
	}
	if cfg.TickAmplitude < 0 || cfg.TickAmplitude >= 1 {
		return nil, fmt.Errorf("invalid TICK_AMPLITUDE: must be in [0, 1), got %g", cfg.TickAmplitude)
	}
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}
	balance, err := decimal.NewFromString(cfg.StartingBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: %w", err)
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: must be >= 0, got %s", balance)
	}
	return cfg, nil
}

// Balance returns the parsed starting balance. Load has already
// validated it.
func (c *Config) Balance() decimal.Decimal {
	return decimal.RequireFromString(c.StartingBalance)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
