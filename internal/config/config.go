// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/efreitasn/holdingsledger/internal/service"
)

// Config holds all runtime configuration for the holdings ledger.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// MongoURL selects the MongoDB backend; empty runs on the in-memory store.
	MongoURL          string `env:"MONGO_URL"`
	MongoDatabase     string `env:"MONGO_DATABASE" envDefault:"holdings"`
	MongoTransactions bool   `env:"MONGO_TRANSACTIONS" envDefault:"false"`

	// KafkaBrokers is a comma-separated list; empty disables the order feed.
	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC" envDefault:"orders"`

	CORSOrigin        string        `env:"CORS_ORIGIN" envDefault:"*"`
	SellValidation    string        `env:"SELL_VALIDATION" envDefault:"permissive"`
	PositionsCacheTTL time.Duration `env:"POSITIONS_CACHE_TTL" envDefault:"30s"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d, must be between 1 and 65535", cfg.Port)
	}
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}

	mode, err := service.ParseSellValidation(cfg.SellValidation)
	if err != nil {
		return nil, fmt.Errorf("invalid SELL_VALIDATION: %w", err)
	}
	cfg.SellValidation = string(mode)
	if cfg.PositionsCacheTTL < 0 {
		return nil, fmt.Errorf("invalid POSITIONS_CACHE_TTL: %v, must not be negative", cfg.PositionsCacheTTL)
	}
	cfg.MongoDatabase = strings.TrimSpace(cfg.MongoDatabase)
	cfg.KafkaTopic = strings.TrimSpace(cfg.KafkaTopic)
	if cfg.MongoURL != "" && cfg.MongoDatabase == "" {
		return nil, fmt.Errorf("MONGO_DATABASE is required when MONGO_URL is set")
	}
	if len(cfg.Brokers()) > 0 && cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return &cfg, nil
}

// Brokers returns the non-empty entries of KafkaBrokers.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
