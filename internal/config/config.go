// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string        `env:"ADDR" envDefault:":8080"`
	DatabaseURL  string        `env:"DATABASE_URL,required"`
	SnapshotPath string        `env:"SNAPSHOT_PATH" envDefault:"live_session.db"`
	StaleAfter   time.Duration `env:"STALE_AFTER" envDefault:"24h"`
	Debug        bool          `env:"DEBUG" envDefault:"false"`
}

// Load reads .env if present, then parses the environment.
func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
