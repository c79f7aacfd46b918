// Package config loads the endpoint, keys and cache settings shared by the
// catalog client and the record cache.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything needed to construct a client and a cache
type Config struct {
	BaseURL    string        `yaml:"base_url" env:"MARVEL_BASE_URL"`
	PublicKey  string        `yaml:"public_key" env:"MARVEL_PUBLIC_KEY"`
	PrivateKey string        `yaml:"private_key" env:"MARVEL_PRIVATE_KEY"`
	MaxEntries int           `yaml:"max_entries" env:"MARVEL_MAX_ENTRIES"`
	CachePath  string        `yaml:"cache_path" env:"MARVEL_CACHE_PATH"`
	Timeout    time.Duration `yaml:"timeout" env:"MARVEL_TIMEOUT"`
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		BaseURL:    "https://gateway.marvel.com/v1/public/",
		MaxEntries: 20,
		CachePath:  "marvel_cache.sqlite",
		Timeout:    30 * time.Second,
	}
}

// Load builds a Config from defaults, an optional YAML file and the
// environment, in increasing order of precedence. A .env file in the
// working directory is loaded into the environment first if present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Unable to read .env file", "err", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting that makes the config unusable
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.New("base URL is required (MARVEL_BASE_URL)")
	case c.PublicKey == "":
		return errors.New("public key is required (MARVEL_PUBLIC_KEY)")
	case c.PrivateKey == "":
		return errors.New("private key is required (MARVEL_PRIVATE_KEY)")
	case c.MaxEntries <= 0:
		return fmt.Errorf("max entries must be positive, got %d", c.MaxEntries)
	}
	return nil
}
