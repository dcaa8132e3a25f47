// Package config loads the harvester configuration from YAML and applies
// environment variable overrides.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the regsho harvester.
type Config struct {
	Storage Storage `yaml:"storage"`
	Finra   Finra   `yaml:"finra"`
	Alpaca  Alpaca  `yaml:"alpaca"`
	Logging Logging `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir string `yaml:"data_dir"`
}

// Finra configures the short sale volume feed.
type Finra struct {
	BaseURL string `yaml:"base_url"`
}

// Alpaca holds credentials and endpoints for the quotes provider.
type Alpaca struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	BaseURL         string `yaml:"base_url"`
	DataURL         string `yaml:"data_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides. A missing
// file is not an error: the defaults plus environment overrides are enough
// to run with.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	applyFallbacks(cfg)

	return cfg, nil
}

// defaults returns a Config populated with the values a fresh checkout runs
// with.
func defaults() *Config {
	return &Config{
		Storage: Storage{DataDir: "data"},
		Finra:   Finra{BaseURL: "http://regsho.finra.org"},
		Alpaca:  Alpaca{RateLimitPerMin: 200},
		Logging: Logging{Level: "info"},
	}
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("FINRA_BASE_URL"); v != "" {
		cfg.Finra.BaseURL = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyFallbacks restores defaults for fields the YAML file may have set to
// empty or zero.
func applyFallbacks(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Finra.BaseURL == "" {
		cfg.Finra.BaseURL = "http://regsho.finra.org"
	}
	if cfg.Alpaca.RateLimitPerMin <= 0 {
		cfg.Alpaca.RateLimitPerMin = 200
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
