package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/tailscale/hujson"
)

// Config holds all dkv configuration options.
//
// Precedence (highest wins): flags > environment > config file > defaults.
type Config struct {
	BasePath     string `env:"DKV_BASE_PATH"      json:"base_path"`      //nolint:tagliatelle // snake_case for config file
	CacheSizeMax int    `env:"DKV_CACHE_SIZE_MAX" json:"cache_size_max"` //nolint:tagliatelle // snake_case for config file
}

// ConfigFileName is the default config file name, looked up in the working
// directory when --config is not given.
const ConfigFileName = ".dkv.json"

// DefaultConfig returns the default configuration.
//
// The library itself has no default cache ceiling; this one is a CLI
// convenience sized for poking at a store interactively.
func DefaultConfig() Config {
	return Config{
		BasePath:     "data",
		CacheSizeMax: 1 << 20, // 1 MiB
	}
}

// LoadConfig builds the effective config from defaults, an optional HuJSON
// config file, and DKV_* environment variables. Flag overrides are applied
// by the caller afterwards.
//
// When configPath is empty, ConfigFileName is used if it exists; a missing
// default file is fine, a missing explicit --config file is an error.
func LoadConfig(configPath string) (Config, error) {
	cfg := DefaultConfig()

	path := configPath
	explicit := path != ""

	if !explicit {
		path = ConfigFileName
	}

	fileCfg, loaded, err := loadConfigFile(path, explicit)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = mergeConfig(cfg, fileCfg)
	}

	err = env.Parse(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	return cfg, nil
}

// loadConfigFile reads a HuJSON config file. The file may contain comments
// and trailing commas; it is standardized to plain JSON before decoding.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user's own flag
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("reading config %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("parsing config %q: %w", path, err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, false, fmt.Errorf("decoding config %q: %w", path, err)
	}

	return cfg, true, nil
}

// mergeConfig overlays non-zero fields of over onto base.
func mergeConfig(base, over Config) Config {
	if over.BasePath != "" {
		base.BasePath = over.BasePath
	}

	if over.CacheSizeMax != 0 {
		base.CacheSizeMax = over.CacheSizeMax
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.BasePath == "" {
		return errors.New("base path must not be empty")
	}

	if cfg.CacheSizeMax <= 0 {
		return fmt.Errorf("cache size must be > 0, got %d", cfg.CacheSizeMax)
	}

	return nil
}
