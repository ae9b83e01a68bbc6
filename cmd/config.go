package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/etnz/tally"
	"github.com/etnz/tally/pgstore"
	"gopkg.in/yaml.v3"
)

// Config is the content of the configuration file.
type Config struct {
	Store       StoreConfig        `yaml:"store"`
	FX          map[string]float64 `yaml:"fx"`
	Provider    ProviderConfig     `yaml:"provider"`
	Log         LogConfig          `yaml:"log"`
	MetricsFile string             `yaml:"metrics_file"`
}

// StoreConfig selects the ledger backend.
type StoreConfig struct {
	Driver         string `yaml:"driver"` // file or postgres
	Path           string `yaml:"path"`   // for the file driver
	pgstore.Config `yaml:",inline"`
}

// ProviderConfig selects the market data provider.
type ProviderConfig struct {
	Name     string  `yaml:"name"` // yahoo or eodhd
	APIKey   string  `yaml:"api_key"`
	Currency string  `yaml:"currency"`
	Suffix   string  `yaml:"suffix"`
	Rate     float64 `yaml:"rate"` // requests per second, 0 for no limit
	From     string  `yaml:"from"`
}

// LogConfig sets the verbosity.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when there is no file.
func DefaultConfig() Config {
	return Config{
		Store:    StoreConfig{Driver: "file", Path: "tally.json"},
		Provider: ProviderConfig{Name: "yahoo", Rate: 2},
		Log:      LogConfig{Level: "info"},
	}
}

// LoadConfig reads the configuration file at path over the defaults. A
// missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration %q: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that cannot be checked by decoding.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "file", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q, want file or postgres", c.Store.Driver)
	}
	switch c.Provider.Name {
	case "yahoo", "eodhd":
	default:
		return fmt.Errorf("unknown provider %q, want yahoo or eodhd", c.Provider.Name)
	}
	return c.Rates().Validate()
}

// Rates returns the FX table: the built-in one updated with the configured rates.
func (c Config) Rates() tally.Rates {
	return tally.DefaultRates().With(c.FX)
}
