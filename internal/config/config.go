// Package config loads and validates the simulator's structural parameters:
// register-file size, result-bus count, fetch rate, and the three
// functional-unit pool sizes. Defaults load from an optional YAML file and
// are then overridden by CLI flags in cmd/procsim.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the engine's structural parameters.
type Config struct {
	NumRegs int `yaml:"numRegs"`
	R       int `yaml:"resultBuses"` // number of result buses / state-update slots
	F       int `yaml:"fetchRate"`   // instructions fetched/admitted per cycle
	K0Size  int `yaml:"k0Size"`      // k0 functional-unit pool capacity
	K1Size  int `yaml:"k1Size"`      // k1 functional-unit pool capacity
	K2Size  int `yaml:"k2Size"`      // k2 functional-unit pool capacity
}

// MaxSchedQueue returns the scheduling queue's bound: 2*(k0+k1+k2).
func (c *Config) MaxSchedQueue() int {
	return 2 * (c.K0Size + c.K1Size + c.K2Size)
}

// DefaultConfig returns the simulator's built-in defaults, matching the
// source simulator's DEFAULT_R/F/J/K/L constants and its fixed 128-entry
// register file.
func DefaultConfig() *Config {
	return &Config{
		NumRegs: 128,
		R:       2,
		F:       4,
		K0Size:  3,
		K1Size:  2,
		K2Size:  1,
	}
}

// LoadConfig loads a YAML configuration file and validates it. An empty
// path returns DefaultConfig() unmodified.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validateConfig rejects non-positive structural parameters.
func validateConfig(cfg *Config) error {
	if cfg.NumRegs <= 0 {
		return fmt.Errorf("number of registers must be positive")
	}
	if cfg.R <= 0 {
		return fmt.Errorf("number of result buses must be positive")
	}
	if cfg.F <= 0 {
		return fmt.Errorf("fetch rate must be positive")
	}
	if cfg.K0Size <= 0 || cfg.K1Size <= 0 || cfg.K2Size <= 0 {
		return fmt.Errorf("functional unit pool sizes must be positive")
	}
	return nil
}
