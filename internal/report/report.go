// Package report writes an optional machine-readable YAML summary of a
// completed simulation run, supplementing (not replacing) the mandatory
// stdout retirement table and statistics block.
package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/archlab/procsim/internal/simulator"
)

// Document is the YAML report's shape.
type Document struct {
	Statistics simulator.Statistics           `yaml:"statistics"`
	Retired    []simulator.RetiredInstruction `yaml:"retired"`
}

// Write marshals stats and table to path as YAML.
func Write(path string, stats simulator.Statistics, table []simulator.RetiredInstruction) error {
	doc := Document{Statistics: stats, Retired: table}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
