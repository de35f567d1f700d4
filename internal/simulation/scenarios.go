// Package simulation seeds a Compere deployment with demo scenarios and
// random comparisons, and formats ratings for display.
package simulation

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/raphaelgruber/compere-go/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed scenarios.yaml
var builtinYAML []byte

// Scenario is a named dataset of entities to seed.
type Scenario struct {
	Key         string               `yaml:"key"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Icon        string               `yaml:"icon"`
	Entities    []models.EntityInput `yaml:"entities"`
}

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

var builtin = mustParse(builtinYAML)

func mustParse(data []byte) []Scenario {
	scenarios, err := ParseScenarios(data)
	if err != nil {
		panic(fmt.Sprintf("simulation: embedded scenarios: %v", err))
	}
	return scenarios
}

// Scenarios returns the built-in scenarios in display order.
func Scenarios() []Scenario {
	out := make([]Scenario, len(builtin))
	for i, s := range builtin {
		out[i] = s.clone()
	}
	return out
}

// Lookup returns the built-in scenario with the given key.
func Lookup(key string) (Scenario, bool) {
	for _, s := range builtin {
		if s.Key == key {
			return s.clone(), true
		}
	}
	return Scenario{}, false
}

// Keys lists the built-in scenario keys.
func Keys() []string {
	keys := make([]string, len(builtin))
	for i, s := range builtin {
		keys[i] = s.Key
	}
	return keys
}

// ParseScenarios decodes a scenarios document. Every scenario needs a key and
// keys must be unique.
func ParseScenarios(data []byte) ([]Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}

	seen := make(map[string]bool, len(f.Scenarios))
	for i, s := range f.Scenarios {
		if s.Key == "" {
			return nil, fmt.Errorf("parse scenarios: scenario %d has no key", i)
		}
		if seen[s.Key] {
			return nil, fmt.Errorf("parse scenarios: duplicate key %q", s.Key)
		}
		seen[s.Key] = true
	}
	return f.Scenarios, nil
}

// LoadScenarioFile reads scenarios from a YAML file with the same layout as
// the built-in set.
func LoadScenarioFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenarios(data)
}

func (s Scenario) clone() Scenario {
	entities := make([]models.EntityInput, len(s.Entities))
	for i, e := range s.Entities {
		e.ImageURLs = append([]string(nil), e.ImageURLs...)
		entities[i] = e
	}
	s.Entities = entities
	return s
}
