package demo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AddCall is one pair of operands for the add tool.
type AddCall struct {
	A int `yaml:"a"`
	B int `yaml:"b"`
}

// Plan lists the independent operations a run performs.
type Plan struct {
	Adds  []AddCall `yaml:"adds"`
	Names []string  `yaml:"names"`
}

// DefaultPlan returns the stock operations: add(15, 27), add(100, 50) and
// greetings for Alice, Bob and World.
func DefaultPlan() Plan {
	return Plan{
		Adds:  []AddCall{{A: 15, B: 27}, {A: 100, B: 50}},
		Names: []string{"Alice", "Bob", "World"},
	}
}

// LoadPlan reads a YAML plan from path. Sections missing from the file keep
// their defaults.
func LoadPlan(path string) (Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	var p Plan
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Plan{}, fmt.Errorf("parse plan %s: %w", path, err)
	}
	def := DefaultPlan()
	if p.Adds == nil {
		p.Adds = def.Adds
	}
	if p.Names == nil {
		p.Names = def.Names
	}
	return p, nil
}
