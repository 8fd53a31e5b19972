// Package replay implements the ReplayExecutor for deterministic offline
// workflow runs using pre-recorded command results and prompt answers.
package replay

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a replay file: the command results and prompt answers of a
// previous run, in the order they happened.
type Scenario struct {
	Workflow string            `yaml:"workflow,omitempty"`
	Commands []ScenarioCommand `yaml:"commands"`
	Answers  []string          `yaml:"answers,omitempty"`
}

// ScenarioCommand is a pre-recorded command with its output.
type ScenarioCommand struct {
	Command  string `yaml:"command"`
	Stdout   string `yaml:"stdout"`
	Stderr   string `yaml:"stderr"`
	ExitCode int    `yaml:"exit_code"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Commands) == 0 && len(s.Answers) == 0 {
		return nil, fmt.Errorf("scenario must have at least one command or answer")
	}
	return &s, nil
}

// Save writes the scenario as YAML.
func (s *Scenario) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scenario file: %w", err)
	}
	return nil
}
