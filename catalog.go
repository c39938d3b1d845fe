package mist

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// placeholder substituted into command templates at categorization time.
const instancePlaceholder = "{vm_instance}"

// CommandTemplate is a declarative description of one provisioning command.
// Immutable once loaded.
type CommandTemplate struct {
	// Index orders the command within a target instance's sequence
	Index int `yaml:"index"`
	// Description documents the step; may contain {vm_instance}
	Description string `yaml:"description"`
	// Command is the shell command to run; may contain {vm_instance}
	Command string `yaml:"command"`
	// TargetRole selects which machines the command applies to
	TargetRole string `yaml:"target_role"`
	// Runner selects the runner kind executing the command
	Runner string `yaml:"runner"`
}

// Fill substitutes the instance name into the description and command.
func (t CommandTemplate) Fill(instance string) (string, string) {
	description := strings.ReplaceAll(t.Description, instancePlaceholder, instance)
	command := strings.ReplaceAll(t.Command, instancePlaceholder, instance)

	return description, command
}

// Catalog is an ordered list of command templates. Declaration order breaks
// index ties and decides categorization order.
type Catalog struct {
	Commands []CommandTemplate `yaml:"commands"`
}

// LoadCatalog reads a command catalog from a YAML file and validates each
// entry. Unknown roles and runner kinds fail here, before any command runs.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("reading catalog %q: %w", path, err)
	}

	var c Catalog

	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog %q: %w", path, err)
	}

	if len(c.Commands) == 0 {
		return nil, fmt.Errorf("catalog %q contains no commands", path)
	}

	for i, t := range c.Commands {
		if strings.TrimSpace(t.Command) == "" {
			return nil, fmt.Errorf("catalog %q: entry %d missing command", path, i)
		}

		if _, err := ParseRole(t.TargetRole); err != nil {
			return nil, fmt.Errorf("catalog %q: entry %d: %w", path, i, err)
		}

		if !KnownRunnerKind(t.Runner) {
			return nil, fmt.Errorf("catalog %q: entry %d: %w", path, i, &UnknownRunnerKindError{Kind: t.Runner})
		}
	}

	return &c, nil
}
