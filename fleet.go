package mist

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Machine is a fleet machine entry with its resolved name.
type Machine struct {
	Name string
	Conf *MachineConfig
}

// Fleet is a read-only directory of the known machines, looked up by name or
// role. Machines are kept in name order so categorization is deterministic.
type Fleet struct {
	machines []Machine
}

// NewFleet builds a fleet directory from a project configuration, applying
// per-machine defaults and validating roles.
func NewFleet(conf *Config) (*Fleet, error) {
	f := &Fleet{}

	for name, mc := range conf.Machines {
		if name == "" {
			return nil, fmt.Errorf("machine name cannot be empty")
		}

		if mc == nil {
			mc = &MachineConfig{}
		}

		mc = mc.withDefaults()

		if _, err := ParseRole(string(mc.Role)); err != nil {
			return nil, fmt.Errorf("machine %q: %w", name, err)
		}

		f.machines = append(f.machines, Machine{Name: name, Conf: mc})
	}

	sort.Slice(f.machines, func(i, j int) bool {
		return f.machines[i].Name < f.machines[j].Name
	})

	return f, nil
}

// LoadFleet reads a fleet definition from a YAML file.
func LoadFleet(path string) (*Fleet, error) {
	b, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("reading fleet file %q: %w", path, err)
	}

	var conf Config

	if err := yaml.Unmarshal(b, &conf); err != nil {
		return nil, fmt.Errorf("parsing fleet file %q: %w", path, err)
	}

	if len(conf.Machines) == 0 {
		return nil, fmt.Errorf("fleet file %q contains no machines", path)
	}

	return NewFleet(&conf)
}

// Machines returns all machines in name order.
func (f *Fleet) Machines() []Machine {
	return f.machines
}

// Machine looks up a machine by name.
func (f *Fleet) Machine(name string) (Machine, bool) {
	for _, m := range f.machines {
		if m.Name == name {
			return m, true
		}
	}

	return Machine{}, false
}

// InstancesByRole returns the names of all machines with the given role, in
// name order.
func (f *Fleet) InstancesByRole(role Role) []string {
	var names []string

	for _, m := range f.machines {
		if m.Conf.Role == role {
			names = append(names, m.Name)
		}
	}

	return names
}
