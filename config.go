package mist

import "fmt"

// Role classifies a machine within the fleet and selects the categorization
// strategy for templated commands.
type Role string

const (
	RoleManager Role = "manager"
	RoleWorker  Role = "worker"
)

// UnknownRoleError reports a role string with no registered strategy.
type UnknownRoleError struct {
	Role string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q (expected %s or %s)", e.Role, RoleManager, RoleWorker)
}

// ParseRole validates a role string from configuration.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleManager, RoleWorker:
		return Role(s), nil
	}

	return "", &UnknownRoleError{Role: s}
}

// Config defines the configuration for a project.
type Config struct {
	// Machines maps machine names to definitions
	Machines map[string]*MachineConfig
}

// MachineConfig represents the configuration for a virtual machine in a mist fleet.
type MachineConfig struct {
	// Role is the machine's role in the fleet, manager or worker
	Role Role
	// IPAddress is the static address assigned to the machine
	IPAddress string `yaml:"ipaddress" mapstructure:"ipaddress"`
	// Gateway is the default route for the machine's network
	Gateway string
	// Memory is the memory allocation, e.g. "2G"
	Memory string
	// Disk is the disk allocation, e.g. "10G"
	Disk string
	// SSHUser is the login for the ssh runner kind; defaults to "ubuntu"
	SSHUser string `yaml:"ssh_user" mapstructure:"ssh_user"`
	// SSHAddr is the host:port for the ssh runner kind; discovered via
	// mDNS when empty
	SSHAddr string `yaml:"ssh_addr" mapstructure:"ssh_addr"`
}

func (c *MachineConfig) withDefaults() *MachineConfig {
	out := *c

	if out.Role == "" {
		out.Role = RoleManager
	}

	if out.Memory == "" {
		out.Memory = "2G"
	}

	if out.Disk == "" {
		out.Disk = "10G"
	}

	if out.SSHUser == "" {
		out.SSHUser = "ubuntu"
	}

	return &out
}
