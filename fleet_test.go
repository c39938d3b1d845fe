package mist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFleet(t *testing.T) {
	t.Run("applies machine defaults", func(t *testing.T) {
		fleet, err := NewFleet(&Config{Machines: map[string]*MachineConfig{
			"mgr-1": {Role: RoleManager, IPAddress: "10.0.0.5"},
		}})

		require.NoError(t, err)

		m, ok := fleet.Machine("mgr-1")

		require.True(t, ok)
		assert.Equal(t, "2G", m.Conf.Memory)
		assert.Equal(t, "10G", m.Conf.Disk)
		assert.Equal(t, "ubuntu", m.Conf.SSHUser)
	})

	t.Run("rejects invalid roles", func(t *testing.T) {
		_, err := NewFleet(&Config{Machines: map[string]*MachineConfig{
			"x": {Role: "overseer"},
		}})

		var roleErr *UnknownRoleError

		require.ErrorAs(t, err, &roleErr)
	})

	t.Run("lookup by role is sorted by name", func(t *testing.T) {
		fleet, err := NewFleet(&Config{Machines: map[string]*MachineConfig{
			"wrk-2": {Role: RoleWorker},
			"wrk-1": {Role: RoleWorker},
			"mgr-1": {Role: RoleManager},
		}})

		require.NoError(t, err)
		assert.Equal(t, []string{"wrk-1", "wrk-2"}, fleet.InstancesByRole(RoleWorker))
		assert.Equal(t, []string{"mgr-1"}, fleet.InstancesByRole(RoleManager))
		assert.Empty(t, fleet.InstancesByRole("overseer"))
	})
}

func TestLoadFleet(t *testing.T) {
	t.Run("reads a fleet file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fleet.yaml")

		require.NoError(t, os.WriteFile(path, []byte(`
machines:
  mgr-1:
    role: manager
    ipaddress: 10.0.0.5
    gateway: 10.0.0.1
  wrk-1:
    role: worker
    ipaddress: 10.0.0.6
    gateway: 10.0.0.1
    memory: 4G
`), 0o644))

		fleet, err := LoadFleet(path)

		require.NoError(t, err)
		require.Len(t, fleet.Machines(), 2)

		m, ok := fleet.Machine("wrk-1")

		require.True(t, ok)
		assert.Equal(t, RoleWorker, m.Conf.Role)
		assert.Equal(t, "10.0.0.6", m.Conf.IPAddress)
		assert.Equal(t, "4G", m.Conf.Memory)
	})

	t.Run("empty fleet file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fleet.yaml")

		require.NoError(t, os.WriteFile(path, []byte("machines: {}\n"), 0o644))

		_, err := LoadFleet(path)

		assert.ErrorContains(t, err, "no machines")
	})
}
