package mist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.yaml")

	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadCatalog(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		path := writeCatalog(t, `
commands:
  - index: 1
    description: "install docker on {vm_instance}"
    command: "multipass exec {vm_instance} -- sudo snap install docker"
    target_role: manager
    runner: local
  - index: 2
    description: "join {vm_instance} to the swarm"
    command: "docker swarm join"
    target_role: worker
    runner: ssh
`)

		c, err := LoadCatalog(path)

		require.NoError(t, err)
		require.Len(t, c.Commands, 2)
		assert.Equal(t, 1, c.Commands[0].Index)
		assert.Equal(t, "manager", c.Commands[0].TargetRole)
		assert.Equal(t, RunnerSSH, c.Commands[1].Runner)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))

		assert.Error(t, err)
	})

	t.Run("empty catalog", func(t *testing.T) {
		_, err := LoadCatalog(writeCatalog(t, "commands: []\n"))

		assert.ErrorContains(t, err, "no commands")
	})

	t.Run("entry without a command", func(t *testing.T) {
		_, err := LoadCatalog(writeCatalog(t, `
commands:
  - index: 1
    target_role: manager
    runner: local
`))

		assert.ErrorContains(t, err, "missing command")
	})

	t.Run("unknown role fails fast", func(t *testing.T) {
		_, err := LoadCatalog(writeCatalog(t, `
commands:
  - index: 1
    command: "echo"
    target_role: overseer
    runner: local
`))

		var roleErr *UnknownRoleError

		require.ErrorAs(t, err, &roleErr)
		assert.Equal(t, "overseer", roleErr.Role)
	})

	t.Run("unknown runner kind fails fast", func(t *testing.T) {
		_, err := LoadCatalog(writeCatalog(t, `
commands:
  - index: 1
    command: "echo"
    target_role: manager
    runner: carrier-pigeon
`))

		var kindErr *UnknownRunnerKindError

		require.ErrorAs(t, err, &kindErr)
		assert.Equal(t, "carrier-pigeon", kindErr.Kind)
	})
}

func TestCommandTemplateFill(t *testing.T) {
	tmpl := CommandTemplate{
		Description: "greet {vm_instance}",
		Command:     "echo hello from {vm_instance} to {vm_instance}",
	}

	description, command := tmpl.Fill("mgr-1")

	assert.Equal(t, "greet mgr-1", description)
	assert.Equal(t, "echo hello from mgr-1 to mgr-1", command)
}
