package mist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMachine() Machine {
	return Machine{
		Name: "mgr-1",
		Conf: &MachineConfig{
			Role:      RoleManager,
			IPAddress: "10.0.0.5",
			Gateway:   "10.0.0.1",
		},
	}
}

func TestNetplanDocument(t *testing.T) {
	repo := NewNetplanRepository(t.TempDir())

	doc := repo.Document(testMachine()).Build()

	network, ok := doc["network"].(map[string]any)

	require.True(t, ok)
	assert.Equal(t, 2, network["version"])
	assert.Equal(t, "networkd", network["renderer"])

	ens3 := network["ethernets"].(map[string]any)["ens3"].(map[string]any)

	assert.Equal(t, "no", ens3["dhcp4"])
	assert.Equal(t, []any{"10.0.0.5/24"}, ens3["addresses"])
	assert.Equal(t, []any{map[string]any{"to": "0.0.0.0/0", "via": "10.0.0.1"}}, ens3["routes"])

	nameservers := ens3["nameservers"].(map[string]any)

	assert.Equal(t, []any{"8.8.8.8", "8.8.4.4"}, nameservers["addresses"])
}

func TestNetplanSaveLoad(t *testing.T) {
	dir := t.TempDir()

	repo := NewNetplanRepository(dir)

	m := testMachine()

	require.NoError(t, repo.Save(m))

	loaded, err := repo.Load(m.Name)

	require.NoError(t, err)
	assert.Equal(t, repo.Document(m).Build(), loaded.Build())
}

func TestNetplanLoadMissing(t *testing.T) {
	repo := NewNetplanRepository(t.TempDir())

	_, err := repo.Load("ghost")

	var persistErr *ConfigPersistenceError

	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "ghost", persistErr.Target)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNetplanSaveAll(t *testing.T) {
	dir := t.TempDir()

	repo := NewNetplanRepository(dir)

	fleet := testFleet(t, map[string]Role{"mgr-1": RoleManager, "wrk-1": RoleWorker})

	require.NoError(t, repo.SaveAll(context.Background(), fleet))

	for _, name := range []string{"mgr-1", "wrk-1"} {
		_, err := os.Stat(filepath.Join(dir, name+".yaml"))

		assert.NoError(t, err)
	}
}
