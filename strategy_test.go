package mist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFleet(t *testing.T, roles map[string]Role) *Fleet {
	t.Helper()

	conf := &Config{Machines: map[string]*MachineConfig{}}

	for name, role := range roles {
		conf.Machines[name] = &MachineConfig{Role: role}
	}

	fleet, err := NewFleet(conf)

	require.NoError(t, err)

	return fleet
}

func TestManagerStrategy(t *testing.T) {
	tmpl := CommandTemplate{
		Index:       3,
		Description: "greet {vm_instance}",
		Command:     "echo {vm_instance}",
		TargetRole:  "manager",
		Runner:      RunnerLocal,
	}

	t.Run("exactly one manager resolves the template", func(t *testing.T) {
		fleet := testFleet(t, map[string]Role{"mgr-1": RoleManager, "wrk-1": RoleWorker})

		s := &managerStrategy{fleet: fleet, runners: NewRunnerFactory(fleet)}

		plan := Plan{}

		require.NoError(t, s.Categorize(tmpl, plan))

		rc, ok := plan["mgr-1"][3]

		require.True(t, ok)
		assert.Equal(t, "echo mgr-1", rc.Command)
		assert.Equal(t, "greet mgr-1", rc.Description)
		assert.Equal(t, "mgr-1", rc.Instance)
		assert.NotNil(t, rc.Runner)
	})

	t.Run("zero managers produce no entry", func(t *testing.T) {
		fleet := testFleet(t, map[string]Role{"wrk-1": RoleWorker})

		s := &managerStrategy{fleet: fleet, runners: NewRunnerFactory(fleet)}

		plan := Plan{}

		require.NoError(t, s.Categorize(tmpl, plan))
		assert.Empty(t, plan)
	})

	t.Run("two managers produce no entry", func(t *testing.T) {
		fleet := testFleet(t, map[string]Role{"mgr-1": RoleManager, "mgr-2": RoleManager})

		s := &managerStrategy{fleet: fleet, runners: NewRunnerFactory(fleet)}

		plan := Plan{}

		require.NoError(t, s.Categorize(tmpl, plan))
		assert.Empty(t, plan)
	})
}

func TestWorkerStrategy(t *testing.T) {
	fleet := testFleet(t, map[string]Role{
		"mgr-1": RoleManager,
		"wrk-1": RoleWorker,
		"wrk-2": RoleWorker,
	})

	s := &workerStrategy{fleet: fleet, runners: NewRunnerFactory(fleet)}

	plan := Plan{}

	tmpl := CommandTemplate{
		Index:       1,
		Description: "join {vm_instance}",
		Command:     "swarm join {vm_instance}",
		TargetRole:  "worker",
		Runner:      RunnerLocal,
	}

	require.NoError(t, s.Categorize(tmpl, plan))

	assert.Equal(t, []string{"wrk-1", "wrk-2"}, plan.Instances())
	assert.Equal(t, "swarm join wrk-1", plan["wrk-1"][1].Command)
	assert.Equal(t, "swarm join wrk-2", plan["wrk-2"][1].Command)
}

func TestCommandBuilder(t *testing.T) {
	fleet := testFleet(t, map[string]Role{
		"mgr-1": RoleManager,
		"wrk-1": RoleWorker,
	})

	t.Run("accumulates one plan across templates", func(t *testing.T) {
		catalog := &Catalog{Commands: []CommandTemplate{
			{Index: 2, Description: "b", Command: "echo b on {vm_instance}", TargetRole: "manager", Runner: RunnerLocal},
			{Index: 1, Description: "a", Command: "echo a on {vm_instance}", TargetRole: "manager", Runner: RunnerLocal},
			{Index: 1, Description: "w", Command: "echo w on {vm_instance}", TargetRole: "worker", Runner: RunnerLocal},
		}}

		builder := NewCommandBuilder(catalog, fleet, NewRunnerFactory(fleet))

		plan, err := builder.CommandList()

		require.NoError(t, err)
		require.Equal(t, []string{"mgr-1", "wrk-1"}, plan.Instances())

		seq := plan.Sequence("mgr-1")

		require.Len(t, seq, 2)
		assert.Equal(t, 1, seq[0].Index)
		assert.Equal(t, 2, seq[1].Index)

		assert.Len(t, plan.Sequence("wrk-1"), 1)
	})

	t.Run("unknown role fails the build", func(t *testing.T) {
		catalog := &Catalog{Commands: []CommandTemplate{
			{Index: 1, Command: "echo", TargetRole: "overseer", Runner: RunnerLocal},
		}}

		builder := NewCommandBuilder(catalog, fleet, NewRunnerFactory(fleet))

		_, err := builder.CommandList()

		var roleErr *UnknownRoleError

		require.ErrorAs(t, err, &roleErr)
		assert.Equal(t, "overseer", roleErr.Role)
	})

	t.Run("unknown runner kind fails the build", func(t *testing.T) {
		catalog := &Catalog{Commands: []CommandTemplate{
			{Index: 1, Command: "echo", TargetRole: "manager", Runner: "teleport"},
		}}

		builder := NewCommandBuilder(catalog, fleet, NewRunnerFactory(fleet))

		_, err := builder.CommandList()

		var kindErr *UnknownRunnerKindError

		require.ErrorAs(t, err, &kindErr)
		assert.Equal(t, "teleport", kindErr.Kind)
	})
}

func TestPlanInsertSameIndex(t *testing.T) {
	plan := Plan{}

	plan.insert(ResolvedCommand{Instance: "a", Index: 1, Command: "first"})
	plan.insert(ResolvedCommand{Instance: "a", Index: 1, Command: "second"})

	seq := plan.Sequence("a")

	require.Len(t, seq, 1)
	assert.Equal(t, "second", seq[0].Command)
}

func TestPlanSequenceOrder(t *testing.T) {
	plan := Plan{}

	for _, i := range []int{5, 1, 3} {
		plan.insert(ResolvedCommand{Instance: "a", Index: i})
	}

	seq := plan.Sequence("a")

	require.Len(t, seq, 3)
	assert.Equal(t, 1, seq[0].Index)
	assert.Equal(t, 3, seq[1].Index)
	assert.Equal(t, 5, seq[2].Index)
}
