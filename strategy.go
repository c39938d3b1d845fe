package mist

import (
	"sort"

	"github.com/charmbracelet/log"
)

// ResolvedCommand is an instance-bound command ready for execution. It is
// never mutated after categorization.
type ResolvedCommand struct {
	Instance    string
	Index       int
	Description string
	Command     string
	Runner      Runner
}

// Plan maps instance name to command index to resolved command. It is built
// single-threaded by repeated strategy invocations and read-only once handed
// to the executor.
type Plan map[string]map[int]ResolvedCommand

// insert places a resolved command into its instance's row. Two templates
// resolving to the same instance and index do not both survive: the later
// categorization replaces the earlier one, so within an index the catalog's
// last declaration wins.
func (p Plan) insert(rc ResolvedCommand) {
	row, ok := p[rc.Instance]

	if !ok {
		row = map[int]ResolvedCommand{}
		p[rc.Instance] = row
	}

	row[rc.Index] = rc
}

// Instances returns the plan's instance names in sorted order.
func (p Plan) Instances() []string {
	names := make([]string, 0, len(p))

	for name := range p {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Sequence returns one instance's commands in ascending index order.
func (p Plan) Sequence(instance string) []ResolvedCommand {
	row := p[instance]

	cmds := make([]ResolvedCommand, 0, len(row))

	for _, rc := range row {
		cmds = append(cmds, rc)
	}

	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].Index < cmds[j].Index
	})

	return cmds
}

// Strategy resolves a command template against the fleet for one role,
// accumulating resolved commands into the plan.
type Strategy interface {
	Categorize(t CommandTemplate, plan Plan) error
}

// managerStrategy resolves a template against the single manager instance.
// A fleet with zero or several managers produces no entry for the template.
type managerStrategy struct {
	fleet   *Fleet
	runners *RunnerFactory
}

func (s *managerStrategy) Categorize(t CommandTemplate, plan Plan) error {
	names := s.fleet.InstancesByRole(RoleManager)

	if len(names) != 1 {
		log.Warn("Skipping manager command, fleet has no single manager", "command", t.Command, "managers", len(names))

		return nil
	}

	return resolveInto(t, names[0], s.runners, plan)
}

// workerStrategy resolves a template once per worker instance.
type workerStrategy struct {
	fleet   *Fleet
	runners *RunnerFactory
}

func (s *workerStrategy) Categorize(t CommandTemplate, plan Plan) error {
	for _, name := range s.fleet.InstancesByRole(RoleWorker) {
		if err := resolveInto(t, name, s.runners, plan); err != nil {
			return err
		}
	}

	return nil
}

func resolveInto(t CommandTemplate, instance string, runners *RunnerFactory, plan Plan) error {
	runner, err := runners.Runner(t.Runner, instance)

	if err != nil {
		return err
	}

	description, command := t.Fill(instance)

	plan.insert(ResolvedCommand{
		Instance:    instance,
		Index:       t.Index,
		Description: description,
		Command:     command,
		Runner:      runner,
	})

	return nil
}

// CommandBuilder turns a command catalog into an execution plan by
// dispatching each template to the strategy for its target role.
type CommandBuilder struct {
	catalog    *Catalog
	strategies map[Role]Strategy
}

func NewCommandBuilder(catalog *Catalog, fleet *Fleet, runners *RunnerFactory) *CommandBuilder {
	return &CommandBuilder{
		catalog: catalog,
		strategies: map[Role]Strategy{
			RoleManager: &managerStrategy{fleet: fleet, runners: runners},
			RoleWorker:  &workerStrategy{fleet: fleet, runners: runners},
		},
	}
}

// CommandList categorizes every catalog template in declaration order and
// returns the accumulated plan. Unknown roles and runner kinds fail the
// whole build; they are configuration defects, not runtime conditions.
func (b *CommandBuilder) CommandList() (Plan, error) {
	plan := Plan{}

	for _, t := range b.catalog.Commands {
		role, err := ParseRole(t.TargetRole)

		if err != nil {
			return nil, err
		}

		strategy, ok := b.strategies[role]

		if !ok {
			return nil, &UnknownRoleError{Role: t.TargetRole}
		}

		if err := strategy.Categorize(t, plan); err != nil {
			return nil, err
		}
	}

	return plan, nil
}
