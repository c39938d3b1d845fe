package mist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// ConfigPersistenceError wraps a failure to read or write a configuration
// document, carrying the target name and the underlying cause.
type ConfigPersistenceError struct {
	Target string
	Err    error
}

func (e *ConfigPersistenceError) Error() string {
	return fmt.Sprintf("persisting config %q: %v", e.Target, e.Err)
}

func (e *ConfigPersistenceError) Unwrap() error {
	return e.Err
}

// default nameservers injected into generated netplan documents.
var defaultNameservers = []any{"8.8.8.8", "8.8.4.4"}

// NetplanRepository builds and persists netplan network documents for fleet
// machines.
type NetplanRepository struct {
	dir   string
	iface string
}

// NewNetplanRepository allocates a repository writing documents under dir.
func NewNetplanRepository(dir string) *NetplanRepository {
	return &NetplanRepository{
		dir:   dir,
		iface: "ens3",
	}
}

// Document builds the netplan tree for one machine: static address with a
// default route via the machine's gateway and public nameservers.
func (r *NetplanRepository) Document(m Machine) *Builder {
	log.Debug("Building netplan document", "machine", m.Name, "address", m.Conf.IPAddress)

	return NewBuilder("network").
		AddChild("version", 2, true).
		AddChild("renderer", "networkd", true).
		AddChild("ethernets", nil, false).
		AddChild(r.iface, nil, false).
		AddChild("dhcp4", "no", true).
		AddChild("addresses", []any{fmt.Sprintf("%s/24", m.Conf.IPAddress)}, true).
		AddChild("routes", []any{map[string]any{"to": "0.0.0.0/0", "via": m.Conf.Gateway}}, true).
		AddChild("nameservers", nil, false).
		AddChild("addresses", defaultNameservers, true)
}

func (r *NetplanRepository) path(name string) string {
	return filepath.Join(r.dir, name+".yaml")
}

// Save renders and writes the machine's netplan document.
func (r *NetplanRepository) Save(m Machine) error {
	doc, err := r.Document(m).ToYAML()

	if err != nil {
		return &ConfigPersistenceError{Target: m.Name, Err: err}
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return &ConfigPersistenceError{Target: m.Name, Err: err}
	}

	path := r.path(m.Name)

	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return &ConfigPersistenceError{Target: m.Name, Err: err}
	}

	log.Debug("Saved netplan document", "machine", m.Name, "path", path)

	return nil
}

// Load reads a machine's previously saved netplan document back into a tree.
func (r *NetplanRepository) Load(name string) (*Builder, error) {
	b, err := os.ReadFile(r.path(name))

	if err != nil {
		return nil, &ConfigPersistenceError{Target: name, Err: err}
	}

	builder := NewBuilder("network")

	if err := builder.LoadFromString(string(b)); err != nil {
		return nil, &ConfigPersistenceError{Target: name, Err: err}
	}

	return builder, nil
}

// SaveAll writes documents for every machine in the fleet concurrently.
// The first failure stops the batch.
func (r *NetplanRepository) SaveAll(ctx context.Context, fleet *Fleet) error {
	eg, _ := errgroup.WithContext(ctx)

	for _, m := range fleet.Machines() {
		m := m

		eg.Go(func() error {
			return r.Save(m)
		})
	}

	return eg.Wait()
}
