package mist

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/mdns"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Runner kinds selectable from a command catalog.
const (
	RunnerLocal = "local"
	RunnerSSH   = "ssh"
)

// UnknownRunnerKindError reports a runner kind tag with no implementation.
type UnknownRunnerKindError struct {
	Kind string
}

func (e *UnknownRunnerKindError) Error() string {
	return fmt.Sprintf("unknown runner kind %q (expected %s or %s)", e.Kind, RunnerLocal, RunnerSSH)
}

// KnownRunnerKind reports whether kind names a runner implementation.
func KnownRunnerKind(kind string) bool {
	return kind == RunnerLocal || kind == RunnerSSH
}

// Runner executes a single resolved shell command for one instance, streaming
// combined output to out.
type Runner interface {
	Run(ctx context.Context, command string, out io.Writer) error
}

// RunnerFactory hands out runners by kind tag. Instance details for the ssh
// kind come from the fleet directory.
type RunnerFactory struct {
	fleet *Fleet
}

func NewRunnerFactory(fleet *Fleet) *RunnerFactory {
	return &RunnerFactory{
		fleet: fleet,
	}
}

// Runner returns the runner implementing kind for the given instance.
func (f *RunnerFactory) Runner(kind string, instance string) (Runner, error) {
	switch kind {
	case RunnerLocal:
		return &localRunner{}, nil
	case RunnerSSH:
		m, ok := f.fleet.Machine(instance)

		if !ok {
			return nil, fmt.Errorf("instance %q not in fleet", instance)
		}

		return &sshRunner{
			instance: instance,
			addr:     m.Conf.SSHAddr,
			user:     m.Conf.SSHUser,
		}, nil
	}

	return nil, &UnknownRunnerKindError{Kind: kind}
}

// localRunner shells out on the host running mist.
type localRunner struct{}

func (r *localRunner) Run(ctx context.Context, command string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	if out != nil {
		cmd.Stdout = out
		cmd.Stderr = out
	}

	log.Debug("Running local command", "command", command)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("executing local command: %w", err)
	}

	return nil
}

// sshRunner runs commands on the instance over SSH. The address is taken
// from the fleet entry or discovered over mDNS from the instance's SSH
// service advertisement.
type sshRunner struct {
	instance string
	addr     string
	user     string
}

func (r *sshRunner) Run(ctx context.Context, command string, out io.Writer) error {
	addr := r.addr

	if addr == "" {
		found, err := discoverSSHAddr(ctx, r.instance)

		if err != nil {
			return err
		}

		addr = found
	}

	sock, err := net.Dial("unix", os.Getenv("SSH_AUTH_SOCK"))

	if err != nil {
		return fmt.Errorf("dialing SSH agent: %w", err)
	}

	defer sock.Close()

	ag := agent.NewClient(sock)

	config := &ssh.ClientConfig{
		User: r.user,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeysCallback(ag.Signers),
		},
		// TODO: pin host keys recorded at first provision
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	log.Debug("Dialing SSH daemon", "instance", r.instance, "addr", addr, "user", r.user)

	client, err := ssh.Dial("tcp", addr, config)

	if err != nil {
		return fmt.Errorf("dialing %q: %w", addr, err)
	}

	defer client.Close()

	session, err := client.NewSession()

	if err != nil {
		return fmt.Errorf("creating SSH session: %w", err)
	}

	defer session.Close()

	if out != nil {
		session.Stdout = out
		session.Stderr = out
	}

	if err := session.Run(command); err != nil {
		return fmt.Errorf("running command on %q: %w", r.instance, err)
	}

	return nil
}

// discoverSSHAddr finds the instance's SSH endpoint from its mDNS service
// advertisement, matching the mist=<instance> info field.
func discoverSSHAddr(ctx context.Context, instance string) (string, error) {
	entriesCh := make(chan *mdns.ServiceEntry, 8)

	entryCh := make(chan *mdns.ServiceEntry, 1)

	go func() {
		for entry := range entriesCh {
			for _, f := range entry.InfoFields {
				if f == fmt.Sprintf("mist=%s", instance) {
					entryCh <- entry

					return
				}
			}
		}
	}()

	if err := mdns.Lookup("_ssh._tcp", entriesCh); err != nil {
		close(entriesCh)

		return "", fmt.Errorf("mdns lookup for %q: %w", instance, err)
	}

	close(entriesCh)

	select {
	case entry := <-entryCh:
		host := entry.AddrV4.String()

		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}

		return fmt.Sprintf("%s:%d", host, entry.Port), nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(time.Second):
		return "", fmt.Errorf("no SSH advertisement found for %q", instance)
	}
}
