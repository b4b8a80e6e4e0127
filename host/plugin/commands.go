package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
)

var (
	// ErrNoExecutor is returned when a declared command is invoked before an
	// executor was bound to it.
	ErrNoExecutor = errors.New("command has no executor")

	// ErrUnknownCommand is returned by Dispatch for undeclared commands.
	ErrUnknownCommand = errors.New("unknown command")
)

// CommandExecutor handles invocations of a declared command.
type CommandExecutor interface {
	Execute(ctx context.Context, inv *Invocation) error
}

// Invocation is one call of a command.
type Invocation struct {
	// Command is the declared command name.
	Command string
	// Label is the name or alias the caller used.
	Label string
	Args  []string
	Out   io.Writer
}

// CommandSlot is a declared command. It exists whether or not an executor
// has been bound to it.
type CommandSlot struct {
	name string
	spec CommandSpec
	cmd  *cobra.Command

	mu       sync.RWMutex
	executor CommandExecutor
}

// Name returns the declared command name.
func (s *CommandSlot) Name() string { return s.name }

// Spec returns the declared metadata.
func (s *CommandSlot) Spec() CommandSpec { return s.spec }

// Executor returns the bound executor, or nil.
func (s *CommandSlot) Executor() CommandExecutor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executor
}

// Bind sets the executor and returns the one it replaced, if any.
func (s *CommandSlot) Bind(exec CommandExecutor) CommandExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.executor
	s.executor = exec
	return prev
}

type labelKey struct{}

func (s *CommandSlot) run(cmd *cobra.Command, args []string) error {
	exec := s.Executor()
	if exec == nil {
		return fmt.Errorf("/%s: %w", s.name, ErrNoExecutor)
	}
	label, _ := cmd.Context().Value(labelKey{}).(string)
	if label == "" {
		label = cmd.CalledAs()
	}
	return exec.Execute(cmd.Context(), &Invocation{
		Command: s.name,
		Label:   label,
		Args:    args,
		Out:     cmd.OutOrStdout(),
	})
}

// Commands is the plugin's table of declared commands, backed by a cobra
// command tree with one subcommand per declaration. Lookups by name or
// alias are case-insensitive.
type Commands struct {
	root   *cobra.Command
	slots  map[string]*CommandSlot
	lookup map[string]*CommandSlot
	logger *slog.Logger

	// dispatchMu serializes use of the shared cobra tree.
	dispatchMu sync.Mutex
}

// NewCommands declares one slot per descriptor command.
func NewCommands(d *Descriptor, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Commands{
		root: &cobra.Command{
			Use:           d.Name,
			Short:         d.Description,
			SilenceUsage:  true,
			SilenceErrors: true,
		},
		slots:  make(map[string]*CommandSlot, len(d.Commands)),
		lookup: make(map[string]*CommandSlot),
		logger: logger,
	}
	c.root.CompletionOptions.DisableDefaultCmd = true

	for _, name := range d.CommandNames() {
		spec := d.Commands[name]
		slot := &CommandSlot{name: name, spec: spec}
		use := name
		if spec.Usage != "" {
			use = name + " " + spec.Usage
		}
		slot.cmd = &cobra.Command{
			Use:                use,
			Short:              spec.Description,
			Aliases:            spec.Aliases,
			Args:               cobra.ArbitraryArgs,
			DisableFlagParsing: true,
			RunE:               slot.run,
		}
		if spec.Permission != "" {
			slot.cmd.Annotations = map[string]string{"permission": spec.Permission}
		}
		c.root.AddCommand(slot.cmd)
		if name == "help" {
			c.root.SetHelpCommand(slot.cmd)
		}

		c.slots[name] = slot
		c.lookup[name] = slot
		for _, alias := range spec.Aliases {
			c.lookup[alias] = slot
		}
	}
	return c
}

// Root returns the cobra command tree.
func (c *Commands) Root() *cobra.Command { return c.root }

// Slot resolves a command name or alias.
func (c *Commands) Slot(label string) (*CommandSlot, bool) {
	slot, ok := c.lookup[strings.ToLower(strings.TrimPrefix(label, "/"))]
	return slot, ok
}

// BindSlot binds exec to the declared command name. It reports false when no
// such command is declared and never declares new commands.
func (c *Commands) BindSlot(name string, exec CommandExecutor) (bool, error) {
	if exec == nil {
		return false, fmt.Errorf("bind /%s: %w", name, ErrNoExecutor)
	}
	slot, ok := c.Slot(name)
	if !ok {
		return false, nil
	}
	if prev := slot.Bind(exec); prev != nil {
		c.logger.Warn("Replacing command executor", "command", slot.name,
			"previous", fmt.Sprintf("%T", prev), "executor", fmt.Sprintf("%T", exec))
	}
	return true, nil
}

// Names returns the declared command names, sorted.
func (c *Commands) Names() []string {
	names := make([]string, 0, len(c.slots))
	for name := range c.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unbound returns the declared commands that have no executor, sorted.
func (c *Commands) Unbound() []string {
	var names []string
	for _, name := range c.Names() {
		if c.slots[name].Executor() == nil {
			names = append(names, name)
		}
	}
	return names
}

// Dispatch runs a command line such as "/ping a b" or "ping a b".
func (c *Commands) Dispatch(ctx context.Context, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty command line", ErrUnknownCommand)
	}
	label := strings.TrimPrefix(fields[0], "/")
	slot, ok := c.Slot(label)
	if !ok {
		return fmt.Errorf("%w: /%s", ErrUnknownCommand, label)
	}

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	ctx = context.WithValue(ctx, labelKey{}, label)
	// cobra only hands the root context to a subcommand that has none yet.
	slot.cmd.SetContext(ctx)
	c.root.SetArgs(append([]string{slot.name}, fields[1:]...))
	c.root.SetOut(out)
	c.root.SetErr(out)
	return c.root.ExecuteContext(ctx)
}
