package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/c360studio/semwire/catalog"
	"github.com/c360studio/semwire/host/plugin"
)

// ErrNotDevServer is returned when the debug command is built outside dev mode.
var ErrNotDevServer = errors.New("debug command requires a development server")

// DebugCommand implements /debug for inspecting the host on development servers.
//
//semwire:command debug dev
type DebugCommand struct {
	plugin  *plugin.Plugin
	catalog *catalog.Catalog
}

// NewDebugCommand creates the debug command.
func NewDebugCommand(p *plugin.Plugin) (*DebugCommand, error) {
	if !p.DevMode() {
		return nil, ErrNotDevServer
	}
	return &DebugCommand{plugin: p, catalog: catalog.Default}, nil
}

// Execute runs a debug subcommand.
func (c *DebugCommand) Execute(ctx context.Context, inv *plugin.Invocation) error {
	if len(inv.Args) < 1 {
		return c.showHelp(inv)
	}

	switch strings.ToLower(inv.Args[0]) {
	case "catalog":
		return c.showCatalog(ctx, inv)
	case "slots":
		return c.showSlots(inv)
	case "plugin":
		return c.showPlugin(inv)
	default:
		return c.showHelp(inv)
	}
}

func (c *DebugCommand) showHelp(inv *plugin.Invocation) error {
	_, err := fmt.Fprintf(inv.Out, "Usage: /%s catalog|slots|plugin\n", inv.Label)
	return err
}

func (c *DebugCommand) showCatalog(ctx context.Context, inv *plugin.Invocation) error {
	ids, err := c.catalog.Identifiers(ctx)
	if err != nil {
		return err
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Catalog (%d types):\n", len(ids)))
	for _, id := range ids {
		info, _ := c.catalog.Lookup(id)
		sb.WriteString("  " + id)
		if info.Marker != nil && info.Marker.Key != "" {
			sb.WriteString(" /" + info.Marker.Key)
		}
		if info.DevOnly() {
			sb.WriteString(" [dev]")
		}
		sb.WriteString("\n")
	}
	_, err = fmt.Fprint(inv.Out, sb.String())
	return err
}

func (c *DebugCommand) showSlots(inv *plugin.Invocation) error {
	var sb strings.Builder
	cmds := c.plugin.Commands()
	for _, name := range cmds.Names() {
		slot, _ := cmds.Slot(name)
		executor := "-"
		if exec := slot.Executor(); exec != nil {
			executor = fmt.Sprintf("%T", exec)
		}
		sb.WriteString(fmt.Sprintf("  /%-10s %s\n", name, executor))
	}
	_, err := fmt.Fprint(inv.Out, sb.String())
	return err
}

func (c *DebugCommand) showPlugin(inv *plugin.Invocation) error {
	dataDir := c.plugin.DataDir()
	if dataDir == "" {
		dataDir = "(none)"
	}
	_, err := fmt.Fprintf(inv.Out, "name: %s\nversion: %s\ndev: %t\ndata: %s\n",
		c.plugin.Name(), c.plugin.Version(), c.plugin.DevMode(), dataDir)
	return err
}
