package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/semwire/host/plugin"
)

// HelpCommand implements /help for listing declared commands.
//
//semwire:command help
type HelpCommand struct {
	commands *plugin.Commands
}

// NewHelpCommand creates the help command.
func NewHelpCommand(p *plugin.Plugin) *HelpCommand {
	return &HelpCommand{commands: p.Commands()}
}

// Execute lists every declared command, or details one when named.
func (c *HelpCommand) Execute(_ context.Context, inv *plugin.Invocation) error {
	if len(inv.Args) > 0 {
		return c.showCommandHelp(inv, strings.TrimPrefix(strings.TrimSpace(inv.Args[0]), "/"))
	}
	return c.listAllCommands(inv)
}

// showCommandHelp shows detailed help for a specific command.
func (c *HelpCommand) showCommandHelp(inv *plugin.Invocation, name string) error {
	slot, ok := c.commands.Slot(name)
	if !ok {
		_, err := fmt.Fprintf(inv.Out, "Unknown command: /%s\nRun /%s to see available commands.\n", name, inv.Label)
		return err
	}

	spec := slot.Spec()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("/%s", slot.Name()))
	if spec.Usage != "" {
		sb.WriteString(" " + spec.Usage)
	}
	sb.WriteString("\n")
	if spec.Description != "" {
		sb.WriteString(fmt.Sprintf("  %s\n", spec.Description))
	}
	if len(spec.Aliases) > 0 {
		sb.WriteString(fmt.Sprintf("  Aliases: %s\n", strings.Join(spec.Aliases, ", ")))
	}
	if spec.Permission != "" {
		sb.WriteString(fmt.Sprintf("  Permission: %s\n", spec.Permission))
	}
	if slot.Executor() == nil {
		sb.WriteString("  Not available on this server.\n")
	}

	_, err := fmt.Fprint(inv.Out, sb.String())
	return err
}

// listAllCommands lists declared commands; unbound ones are marked.
func (c *HelpCommand) listAllCommands(inv *plugin.Invocation) error {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, name := range c.commands.Names() {
		slot, _ := c.commands.Slot(name)
		line := fmt.Sprintf("  /%-10s %s", name, slot.Spec().Description)
		if slot.Executor() == nil {
			line += " (unavailable)"
		}
		sb.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	sb.WriteString(fmt.Sprintf("Run /%s <command> for details.\n", inv.Label))

	_, err := fmt.Fprint(inv.Out, sb.String())
	return err
}
