package commands

import (
	"context"
	"fmt"
	"runtime"

	"github.com/c360studio/semwire/host/plugin"
)

// Version is the host build version, set with -ldflags.
var Version = "dev"

// VersionCommand implements /version.
//
//semwire:command version
type VersionCommand struct {
	name    string
	version string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(p *plugin.Plugin) *VersionCommand {
	return &VersionCommand{name: p.Name(), version: p.Version()}
}

// Execute prints the plugin and host versions.
func (c *VersionCommand) Execute(_ context.Context, inv *plugin.Invocation) error {
	_, err := fmt.Fprintf(inv.Out, "%s %s (semwire %s, %s)\n", c.name, c.version, Version, runtime.Version())
	return err
}
