// Package commands provides the bundled plugin commands. Each command type
// carries a //semwire:command directive; `semwire gen` turns the directives
// into catalog registrations in zz_semwire.go.
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/semwire/host/plugin"
)

// PingCommand implements /ping.
//
//semwire:command ping
type PingCommand struct {
	plugin *plugin.Plugin
	now    func() time.Time
}

// NewPingCommand creates the ping command.
func NewPingCommand(p *plugin.Plugin) *PingCommand {
	return &PingCommand{plugin: p, now: time.Now}
}

// Execute replies with pong, echoing any arguments.
func (c *PingCommand) Execute(_ context.Context, inv *plugin.Invocation) error {
	reply := "pong"
	if len(inv.Args) > 0 {
		reply += " " + strings.Join(inv.Args, " ")
	}
	_, err := fmt.Fprintf(inv.Out, "%s (%s, %s)\n", reply, c.plugin.Name(), c.now().UTC().Format(time.RFC3339))
	return err
}
