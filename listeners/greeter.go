// Package listeners provides the bundled event listeners. Every type with a
// //semwire:listener directive is registered with the plugin's event bus.
package listeners

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/semwire/host/eventbus"
	"github.com/c360studio/semwire/host/plugin"
)

// Event topics used by the bundled listeners.
const (
	TopicPlayerJoin    = "player.join"
	TopicPlayerQuit    = "player.quit"
	TopicPlayerGreeted = "player.greeted"
)

// PlayerEvent is the payload of player topics.
type PlayerEvent struct {
	Player string `json:"player"`
}

// Greeting is the payload of TopicPlayerGreeted.
type Greeting struct {
	Player  string `json:"player"`
	Message string `json:"message"`
}

// JoinGreeter welcomes joining players.
//
//semwire:listener
type JoinGreeter struct {
	plugin *plugin.Plugin
	logger *slog.Logger
}

// NewJoinGreeter creates the greeter.
func NewJoinGreeter(p *plugin.Plugin) *JoinGreeter {
	return &JoinGreeter{plugin: p, logger: p.Logger().With("listener", "JoinGreeter")}
}

// Subscriptions implements eventbus.Listener.
func (g *JoinGreeter) Subscriptions() []eventbus.Subscription {
	return []eventbus.Subscription{
		{Topic: TopicPlayerJoin, Handle: g.onJoin},
	}
}

func (g *JoinGreeter) onJoin(ctx context.Context, ev eventbus.Event) error {
	var join PlayerEvent
	if err := ev.Decode(&join); err != nil {
		return fmt.Errorf("decode join event: %w", err)
	}
	if join.Player == "" {
		return fmt.Errorf("join event %s has no player", ev.ID)
	}

	greeting := Greeting{
		Player:  join.Player,
		Message: fmt.Sprintf("Welcome to %s, %s!", g.plugin.Name(), join.Player),
	}
	g.logger.Info("Greeting player", "player", join.Player)
	return g.plugin.Publish(ctx, TopicPlayerGreeted, greeting)
}
