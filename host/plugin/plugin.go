// Package plugin is a command-line plugin host: a descriptor declares the
// plugin's commands, and executors discovered at startup are bound to them.
//
// A *Plugin is the registration context handed to one-parameter component
// constructors. Its Commands table is the slot registry used by the command
// registration pipeline.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Publisher emits events on behalf of the plugin.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Options configures a plugin.
type Options struct {
	Logger  *slog.Logger
	DataDir string
	DevMode bool
	Events  Publisher
}

// Plugin is a loaded plugin.
type Plugin struct {
	descriptor *Descriptor
	logger     *slog.Logger
	dataDir    string
	devMode    bool
	events     Publisher
	commands   *Commands
}

// New creates a plugin from a validated descriptor.
func New(d *Descriptor, opts Options) (*Plugin, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: descriptor is required", ErrInvalidDescriptor)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("plugin", d.Name)

	if opts.DataDir != "" {
		if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	return &Plugin{
		descriptor: d,
		logger:     logger,
		dataDir:    opts.DataDir,
		devMode:    opts.DevMode,
		events:     opts.Events,
		commands:   NewCommands(d, logger),
	}, nil
}

// Name returns the plugin name.
func (p *Plugin) Name() string { return p.descriptor.Name }

// Version returns the plugin version.
func (p *Plugin) Version() string { return p.descriptor.Version }

// Descriptor returns the plugin descriptor.
func (p *Plugin) Descriptor() *Descriptor { return p.descriptor }

// Logger returns the plugin's logger.
func (p *Plugin) Logger() *slog.Logger { return p.logger }

// DataDir returns the plugin's data directory, or "" if none was configured.
func (p *Plugin) DataDir() string { return p.dataDir }

// DevMode reports whether the plugin runs on a development server.
func (p *Plugin) DevMode() bool { return p.devMode }

// Commands returns the declared command table.
func (p *Plugin) Commands() *Commands { return p.commands }

// Publish emits an event. It is a no-op when the plugin has no event publisher.
func (p *Plugin) Publish(ctx context.Context, topic string, payload any) error {
	if p.events == nil {
		return nil
	}
	return p.events.Publish(ctx, topic, payload)
}
