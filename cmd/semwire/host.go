package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errs "github.com/c360studio/semstreams/pkg/errs"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/semwire/catalog"
	"github.com/c360studio/semwire/config"
	"github.com/c360studio/semwire/host/eventbus"
	"github.com/c360studio/semwire/host/plugin"
	"github.com/c360studio/semwire/registration"
)

// bus is the event bus listeners are registered with.
type bus interface {
	RegisterListener(ctx context.Context, l eventbus.Listener) error
	Publish(ctx context.Context, topic string, payload any) error
}

// Host owns the plugin and the registries components are registered with.
type Host struct {
	cfg      *config.Config
	logger   *slog.Logger
	bus      bus
	scanner  *catalog.Scanner
	loader   catalog.Loader
	registry *prometheus.Registry
	metrics  *registration.Metrics

	plugin *plugin.Plugin
	close  func(context.Context) error
}

// HostOption customizes a Host.
type HostOption func(*Host)

// WithBus replaces the bus chosen from the configuration.
func WithBus(b bus) HostOption {
	return func(h *Host) { h.bus = b }
}

// WithCatalog replaces the compiled-in catalog as scan index and loader.
func WithCatalog(c *catalog.Catalog) HostOption {
	return func(h *Host) {
		h.scanner = catalog.NewScanner(c)
		h.loader = c
	}
}

// NewHost creates a host for cfg. The NATS bus is connected here when enabled.
func NewHost(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...HostOption) (*Host, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		cfg:      cfg,
		logger:   logger,
		loader:   catalog.Default,
		registry: prometheus.NewRegistry(),
		close:    func(context.Context) error { return nil },
	}

	var index catalog.Index = catalog.Default
	if cfg.Index != "" {
		index = catalog.ManifestIndex{Path: cfg.Index}
	}
	h.scanner = catalog.NewScanner(index)

	for _, opt := range opts {
		opt(h)
	}

	metrics, err := registration.NewMetrics(h.registry)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	h.metrics = metrics

	if h.bus == nil {
		if err := h.openBus(ctx); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Host) openBus(ctx context.Context) error {
	if !h.cfg.NATS.Enabled {
		h.bus = eventbus.NewLocalBus(h.logger)
		return nil
	}

	client, err := connectToNATS(ctx, h.cfg.NATS.URL, h.logger)
	if err != nil {
		return err
	}
	h.bus = eventbus.NewNATSBus(eventbus.ClientConn{Client: client}, h.cfg.NATS.SubjectPrefix, h.logger)
	h.close = client.Close
	return nil
}

// Registry returns the Prometheus registry holding the registration metrics.
func (h *Host) Registry() *prometheus.Registry { return h.registry }

// Plugin returns the plugin built by the last Load, or nil.
func (h *Host) Plugin() *plugin.Plugin { return h.plugin }

// Load builds the plugin from d and runs every configured scan entry against it.
// Reports are returned in scan order. A fatal error stops the remaining entries;
// the reports gathered so far are returned with it.
func (h *Host) Load(ctx context.Context, d *plugin.Descriptor) ([]*registration.Report, error) {
	p, err := plugin.New(d, plugin.Options{
		Logger:  h.logger,
		DataDir: h.cfg.Plugin.DataDir,
		DevMode: h.cfg.DevMode,
		Events:  h.bus,
	})
	if err != nil {
		return nil, err
	}
	h.plugin = p

	return h.register(ctx, func(config.ScanConfig) bool { return true })
}

// Reload builds a new plugin from d and rebinds its commands. Listeners stay
// registered with the bus from the first Load.
func (h *Host) Reload(ctx context.Context, d *plugin.Descriptor) ([]*registration.Report, error) {
	if h.plugin == nil {
		return h.Load(ctx, d)
	}
	p, err := plugin.New(d, plugin.Options{
		Logger:  h.logger,
		DataDir: h.cfg.Plugin.DataDir,
		DevMode: h.cfg.DevMode,
		Events:  h.bus,
	})
	if err != nil {
		return nil, err
	}
	h.plugin = p

	return h.register(ctx, func(s config.ScanConfig) bool { return s.Kind == config.KindCommand })
}

func (h *Host) register(ctx context.Context, include func(config.ScanConfig) bool) ([]*registration.Report, error) {
	var reports []*registration.Report
	for _, scan := range h.cfg.Scan {
		if !include(scan) {
			continue
		}
		report, err := h.runScan(ctx, scan)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			if errs.IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return reports, err
			}
			h.logger.Warn("Registration pass failed", "namespace", scan.Namespace, "kind", scan.Kind, "error", err)
		}
	}
	return reports, nil
}

func (h *Host) runScan(ctx context.Context, scan config.ScanConfig) (*registration.Report, error) {
	opts := registration.Options{
		DevMode: h.cfg.DevMode,
		Logger:  h.logger,
		Metrics: h.metrics,
	}
	deep := !scan.Shallow

	switch scan.Kind {
	case config.KindCommand:
		pipeline := registration.NewCommandPipeline[plugin.CommandExecutor](h.scanner, h.loader, h.plugin.Commands(), opts)
		return pipeline.Run(ctx, h.plugin, scan.Namespace, deep)
	case config.KindListener:
		pipeline := registration.NewListenerPipeline[eventbus.Listener](h.scanner, h.loader, h.bus, opts)
		return pipeline.Run(ctx, h.plugin, scan.Namespace, deep)
	default:
		return nil, errs.WrapInvalid(fmt.Errorf("unknown scan kind %q", scan.Kind), "Host", "runScan", "scan kind")
	}
}

// Close releases the bus connection.
func (h *Host) Close(ctx context.Context) error {
	return h.close(ctx)
}

func connectToNATS(ctx context.Context, url string, logger *slog.Logger) (*natsclient.Client, error) {
	logger.Info("Connecting to NATS", "url", url)

	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	logger.Info("Connected to NATS", "url", url)
	return client, nil
}

// wrapNATSError provides guidance when the NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

Start a server, or set SEMWIRE_NATS_URL to point to your NATS server.
Set nats.enabled to false to use the in-process event bus.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}
