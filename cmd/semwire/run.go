package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/semwire/config"
	"github.com/c360studio/semwire/host/plugin"
	"github.com/c360studio/semwire/registration"
)

// hostFlags are the registration overrides shared by run and exec.
type hostFlags struct {
	descriptor string
	index      string
	dev        bool
	shallow    bool
	commands   []string
	listeners  []string
}

func (f *hostFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.descriptor, "plugin", "p", "", "Plugin descriptor path (overrides plugin.descriptor)")
	cmd.Flags().StringVar(&f.index, "index", "", "Component manifest to scan instead of the compiled-in catalog")
	cmd.Flags().BoolVar(&f.dev, "dev", false, "Register development-only components")
	cmd.Flags().BoolVar(&f.shallow, "shallow", false, "Exclude sub-namespaces from every pass")
	cmd.Flags().StringSliceVar(&f.commands, "commands", nil, "Command namespaces to register (replaces configured scan entries)")
	cmd.Flags().StringSliceVar(&f.listeners, "listeners", nil, "Listener namespaces to register (replaces configured scan entries)")
}

// apply overlays the flags on cfg.
func (f *hostFlags) apply(cfg *config.Config) {
	if f.descriptor != "" {
		cfg.Plugin.Descriptor = f.descriptor
	}
	if f.index != "" {
		cfg.Index = f.index
	}
	if f.dev {
		cfg.DevMode = true
	}
	if len(f.commands) > 0 || len(f.listeners) > 0 {
		cfg.Scan = nil
		for _, ns := range f.commands {
			cfg.Scan = append(cfg.Scan, config.ScanConfig{Namespace: ns, Kind: config.KindCommand})
		}
		for _, ns := range f.listeners {
			cfg.Scan = append(cfg.Scan, config.ScanConfig{Namespace: ns, Kind: config.KindListener})
		}
	}
	if f.shallow {
		for i := range cfg.Scan {
			cfg.Scan[i].Shallow = true
		}
	}
}

// loadConfig loads the layered configuration, or only configPath when set,
// and applies the command-line overrides.
func loadConfig(global *globalFlags, flags *hostFlags, logger *slog.Logger) (*config.Config, error) {
	loader := config.NewLoader(logger)

	var (
		cfg *config.Config
		err error
	)
	if global.configPath != "" {
		cfg, err = loader.LoadFile(global.configPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if global.logLevel != "" {
		cfg.Log.Level = global.logLevel
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runCmd(global *globalFlags) *cobra.Command {
	var (
		flags       hostFlags
		watch       bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Register components with the plugin and serve",
		Long: `Run loads the plugin descriptor, registers the configured command and
listener namespaces and prints one summary per pass.

Without --watch or a metrics address the process exits after registration.
With --watch the descriptor is reloaded on change and commands are rebound.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			bootstrap := newLogger(global.logLevel)
			cfg, err := loadConfig(global, &flags, bootstrap)
			if err != nil {
				return err
			}
			if watch {
				cfg.Watch = true
			}
			if metricsAddr != "" {
				cfg.Metrics.Addr = metricsAddr
			}

			logger := newLogger(cfg.Log.Level)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger, cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the plugin descriptor when it changes")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	descriptor, err := plugin.LoadDescriptor(cfg.Plugin.Descriptor)
	if err != nil {
		return err
	}

	host, err := NewHost(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := host.Close(closeCtx); err != nil {
			logger.Warn("Failed to close host", "error", err)
		}
	}()

	reports, err := host.Load(ctx, descriptor)
	printReports(out, host.Plugin(), reports)
	if err != nil {
		return err
	}

	if !cfg.Watch && cfg.Metrics.Addr == "" {
		return nil
	}

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, host, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("Plugin ready", "plugin", descriptor.Name, "version", descriptor.Version, "dev", cfg.DevMode)

	if !cfg.Watch {
		<-ctx.Done()
		return nil
	}
	return watchDescriptor(ctx, cfg, host, logger, out)
}

func watchDescriptor(ctx context.Context, cfg *config.Config, host *Host, logger *slog.Logger, out io.Writer) error {
	watcher, err := plugin.NewWatcher(plugin.WatcherConfig{
		Path:   cfg.Plugin.Descriptor,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create descriptor watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start descriptor watcher: %w", err)
	}
	defer watcher.Stop()

	for ev := range watcher.Events() {
		if ev.Err != nil {
			logger.Warn("Keeping previous descriptor", "error", ev.Err)
			continue
		}
		reports, err := host.Reload(ctx, ev.Descriptor)
		printReports(out, host.Plugin(), reports)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
	return nil
}

func serveMetrics(addr string, host *Host, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(host.Registry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}

// printReports writes one summary line per pass, then the declared commands
// nothing was bound to.
func printReports(out io.Writer, p *plugin.Plugin, reports []*registration.Report) {
	for _, r := range reports {
		fmt.Fprintf(out, "%s: %s\n", r.Namespace, r.Summary())
		for _, o := range r.Failures() {
			fmt.Fprintf(out, "  %s\n", o)
		}
	}
	if p == nil {
		return
	}
	for _, name := range p.Commands().Unbound() {
		fmt.Fprintf(out, "warning: command /%s is declared but has no executor\n", name)
	}
}
