package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semwire/config"
	"github.com/c360studio/semwire/host/plugin"
)

func execCmd(global *globalFlags) *cobra.Command {
	var flags hostFlags

	cmd := &cobra.Command{
		Use:   "exec [flags] -- <command> [args...]",
		Short: "Register components and run one plugin command",
		Long: `Exec performs the same registration as run, quietly, and then dispatches a
single command line to the plugin, e.g.

  semwire exec -- ping hello
  semwire exec --dev -- debug slots`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := global.logLevel
			if level == "" {
				level = "warn"
			}
			logger := newLogger(level)

			cfg, err := loadConfig(global, &flags, logger)
			if err != nil {
				return err
			}
			return execLine(cmd.Context(), cfg, logger, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	return cmd
}

func execLine(ctx context.Context, cfg *config.Config, logger *slog.Logger, line string, out io.Writer) error {
	descriptor, err := plugin.LoadDescriptor(cfg.Plugin.Descriptor)
	if err != nil {
		return err
	}

	host, err := NewHost(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer host.Close(context.Background())

	if _, err := host.Load(ctx, descriptor); err != nil {
		return err
	}
	return host.Plugin().Commands().Dispatch(ctx, line, out)
}
