package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/keystrike/internal/config"
	"github.com/dshills/keystrike/internal/input"
	"github.com/dshills/keystrike/internal/terminal"
)

// NewRunCommand creates the run command.
func NewRunCommand(g *globalOptions) *cobra.Command {
	var (
		opts   serviceOptions
		watch  bool
		target string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for shortcuts in the terminal",
		Long: `Run the shortcut engine against terminal key input and show each event
as it fires. Press ctrl+c to quit.

Logs go to --log-file while the terminal is in use; without it they are
discarded.

Examples:
  keystrike run -c keys.toml
  keystrike run -c keys.yaml --watch
  keystrike run --script keys.lua --target input`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch && opts.ConfigPath == "" {
				return errors.New("--watch requires --config")
			}
			if g.LogFile == "" {
				g.logger.SetOutput(io.Discard)
			}

			_, svc, script, err := opts.build(g.logger)
			if err != nil {
				return err
			}
			defer svc.Close()
			if script != nil {
				defer func() { _ = script.Close() }()
			}

			if watch {
				w, err := config.NewWatcher(opts.ConfigPath, config.WithWatcherLogger(g.logger))
				if err != nil {
					return fmt.Errorf("watch %s: %w", opts.ConfigPath, err)
				}
				defer func() { _ = w.Close() }()
				config.ReloadOnChange(w, svc, g.logger)
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("open terminal: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			defer traceKeys(g.logger, svc.Handler())()

			runner := terminal.NewRunner(screen, svc,
				terminal.WithBus(svc.Bus()),
				terminal.WithMetrics(svc.Handler().Metrics()),
				terminal.WithLogger(g.logger),
				terminal.WithTarget(target),
			)
			return runner.Run(ctx)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the shortcut file when it changes")
	cmd.Flags().StringVar(&target, "target", "body", "Element tag the key events are sent to")

	return cmd
}

// traceKeys logs every key the engine sees when logger is at trace level.
// The returned function removes the hook.
func traceKeys(logger *logrus.Logger, h *input.Handler) func() {
	if !logger.IsLevelEnabled(logrus.TraceLevel) {
		return func() {}
	}
	hooks := h.Hooks()
	id := hooks.Register(input.LoggingHook{Logger: logger.WithField("component", "keys")})
	return func() { hooks.Unregister(id) }
}
