package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/keystrike/internal/config"
	"github.com/dshills/keystrike/internal/logging"
	"github.com/dshills/keystrike/internal/plugin/lua"
	"github.com/dshills/keystrike/internal/shortcuts"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	LogLevel string
	LogFile  string
	LogJSON  bool

	logger  *logrus.Logger
	logSink io.Closer
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "keystrike",
		Short: "keystrike - keyboard shortcut engine",
		Long: `keystrike maps single keys, modifier combos and two-key sequences to named
events. Shortcuts are declared in a TOML or YAML file, or added from Lua
scripts, and fired events are published on an in-process event bus.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setupLogging(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logSink != nil {
				_ = g.logSink.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.LogFile, "log-file", "", "Write logs to this file instead of stderr")
	cmd.PersistentFlags().BoolVar(&g.LogJSON, "log-json", false, "Log in JSON format")

	cmd.AddCommand(NewRunCommand(g))
	cmd.AddCommand(NewCheckCommand(g))
	cmd.AddCommand(NewListCommand(g))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func (g *globalOptions) setupLogging(stderr io.Writer) error {
	cfg := logging.DefaultConfig()
	cfg.Level = g.LogLevel
	cfg.JSON = g.LogJSON
	cfg.Output = stderr

	if g.LogFile != "" {
		f, err := os.OpenFile(g.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		cfg.Output = f
		g.logSink = f
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return err
	}
	g.logger = logger
	return nil
}

// serviceOptions loads the shortcut file, if any, and builds a service and
// an optional script environment from it.
type serviceOptions struct {
	ConfigPath string
	ScriptPath string
}

func (o *serviceOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.ConfigPath, "config", "c", "", "Shortcut file (.toml, .yaml)")
	cmd.Flags().StringVar(&o.ScriptPath, "script", "", "Lua script that registers shortcuts")
}

// build returns the loaded file, a running service and the script that ran
// against it. The caller closes both.
func (o *serviceOptions) build(logger logrus.FieldLogger) (*config.File, *shortcuts.Service, *lua.Script, error) {
	f := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, nil, nil, err
		}
		f = loaded
	}

	svc := shortcuts.New(nil, append(f.Options(), shortcuts.WithLogger(logger))...)

	if o.ScriptPath == "" {
		return f, svc, nil, nil
	}

	script := lua.Open(svc, lua.WithLogger(logger))
	if err := script.DoFile(o.ScriptPath); err != nil {
		_ = script.Close()
		svc.Close()
		return nil, nil, nil, fmt.Errorf("script %s: %w", o.ScriptPath, err)
	}
	return f, svc, script, nil
}
