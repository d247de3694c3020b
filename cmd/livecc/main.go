package main

import (
	"fmt"
	"os"

	"github.com/leonardotrapani/livecc/internal/bus"
	"github.com/leonardotrapani/livecc/internal/config"
	"github.com/leonardotrapani/livecc/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:          "livecc",
		Short:        "Live captions for whatever your computer is playing",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/livecc/config.toml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log.level (trace, debug, info, warn, error)")

	root.AddCommand(
		listenCmd(g),
		serveCmd(g),
		controlCmd("start", "Start captioning in the running daemon"),
		controlCmd("stop", "Stop captioning in the running daemon"),
		controlCmd("toggle", "Toggle captioning on/off"),
		controlCmd("status", "Get daemon status"),
		controlCmd("version", "Get protocol version"),
		controlCmd("quit", "Shut the daemon down"),
		configureCmd(g),
		modelsCmd(),
		languagesCmd(),
		providersCmd(),
		doctorCmd(g),
	)
	return root
}

// load reads the config named by --config, or the user config with defaults
// when it does not exist yet, and initializes logging from it.
func (g *globalOptions) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.LoadOrDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	logging.Init(cfg.Log.Level, cfg.Log.Pretty)
	return cfg, nil
}

func (g *globalOptions) path() (string, error) {
	if g.configPath != "" {
		return g.configPath, nil
	}
	return config.GetConfigPath()
}

func controlCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bus.ParseCommand(name)
			if err != nil {
				return err
			}
			resp, err := bus.SendCommand(c)
			if err != nil {
				return fmt.Errorf("failed to send %s: %w", name, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}
