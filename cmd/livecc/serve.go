package main

import (
	"context"
	"fmt"
	"os"

	"github.com/leonardotrapani/livecc/internal/bus"
	"github.com/leonardotrapani/livecc/internal/caption"
	"github.com/leonardotrapani/livecc/internal/config"
	"github.com/leonardotrapani/livecc/internal/daemon"
	"github.com/leonardotrapani/livecc/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd(g *globalOptions) *cobra.Command {
	var autostart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		Long: `Run livecc in the background. Captioning is started and stopped with
livecc start/stop/toggle; captions go to stdout and, when server.enabled is
set, to websocket clients.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			path, err := g.path()
			if err != nil {
				return err
			}
			return runServe(cmd, cfg, path, autostart)
		},
	}
	cmd.Flags().BoolVar(&autostart, "start", false, "start captioning immediately")
	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config, path string, autostart bool) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	a, err := newApp(ctx, cfg, recorderFactory(cfg), appOptions{out: out, color: caption.IsTerminal(out)})
	if err != nil {
		return err
	}
	// the daemon disposes the controller on exit
	defer a.closeOutputs()

	mgr := watchConfig(ctx, path, cfg)
	if mgr != nil {
		defer mgr.Stop()
	}

	a.serve(ctx)

	d := daemon.New(a.controller)
	if autostart {
		if err := bus.CheckExistingDaemon(); err != nil {
			a.controller.Dispose()
			return err
		}
		if err := d.Start(); err != nil {
			log.Error().Err(err).Msg("serve: failed to start captioning")
		}
	}
	return d.Run()
}

// watchConfig applies log level changes from the config file while the daemon
// runs. Other settings take effect on the next restart.
func watchConfig(ctx context.Context, path string, cfg *config.Config) *config.Manager {
	var mgr *config.Manager
	if _, err := os.Stat(path); err == nil {
		if mgr, err = config.NewManager(path); err != nil {
			log.Warn().Err(err).Msg("serve: config watch disabled")
			return nil
		}
	} else {
		mgr = config.NewManagerWithConfig(path, cfg)
	}

	mgr.OnChange(func(c *config.Config) {
		level := logging.ParseLevel(c.Log.Level)
		if level != zerolog.GlobalLevel() {
			zerolog.SetGlobalLevel(level)
			log.Info().Str("level", level.String()).Msg("serve: log level changed")
		}
		log.Info().Msg("serve: config changed, restart to apply capture and transcription settings")
	})

	if err := mgr.StartWatching(ctx); err != nil {
		log.Warn().Err(err).Msg("serve: config watch disabled")
		return nil
	}
	return mgr
}
