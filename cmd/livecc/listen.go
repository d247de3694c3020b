package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leonardotrapani/livecc/internal/caption"
	"github.com/leonardotrapani/livecc/internal/config"
	"github.com/leonardotrapani/livecc/internal/recording"
	"github.com/leonardotrapani/livecc/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type listenOptions struct {
	file        string
	paced       bool
	ordered     bool
	language    string
	translateTo string
	serve       string
	noColor     bool
	original    bool
}

func listenCmd(g *globalOptions) *cobra.Command {
	o := &listenOptions{}

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Caption system audio (or an audio file) in the foreground",
		Long: `Capture the default output device's monitor, transcribe it in chunks and
print one caption line per transcribed segment until interrupted.

With --file the audio comes from a WAV or raw PCM file instead and the
command exits once the whole file has been transcribed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			o.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return runListen(cmd, cfg, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.file, "file", "f", "", "transcribe an audio file instead of system audio")
	f.BoolVar(&o.paced, "paced", false, "feed --file at real-time speed")
	f.BoolVar(&o.ordered, "ordered", false, "emit segments in audio order")
	f.StringVarP(&o.language, "language", "l", "", "source language code (empty for auto-detect)")
	f.StringVar(&o.translateTo, "translate-to", "", "translate captions into this language")
	f.StringVar(&o.serve, "serve", "", "also broadcast captions over websocket on this address")
	f.BoolVar(&o.noColor, "no-color", false, "disable colored output")
	f.BoolVar(&o.original, "original", false, "print the untranslated text under each translated caption")
	return cmd
}

// apply overlays the flags the user actually set onto cfg.
func (o *listenOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("ordered") {
		cfg.Output.Ordered = o.ordered
	}
	if f.Changed("language") {
		cfg.Transcription.Language = o.language
	}
	if o.translateTo != "" {
		cfg.Translation.Enabled = true
		cfg.Translation.TargetLanguage = o.translateTo
	}
	if o.serve != "" {
		cfg.Server.Enabled = true
		cfg.Server.Listen = o.serve
	}
}

func runListen(cmd *cobra.Command, cfg *config.Config, o *listenOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var newSource session.SourceFactory
	if o.file != "" {
		newSource = fileFactory(cfg, o.file, o.paced)
	} else {
		if err := recording.CheckAvailable(ctx, recording.Backend(cfg.Capture.Backend)); err != nil {
			return err
		}
		newSource = recorderFactory(cfg)
	}

	out := cmd.OutOrStdout()
	a, err := newApp(ctx, cfg, newSource, appOptions{
		out:          out,
		color:        !o.noColor && caption.IsTerminal(out),
		showOriginal: o.original,
	})
	if err != nil {
		return err
	}
	defer a.close()

	a.serve(ctx)
	if err := a.controller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	if o.file != "" {
		if err := a.controller.Drain(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		log.Debug().Str("file", o.file).Msg("listen: file transcribed")
		return nil
	}

	<-ctx.Done()
	log.Info().Msg("listen: interrupted, stopping")
	return nil
}
