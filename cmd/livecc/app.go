package main

import (
	"context"
	"fmt"
	"io"

	"github.com/leonardotrapani/livecc/internal/caption"
	"github.com/leonardotrapani/livecc/internal/config"
	"github.com/leonardotrapani/livecc/internal/events"
	"github.com/leonardotrapani/livecc/internal/metrics"
	"github.com/leonardotrapani/livecc/internal/notify"
	"github.com/leonardotrapani/livecc/internal/recording"
	"github.com/leonardotrapani/livecc/internal/server"
	"github.com/leonardotrapani/livecc/internal/session"
	"github.com/leonardotrapani/livecc/internal/transcriber"
	"github.com/leonardotrapani/livecc/internal/translate"
	"github.com/rs/zerolog/log"
)

// app wires a session controller to its outputs: captions on out, optional
// notifications, translation and the websocket server.
type app struct {
	cfg        *config.Config
	sink       *events.Sink
	metrics    *metrics.Metrics
	hub        *server.Hub
	translator *translate.Handler
	controller *session.Controller
}

type appOptions struct {
	out          io.Writer
	color        bool
	showOriginal bool
}

// ctx bounds translations still pending when the app shuts down.
func newApp(ctx context.Context, cfg *config.Config, newSource session.SourceFactory, opts appOptions) (*app, error) {
	adapter, err := transcriber.NewAdapter(cfg.ToTranscriberConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	a := &app{
		cfg:     cfg,
		sink:    events.NewSink(),
		metrics: metrics.New(),
	}

	var printerOpts []caption.Option
	if opts.showOriginal {
		printerOpts = append(printerOpts, caption.WithOriginal())
	}
	caption.NewPrinter(opts.out, opts.color, printerOpts...).Attach(a.sink)

	if cfg.Notifications.Enabled {
		notify.Attach(a.sink, notify.New(cfg.Notifications.Type))
	}
	if cfg.Server.Enabled {
		a.hub = server.NewHub()
		a.hub.Attach(a.sink)
	}

	var emitter events.Emitter = a.sink
	if cfg.Translation.Enabled {
		tr, err := translate.NewTranslator(cfg.ToTranslateConfig())
		if err != nil {
			a.sink.Close()
			return nil, fmt.Errorf("failed to create translator: %w", err)
		}
		a.translator = translate.NewHandler(ctx, a.sink, tr, cfg.Translation.Timeout)
		emitter = a.translator
	}

	a.controller, err = session.New(cfg.ToSessionConfig(), newSource, adapter, emitter, session.WithMetrics(a.metrics))
	if err != nil {
		a.closeOutputs()
		return nil, err
	}
	return a, nil
}

// serve starts the websocket server in the background when it is enabled.
func (a *app) serve(ctx context.Context) {
	if a.hub == nil {
		return
	}
	srv := server.New(a.hub, a.metrics)
	go func() {
		if err := srv.Run(ctx, a.cfg.Server.Listen); err != nil {
			log.Error().Err(err).Str("addr", a.cfg.Server.Listen).Msg("server: failed")
		}
	}()
}

// close disposes the controller and lets queued events reach their subscribers.
func (a *app) close() {
	a.controller.Dispose()
	a.closeOutputs()
}

func (a *app) closeOutputs() {
	if a.translator != nil {
		a.translator.Close()
	}
	a.sink.Close()
}

func recorderFactory(cfg *config.Config) session.SourceFactory {
	rc := cfg.ToRecordingConfig()
	return func() (recording.Source, error) {
		return recording.NewRecorder(rc), nil
	}
}

func fileFactory(cfg *config.Config, path string, paced bool) session.SourceFactory {
	raw := cfg.ToRecordingConfig().AudioFormat()
	return func() (recording.Source, error) {
		return recording.OpenFile(path, raw, recording.WithPacing(paced))
	}
}
