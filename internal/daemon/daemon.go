package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/leonardotrapani/livecc/internal/bus"
	"github.com/rs/zerolog/log"
)

// Controller is the part of session.Controller the daemon drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
	Dispose()
}

// Daemon serves control commands over the bus socket and starts and stops
// transcription sessions on a long-lived controller.
type Daemon struct {
	mu         sync.Mutex
	controller Controller

	ctx    context.Context
	cancel context.CancelFunc
}

func New(c Controller) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		controller: c,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (d *Daemon) status() string {
	if d.controller.Running() {
		return "listening"
	}
	return "idle"
}

// Run listens on the bus socket until a quit command or SIGINT/SIGTERM.
func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}

	if err := bus.CreatePidFile(); err != nil {
		ln.Close()
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("daemon: received signal, shutting down")
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	return d.Serve(ln)
}

// Serve accepts commands on ln until the daemon is shut down, then disposes
// the controller. It closes ln.
func (d *Daemon) Serve(ln net.Listener) error {
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()
	defer d.controller.Dispose()

	log.Info().Str("addr", ln.Addr().String()).Msg("daemon: started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Info().Msg("daemon: shutdown requested")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// Start begins captioning as a start command would.
func (d *Daemon) Start() error {
	_, err := d.start()
	return err
}

// Shutdown stops the daemon as a quit command would.
func (d *Daemon) Shutdown() {
	d.cancel()
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Debug().Err(err).Msg("daemon: client read error")
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) < 2 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	switch cmd := line[0]; cmd {
	case bus.CmdStart:
		state, err := d.start()
		d.reply(c, state, err)
	case bus.CmdStop:
		d.stop()
		d.reply(c, "stopped", nil)
	case bus.CmdToggle:
		state, err := d.toggle()
		d.reply(c, state, err)
	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS status=%s\n", d.status())
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Warn().Str("command", string(cmd)).Msg("daemon: unknown command")
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) reply(c net.Conn, state string, err error) {
	if err != nil {
		fmt.Fprintf(c, "ERR %v\n", err)
		return
	}
	fmt.Fprintf(c, "OK %s\n", state)
}

func (d *Daemon) start() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startLocked()
}

func (d *Daemon) startLocked() (string, error) {
	if d.controller.Running() {
		return "listening", nil
	}
	if err := d.controller.Start(d.ctx); err != nil {
		log.Error().Err(err).Msg("daemon: failed to start session")
		return "", err
	}
	return "started", nil
}

func (d *Daemon) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.controller.Stop()
}

func (d *Daemon) toggle() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.controller.Running() {
		d.controller.Stop()
		return "stopped", nil
	}
	return d.startLocked()
}
