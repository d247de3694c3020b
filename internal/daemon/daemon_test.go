package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/livecc/internal/bus"
	"github.com/leonardotrapani/livecc/internal/testutil"
)

type fakeController struct {
	mu       sync.Mutex
	running  bool
	starts   int
	disposed bool
	startErr error
}

func (f *fakeController) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	f.starts++
	return nil
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeController) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeController) Dispose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.disposed = true
}

func (f *fakeController) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeController) isDisposed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disposed
}

// startDaemon runs a daemon on a socket under a temporary runtime dir.
func startDaemon(t *testing.T, c Controller) (*Daemon, <-chan error) {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	d := New(c)
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run() }()

	testutil.WaitForCondition(t, func() bool {
		_, err := bus.SendCommand(bus.CmdVersion)
		return err == nil
	}, 2*time.Second)
	return d, errCh
}

func send(t *testing.T, cmd byte) string {
	t.Helper()
	out, err := bus.SendCommand(cmd)
	if err != nil {
		t.Fatalf("SendCommand(%q) error = %v", cmd, err)
	}
	return out
}

func TestCommands(t *testing.T) {
	ctrl := &fakeController{}
	_, errCh := startDaemon(t, ctrl)

	steps := []struct {
		cmd      byte
		expected string
		running  bool
	}{
		{bus.CmdStatus, "STATUS status=idle\n", false},
		{bus.CmdStart, "OK started\n", true},
		{bus.CmdStart, "OK listening\n", true},
		{bus.CmdStatus, "STATUS status=listening\n", true},
		{bus.CmdStop, "OK stopped\n", false},
		{bus.CmdToggle, "OK started\n", true},
		{bus.CmdToggle, "OK stopped\n", false},
		{bus.CmdVersion, "STATUS proto=1\n", false},
		{'x', "ERR unknown='x'\n", false},
	}
	for _, step := range steps {
		if got := send(t, step.cmd); got != step.expected {
			t.Errorf("command %q = %q, want %q", step.cmd, got, step.expected)
		}
		if ctrl.Running() != step.running {
			t.Errorf("after %q running = %v, want %v", step.cmd, ctrl.Running(), step.running)
		}
	}
	if n := ctrl.startCount(); n != 2 {
		t.Errorf("controller started %d times, want 2", n)
	}

	if got := send(t, bus.CmdQuit); got != "OK quitting\n" {
		t.Errorf("quit = %q", got)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not exit")
	}
	if !ctrl.isDisposed() {
		t.Error("controller not disposed on quit")
	}
}

func TestStartFailureIsReported(t *testing.T) {
	ctrl := &fakeController{startErr: errors.New("Audio capture error: no monitor source")}
	d, errCh := startDaemon(t, ctrl)

	if got := send(t, bus.CmdStart); got != "ERR Audio capture error: no monitor source\n" {
		t.Errorf("start = %q", got)
	}
	if ctrl.Running() {
		t.Error("controller should not be running")
	}

	d.Shutdown()
	<-errCh
}

func TestSecondDaemonRefused(t *testing.T) {
	d, errCh := startDaemon(t, &fakeController{})
	defer func() {
		d.Shutdown()
		<-errCh
	}()

	if err := New(&fakeController{}).Run(); err == nil {
		t.Error("second daemon should refuse to start")
	}
}

func TestStartBeforeServe(t *testing.T) {
	ctrl := &fakeController{}
	d := New(ctrl)
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if ctrl.startCount() != 1 || !ctrl.Running() {
		t.Errorf("starts = %d, running = %v", ctrl.startCount(), ctrl.Running())
	}

	failing := New(&fakeController{startErr: errors.New("no monitor source")})
	if err := failing.Start(); err == nil {
		t.Error("Start() should report the controller error")
	}
}
