package recording

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/livecc/internal/audio"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	t.Run("default values", func(t *testing.T) {
		if config.Backend != BackendPipeWire {
			t.Errorf("default backend should be pipewire, got %s", config.Backend)
		}
		if config.SampleRate != 48000 {
			t.Errorf("default sample rate should be 48000, got %d", config.SampleRate)
		}
		if config.Channels != 2 {
			t.Errorf("default channels should be 2, got %d", config.Channels)
		}
		if config.Encoding != audio.S16LE {
			t.Errorf("default encoding should be s16le, got %s", config.Encoding)
		}
		if config.BufferSize != 8192 {
			t.Errorf("default buffer size should be 8192, got %d", config.BufferSize)
		}
		if config.ChannelBufferSize != 30 {
			t.Errorf("default channel buffer size should be 30, got %d", config.ChannelBufferSize)
		}
	})
}

func TestNewRecorder(t *testing.T) {
	recorder := NewDefaultRecorder()

	if recorder.IsRecording() {
		t.Error("recorder should not be recording initially")
	}
	if got := recorder.Format(); got != (audio.Format{SampleRate: 48000, Channels: 2, Encoding: audio.S16LE}) {
		t.Errorf("Format() = %v", got)
	}
}

func TestRecorderValidateConfig(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{name: "valid default config", mutate: func(*Config) {}},
		{name: "pulse backend", mutate: func(c *Config) { c.Backend = BackendPulse }},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "alsa" }, expectError: true},
		{name: "invalid sample rate", mutate: func(c *Config) { c.SampleRate = 0 }, expectError: true},
		{name: "invalid channels", mutate: func(c *Config) { c.Channels = 0 }, expectError: true},
		{name: "invalid encoding", mutate: func(c *Config) { c.Encoding = "u8" }, expectError: true},
		{name: "invalid buffer size", mutate: func(c *Config) { c.BufferSize = 0 }, expectError: true},
		{name: "invalid channel buffer size", mutate: func(c *Config) { c.ChannelBufferSize = 0 }, expectError: true},
		{
			name:   "unaligned buffer size",
			mutate: func(c *Config) { c.BufferSize = 8193 }, // logs a warning only
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			err := NewRecorder(config).validateConfig()

			if tt.expectError && err == nil {
				t.Errorf("expected error for config %+v", config)
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error for config %+v: %v", config, err)
			}
		})
	}
}

func TestRecorderCommandLine(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		expected []string
	}{
		{
			name:     "pipewire default",
			config:   DefaultConfig(),
			wantName: "pw-record",
			expected: []string{
				"--format", "s16",
				"--rate", "48000",
				"--channels", "2",
				"-P", "{ stream.capture.sink=true }",
				"-",
			},
		},
		{
			name: "pipewire with target",
			config: Config{
				Backend:    BackendPipeWire,
				SampleRate: 44100,
				Channels:   2,
				Encoding:   audio.F32LE,
				Device:     "alsa_output.pci-0000_00_1f.3.analog-stereo",
			},
			wantName: "pw-record",
			expected: []string{
				"--format", "f32",
				"--rate", "44100",
				"--channels", "2",
				"-P", "{ stream.capture.sink=true }",
				"--target", "alsa_output.pci-0000_00_1f.3.analog-stereo",
				"-",
			},
		},
		{
			name: "pulse default monitor",
			config: Config{
				Backend:    BackendPulse,
				SampleRate: 48000,
				Channels:   2,
				Encoding:   audio.S16LE,
			},
			wantName: "parec",
			expected: []string{
				"--device=@DEFAULT_MONITOR@",
				"--format=s16le",
				"--rate=48000",
				"--channels=2",
				"--raw",
			},
		},
		{
			name: "pulse explicit monitor",
			config: Config{
				Backend:    BackendPulse,
				SampleRate: 16000,
				Channels:   1,
				Encoding:   audio.F32LE,
				Device:     "alsa_output.usb.monitor",
			},
			wantName: "parec",
			expected: []string{
				"--device=alsa_output.usb.monitor",
				"--format=float32le",
				"--rate=16000",
				"--channels=1",
				"--raw",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, args := NewRecorder(tt.config).commandLine()
			if name != tt.wantName {
				t.Errorf("command = %q, want %q", name, tt.wantName)
			}
			if strings.Join(args, "|") != strings.Join(tt.expected, "|") {
				t.Errorf("args mismatch:\n got: %v\nwant: %v", args, tt.expected)
			}
		})
	}
}

func TestRecorderLifecycle(t *testing.T) {
	recorder := NewDefaultRecorder()

	t.Run("stop before start", func(t *testing.T) {
		if err := recorder.Stop(); err != nil {
			t.Errorf("stop should not error when not recording: %v", err)
		}
	})

	t.Run("invalid config fails start", func(t *testing.T) {
		config := DefaultConfig()
		config.BufferSize = 0
		if _, _, err := NewRecorder(config).Start(context.Background()); err == nil {
			t.Error("Start() should fail with invalid config")
		}
	})
}

// fakeCommand runs script in place of the capture tool.
func fakeCommand(t *testing.T, script string) func(context.Context, string, ...string) *exec.Cmd {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, sh, "-c", script)
	}
}

func TestRecorderDeliversFramesThenReportsExit(t *testing.T) {
	recorder := NewDefaultRecorder()
	recorder.command = fakeCommand(t, "exec head -c 20000 /dev/zero")

	frames, errs, err := recorder.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	total := 0
	for frame := range frames {
		total += len(frame.Data)
	}
	if total != 20000 {
		t.Errorf("received %d bytes, want 20000", total)
	}

	var reported []error
	for err := range errs {
		reported = append(reported, err)
	}
	if len(reported) != 1 {
		t.Fatalf("got %d errors, want exactly one", len(reported))
	}
	if !strings.Contains(reported[0].Error(), "exited unexpectedly") {
		t.Errorf("error = %v, want unexpected exit", reported[0])
	}

	recorder.Wait()
	if recorder.IsRecording() {
		t.Error("recorder should not be recording after capture ended")
	}
}

func TestRecorderStopEndsCaptureQuietly(t *testing.T) {
	recorder := NewDefaultRecorder()
	recorder.command = fakeCommand(t, "exec cat /dev/zero")

	frames, errs, err := recorder.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// take a few frames, then stop without draining the rest
	for i := 0; i < 3; i++ {
		if _, ok := <-frames; !ok {
			t.Fatal("frame channel closed early")
		}
	}
	if err := recorder.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		for range frames {
		}
		for err := range errs {
			t.Errorf("unexpected error after stop: %v", err)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("capture did not stop")
	}
	recorder.Wait()
}

func TestCheckAvailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// result depends on the host; it only has to return promptly
	done := make(chan struct{})
	go func() {
		_ = CheckAvailable(ctx, BackendPipeWire)
		_ = CheckAvailable(ctx, BackendPulse)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("CheckAvailable() hung with a cancelled context")
	}
}
