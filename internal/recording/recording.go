package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/livecc/internal/audio"
	"github.com/rs/zerolog/log"
)

// AudioFrame is one read of native-format PCM from a source.
type AudioFrame struct {
	Data      []byte
	Timestamp time.Time
}

// Source delivers native-format PCM frames until stopped or until it fails. A
// failure is sent once on the error channel, after which both channels close.
type Source interface {
	Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error)
	Stop() error
	Wait()
	Format() audio.Format
}

type Backend string

const (
	BackendPipeWire Backend = "pipewire"
	BackendPulse    Backend = "pulse"
)

type Config struct {
	Backend           Backend
	SampleRate        int
	Channels          int
	Encoding          audio.Encoding
	BufferSize        int
	Device            string
	ChannelBufferSize int
}

func DefaultConfig() Config {
	return Config{
		Backend:           BackendPipeWire,
		SampleRate:        48000,
		Channels:          2,
		Encoding:          audio.S16LE,
		BufferSize:        8192,
		Device:            "",
		ChannelBufferSize: 30,
	}
}

func (c Config) AudioFormat() audio.Format {
	return audio.Format{SampleRate: c.SampleRate, Channels: c.Channels, Encoding: c.Encoding}
}

// Recorder captures the default sink's monitor (loopback) through pw-record or
// parec running as a child process.
type Recorder struct {
	config    Config
	recording atomic.Bool

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup

	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

var _ Source = (*Recorder)(nil)

func NewRecorder(config Config) *Recorder {
	return &Recorder{config: config, command: exec.CommandContext}
}

func NewDefaultRecorder() *Recorder { return NewRecorder(DefaultConfig()) }

func (r *Recorder) Format() audio.Format {
	return r.config.AudioFormat()
}

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

func (r *Recorder) Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error) {
	if r.recording.Load() {
		return nil, nil, fmt.Errorf("already recording")
	}

	if err := r.validateConfig(); err != nil {
		return nil, nil, err
	}

	recordingCtx, cancel := context.WithCancel(ctx)

	frameCh := make(chan AudioFrame, r.config.ChannelBufferSize)
	errCh := make(chan error, 1)

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	r.recording.Store(true)
	r.wg.Add(1)
	go r.captureLoop(recordingCtx, frameCh, errCh)

	return frameCh, errCh, nil
}

func (r *Recorder) Stop() error {
	if !r.recording.Load() {
		return nil
	}
	r.requestCancel()
	return nil
}

func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) captureLoop(ctx context.Context, frameCh chan<- AudioFrame, errCh chan<- error) {
	defer func() {
		close(frameCh)
		close(errCh)
		r.recording.Store(false)

		r.mu.Lock()
		if r.cmd != nil {
			_ = r.cmd.Wait()
			r.cmd = nil
		}
		r.cancel = nil
		r.mu.Unlock()

		r.wg.Done()
	}()

	name, args := r.commandLine()
	cmd := r.command(ctx, name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.emitErr(errCh, fmt.Errorf("create stdout pipe: %w", err))
		r.requestCancel()
		return
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		r.emitErr(errCh, fmt.Errorf("create stderr pipe: %w", err))
		r.requestCancel()
		return
	}

	if err := cmd.Start(); err != nil {
		r.emitErr(errCh, fmt.Errorf("start %s: %w", name, err))
		r.requestCancel()
		return
	}

	r.mu.Lock()
	r.cmd = cmd
	r.mu.Unlock()

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Debug().Str("backend", string(r.config.Backend)).Msgf("recording: stderr: %s", scanner.Text())
		}
	}()

	log.Info().
		Str("backend", string(r.config.Backend)).
		Str("format", r.Format().String()).
		Str("device", r.config.Device).
		Msg("recording: capture started")

	readErr := pump(ctx, stdout, r.config.BufferSize, frameCh, nil)
	switch {
	case ctx.Err() != nil:
		// stopped
	case errors.Is(readErr, io.EOF):
		r.emitErr(errCh, fmt.Errorf("%s exited unexpectedly", name))
		r.requestCancel()
	case readErr != nil:
		r.emitErr(errCh, fmt.Errorf("read audio: %w", readErr))
		r.requestCancel()
	}
}

func (r *Recorder) requestCancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Recorder) emitErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
	log.Error().Err(err).Msg("recording: capture failed")
}

func (r *Recorder) commandLine() (string, []string) {
	if r.config.Backend == BackendPulse {
		return "parec", r.buildParecArgs()
	}
	return "pw-record", r.buildPwRecordArgs()
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", pwRecordFormat(r.config.Encoding),
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
		"-P", "{ stream.capture.sink=true }",
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return append(args, "-") // stdout
}

func (r *Recorder) buildParecArgs() []string {
	device := r.config.Device
	if device == "" {
		device = "@DEFAULT_MONITOR@"
	}
	return []string{
		"--device=" + device,
		"--format=" + parecFormat(r.config.Encoding),
		"--rate=" + strconv.Itoa(r.config.SampleRate),
		"--channels=" + strconv.Itoa(r.config.Channels),
		"--raw",
	}
}

func pwRecordFormat(enc audio.Encoding) string {
	switch enc {
	case audio.S32LE:
		return "s32"
	case audio.F32LE:
		return "f32"
	default:
		return "s16"
	}
}

func parecFormat(enc audio.Encoding) string {
	switch enc {
	case audio.S32LE:
		return "s32le"
	case audio.F32LE:
		return "float32le"
	default:
		return "s16le"
	}
}

// CheckAvailable verifies that the capture tool for backend is installed and its
// sound server answers.
func CheckAvailable(ctx context.Context, backend Backend) error {
	tool, check := "pw-record", []string{"pw-cli", "info"}
	if backend == BackendPulse {
		tool, check = "parec", []string{"pactl", "info"}
	}

	if _, err := exec.LookPath(tool); err != nil {
		return fmt.Errorf("%s not found: %w", tool, err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := exec.CommandContext(checkCtx, check[0], check[1:]...).Run(); err != nil {
		return fmt.Errorf("%s sound server not running or accessible: %w", backend, err)
	}
	return nil
}

func (r *Recorder) validateConfig() error {
	switch r.config.Backend {
	case BackendPipeWire, BackendPulse:
	default:
		return fmt.Errorf("invalid Backend: %q", r.config.Backend)
	}
	if err := r.config.AudioFormat().Validate(); err != nil {
		return err
	}
	if r.config.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", r.config.BufferSize)
	}
	if r.config.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.config.ChannelBufferSize)
	}
	if frameBytes := r.config.AudioFormat().FrameSize(); r.config.BufferSize%frameBytes != 0 {
		log.Warn().Msgf("recording: BufferSize %d not aligned to frame size %d; audio frames may split",
			r.config.BufferSize, frameBytes)
	}
	return nil
}

// pump reads r in bufSize pieces and forwards each read as a frame. Sends block
// until the consumer takes the frame or ctx ends, so nothing is dropped. When
// pace is set, each read is held back by the duration of audio it carries.
func pump(ctx context.Context, r io.Reader, bufSize int, frameCh chan<- AudioFrame, pace *audio.Format) error {
	buffer := make([]byte, bufSize)
	var timer *time.Timer

	for {
		n, readErr := r.Read(buffer)
		if n > 0 {
			frame := AudioFrame{Data: append([]byte(nil), buffer[:n]...), Timestamp: time.Now()}

			if pace != nil {
				if timer == nil {
					timer = time.NewTimer(pace.Duration(n))
				} else {
					timer.Reset(pace.Duration(n))
				}
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				}
			}

			select {
			case frameCh <- frame:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if readErr != nil {
			return readErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
