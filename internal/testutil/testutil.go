package testutil

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leonardotrapani/livecc/internal/audio"
	"github.com/leonardotrapani/livecc/internal/events"
	"github.com/leonardotrapani/livecc/internal/recording"
)

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within %v", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Silence returns n bytes of canonical audio filled with b, so tests can tell
// chunks apart by content.
func Silence(n int, b byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = b
	}
	return data
}

// MockSource is a recording.Source fed by the test. Frames pushed before Start
// are buffered.
type MockSource struct {
	StartError error
	format     audio.Format

	frames chan recording.AudioFrame
	errs   chan error

	started atomic.Bool
	stopped atomic.Int32
	once    sync.Once
}

var _ recording.Source = (*MockSource)(nil)

// NewMockSource creates a source that already produces canonical audio.
func NewMockSource() *MockSource {
	return &MockSource{
		format: audio.Canonical,
		frames: make(chan recording.AudioFrame, 64),
		errs:   make(chan error, 1),
	}
}

func (m *MockSource) Format() audio.Format { return m.format }

func (m *MockSource) Start(ctx context.Context) (<-chan recording.AudioFrame, <-chan error, error) {
	if m.StartError != nil {
		return nil, nil, m.StartError
	}
	m.started.Store(true)
	return m.frames, m.errs, nil
}

func (m *MockSource) Stop() error {
	m.stopped.Add(1)
	return nil
}

func (m *MockSource) Wait() {}

// Push delivers one frame.
func (m *MockSource) Push(data []byte) {
	m.frames <- recording.AudioFrame{Data: data, Timestamp: time.Now()}
}

// Fail reports err once and closes both channels, like a device that went away.
func (m *MockSource) Fail(err error) {
	m.once.Do(func() {
		m.errs <- err
		close(m.errs)
		close(m.frames)
	})
}

// End closes both channels without an error, like a file reaching EOF.
func (m *MockSource) End() {
	m.once.Do(func() {
		close(m.errs)
		close(m.frames)
	})
}

func (m *MockSource) Started() bool { return m.started.Load() }

func (m *MockSource) StopCalls() int { return int(m.stopped.Load()) }

// MockTranscriberAdapter implements transcriber.Adapter for testing. Every call
// is announced on Calls before TranscribeFunc runs.
type MockTranscriberAdapter struct {
	TranscribeFunc func(ctx context.Context, pcm []byte) (string, error)
	Calls          chan []byte

	closed atomic.Int32
	count  atomic.Int32
}

// NewMockTranscriberAdapter creates a mock transcriber adapter
func NewMockTranscriberAdapter(fn func(ctx context.Context, pcm []byte) (string, error)) *MockTranscriberAdapter {
	return &MockTranscriberAdapter{TranscribeFunc: fn, Calls: make(chan []byte, 64)}
}

func (m *MockTranscriberAdapter) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	m.count.Add(1)
	select {
	case m.Calls <- pcm:
	default:
	}
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, pcm)
	}
	return "mock transcription", nil
}

func (m *MockTranscriberAdapter) Close() error {
	m.closed.Add(1)
	return nil
}

func (m *MockTranscriberAdapter) CallCount() int { return int(m.count.Load()) }

func (m *MockTranscriberAdapter) Closed() int { return int(m.closed.Load()) }

// WaitCall returns the audio of the next transcription call.
func (m *MockTranscriberAdapter) WaitCall(t *testing.T) []byte {
	t.Helper()
	select {
	case pcm := <-m.Calls:
		return pcm
	case <-time.After(5 * time.Second):
		t.Fatal("transcriber was not called")
		return nil
	}
}

// EventRecorder is a synchronous events.Emitter that keeps everything it sees.
type EventRecorder struct {
	mu       sync.Mutex
	segments []events.Segment
	errors   []string
	statuses []string
}

var _ events.Emitter = (*EventRecorder)(nil)

func NewEventRecorder() *EventRecorder { return &EventRecorder{} }

func (r *EventRecorder) EmitSegment(seg events.Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments = append(r.segments, seg)
}

func (r *EventRecorder) EmitError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *EventRecorder) EmitStatus(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, msg)
}

func (r *EventRecorder) Segments() []events.Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.segments)
}

func (r *EventRecorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.errors)
}

func (r *EventRecorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.statuses)
}

// WaitSegments blocks until at least n segments arrived and returns them.
func (r *EventRecorder) WaitSegments(t *testing.T, n int) []events.Segment {
	t.Helper()
	WaitForCondition(t, func() bool { return len(r.Segments()) >= n }, 5*time.Second)
	return r.Segments()
}

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
