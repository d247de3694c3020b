package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/livecc/internal/audio"
	"github.com/leonardotrapani/livecc/internal/events"
	"github.com/leonardotrapani/livecc/internal/metrics"
	"github.com/leonardotrapani/livecc/internal/recording"
	"github.com/leonardotrapani/livecc/internal/resilience"
	"github.com/leonardotrapani/livecc/internal/segmenter"
	"github.com/leonardotrapani/livecc/internal/transcriber"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyRunning = errors.New("transcription session already running")
	ErrDisposed       = errors.New("session controller disposed")
)

// Status messages emitted on the status channel.
const (
	StatusInitializing = "Initializing transcription..."
	StatusListening    = "Listening to system audio..."
	StatusStopped      = "Transcription stopped"
)

type Config struct {
	Segmenter      segmenter.Config
	RequestTimeout time.Duration
	// MaxConcurrent caps in-flight transcription requests, 0 means unlimited.
	MaxConcurrent int
	Retry         resilience.RetryConfig
	// Ordered releases segments in chunk order instead of completion order.
	Ordered        bool
	ReorderTimeout time.Duration
	DisposeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Segmenter:      segmenter.DefaultConfig(),
		RequestTimeout: 30 * time.Second,
		MaxConcurrent:  0,
		Retry:          resilience.DefaultRetryConfig(),
		Ordered:        false,
		ReorderTimeout: 10 * time.Second,
		DisposeTimeout: 5 * time.Second,
	}
}

// SourceFactory opens the capture source for a new session.
type SourceFactory func() (recording.Source, error)

type Option func(*Controller)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock replaces time.Now for session timestamps and time labels.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns the session lifecycle. At most one session runs at a time.
type Controller struct {
	config    Config
	newSource SourceFactory
	adapter   transcriber.Adapter
	events    events.Emitter
	metrics   *metrics.Metrics
	now       func() time.Time

	mu       sync.Mutex // guards current, last and disposed, serializes Start/Stop
	current  *Session
	last     *Session
	disposed bool

	sem chan struct{}
}

func New(config Config, newSource SourceFactory, adapter transcriber.Adapter, emitter events.Emitter, opts ...Option) (*Controller, error) {
	if err := config.Segmenter.Validate(); err != nil {
		return nil, fmt.Errorf("segmenter config: %w", err)
	}
	if newSource == nil || adapter == nil || emitter == nil {
		return nil, fmt.Errorf("session: source, adapter and emitter are required")
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.ReorderTimeout <= 0 {
		config.ReorderTimeout = 10 * time.Second
	}
	if config.DisposeTimeout <= 0 {
		config.DisposeTimeout = 5 * time.Second
	}

	c := &Controller{
		config:    config,
		newSource: newSource,
		adapter:   adapter,
		events:    emitter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if config.MaxConcurrent > 0 {
		c.sem = make(chan struct{}, config.MaxConcurrent)
	}
	return c, nil
}

func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Current returns the active session or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Start opens the source and begins capturing and transcribing. ctx bounds the
// session; Stop must still be called to release it.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrDisposed
	}
	if c.current != nil {
		return ErrAlreadyRunning
	}

	c.events.EmitStatus(StatusInitializing)

	source, err := c.newSource()
	if err != nil {
		c.events.EmitError("Audio capture error: " + err.Error())
		return fmt.Errorf("open capture source: %w", err)
	}
	converter, err := audio.NewConverter(source.Format())
	if err != nil {
		c.events.EmitError("Audio capture error: " + err.Error())
		return err
	}

	sess := newSession(ctx, c.now)
	sess.source = source
	sess.converter = converter
	sess.seg, err = segmenter.New(sess.acc, c.config.Segmenter, c.dispatcher(sess))
	if err != nil {
		sess.cancel()
		return err
	}
	if c.config.Ordered {
		sess.reorder = NewReorderer(c.config.ReorderTimeout, c.now,
			func(text string) { c.emitSegment(sess, text) },
			func(seq uint64) {
				c.metrics.RecordSkipped()
				sess.logger.Warn().Uint64("seq", seq).Msg("session: reorder timeout, skipping chunk")
			})
	}

	frames, errs, err := source.Start(sess.ctx)
	if err != nil {
		sess.cancel()
		c.metrics.RecordCaptureError()
		c.events.EmitError("Audio capture error: " + err.Error())
		return fmt.Errorf("start capture: %w", err)
	}

	sess.loops.Add(2)
	go c.captureLoop(sess, frames, errs)
	go func() {
		defer sess.loops.Done()
		sess.seg.Run(sess.ctx)
	}()
	if sess.reorder != nil {
		sess.loops.Add(1)
		go c.expireLoop(sess)
	}

	c.current = sess
	c.last = sess
	c.metrics.SessionStarted()
	sess.logger.Info().
		Str("format", source.Format().String()).
		Int("min_chunk_bytes", c.config.Segmenter.MinBytes).
		Int("max_chunk_bytes", c.config.Segmenter.MaxBytes).
		Bool("ordered", c.config.Ordered).
		Msg("session: started")
	c.events.EmitStatus(StatusListening)
	return nil
}

// Stop cancels the active session and waits for its capture and segmenter loops.
// In-flight requests are cancelled but not waited for. No-op when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	sess := c.current
	if sess == nil {
		return
	}
	c.current = nil

	sess.cancel()
	if err := sess.source.Stop(); err != nil {
		sess.logger.Debug().Err(err).Msg("session: stop source")
	}
	sess.loops.Wait()
	sess.source.Wait()

	c.metrics.SessionEnded()
	sess.logger.Info().
		Dur("elapsed", sess.Elapsed()).
		Uint64("chunks", sess.Chunks()).
		Int("segments", sess.Segments()).
		Int("dropped_bytes", sess.acc.Len()).
		Msg("session: stopped")
	sess.acc.Reset()
	c.events.EmitStatus(StatusStopped)
}

// Drain runs the current session to the end of a finite source such as a file:
// it waits for capture to end, sends the buffered tail as a final chunk, waits
// for every request and then stops the session. ctx bounds the wait.
func (c *Controller) Drain(ctx context.Context) error {
	sess := c.Current()
	if sess == nil {
		return nil
	}

	select {
	case <-sess.captureDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	// full chunks go through the segmenter as usual
	for sess.acc.Len() >= c.config.Segmenter.MinBytes {
		select {
		case <-time.After(c.config.Segmenter.PollInterval):
		case <-sess.ctx.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return nil
	}
	if n := sess.seg.Flush(); n > 0 {
		sess.logger.Debug().Int("chunks", n).Msg("session: flushed buffered tail")
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		sess.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == sess {
		c.stopLocked()
	}
	return nil
}

// Dispose stops any session, waits up to DisposeTimeout for in-flight requests
// and closes the adapter. Safe to call repeatedly; failures are only logged.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	last := c.last
	c.stopLocked()
	c.mu.Unlock()

	if last != nil {
		done := make(chan struct{})
		go func() {
			last.inflight.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(c.config.DisposeTimeout):
			log.Warn().Dur("timeout", c.config.DisposeTimeout).Msg("session: gave up waiting for in-flight requests")
		}
	}

	if last != nil && last.reorder != nil {
		last.reorder.Flush()
	}

	if closer, ok := c.adapter.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Debug().Err(err).Msg("session: close adapter")
		}
	}
}

func (c *Controller) captureLoop(sess *Session, frames <-chan recording.AudioFrame, errs <-chan error) {
	defer sess.loops.Done()
	defer close(sess.captureDone)

	for frames != nil || errs != nil {
		select {
		case <-sess.ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			pcm := sess.converter.Convert(frame.Data)
			sess.acc.Append(pcm)
			c.metrics.RecordCapture(len(pcm), sess.acc.Len())
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.metrics.RecordCaptureError()
			sess.logger.Error().Err(err).Msg("session: capture failed")
			c.events.EmitError("Audio capture error: " + err.Error())
		}
	}
	sess.logger.Debug().Msg("session: capture source ended")
}

func (c *Controller) expireLoop(sess *Session) {
	defer sess.loops.Done()

	ticker := time.NewTicker(c.config.Segmenter.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-ticker.C:
			sess.reorder.Expire()
		}
	}
}

// dispatcher hands each chunk to its own goroutine so the segmenter never waits
// on the network.
func (c *Controller) dispatcher(sess *Session) segmenter.DispatchFunc {
	return func(chunk segmenter.Chunk) {
		if sess.fatal.Load() {
			sess.logger.Debug().Uint64("seq", chunk.Seq).Msg("session: transcriber unusable, chunk dropped")
			c.resolve(sess, chunk.Seq, "")
			return
		}
		c.metrics.RecordChunk(audio.Canonical.Duration(len(chunk.Data)).Seconds(), sess.acc.Len())
		sess.inflight.Add(1)
		go func() {
			defer sess.inflight.Done()
			c.transcribe(sess, chunk)
		}()
	}
}

func (c *Controller) transcribe(sess *Session, chunk segmenter.Chunk) {
	logger := sess.logger.With().Uint64("seq", chunk.Seq).Logger()

	release := func() {}
	if c.sem != nil {
		select {
		case c.sem <- struct{}{}:
			release = func() { <-c.sem }
		case <-sess.ctx.Done():
			logger.Debug().Msg("session: stopped before request was sent")
			c.resolve(sess, chunk.Seq, "")
			return
		}
	}
	// a chunk queued behind a fatal failure is not sent
	if sess.fatal.Load() {
		release()
		c.resolve(sess, chunk.Seq, "")
		return
	}

	c.metrics.RequestStarted()
	start := time.Now()

	var text string
	err := resilience.Retry(sess.ctx, c.config.Retry, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
		t, err := c.adapter.Transcribe(reqCtx, chunk.Data)
		if err != nil {
			return err
		}
		text = t
		return nil
	}, transcriber.IsTransient, func(attempt int, err error, wait time.Duration) {
		c.metrics.RecordRetry()
		logger.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("session: retrying transcription")
	})
	took := time.Since(start)
	// the slot is free before anything is emitted
	release()
	text = strings.TrimSpace(text)

	switch {
	case err != nil:
		c.metrics.ObserveTranscription(metrics.ResultError, took.Seconds())
		switch {
		case sess.ctx.Err() != nil:
			// the session ended underneath the request
			logger.Debug().Err(err).Msg("session: request cancelled by stop")
		case transcriber.IsFatalTranscriptionError(err):
			if sess.fatal.CompareAndSwap(false, true) {
				logger.Error().Err(err).Msg("session: transcriber unusable, no further chunks will be sent")
				c.events.EmitError("Transcription error: " + err.Error())
			}
		default:
			logger.Error().Err(err).Dur("took", took).Msg("session: transcription failed")
			c.events.EmitError("Transcription error: " + err.Error())
		}
		c.resolve(sess, chunk.Seq, "")

	case text == "":
		c.metrics.ObserveTranscription(metrics.ResultEmpty, took.Seconds())
		logger.Debug().Dur("took", took).Msg("session: empty transcription")
		c.resolve(sess, chunk.Seq, "")

	default:
		c.metrics.ObserveTranscription(metrics.ResultSuccess, took.Seconds())
		logger.Debug().Dur("took", took).Int("chars", len(text)).Msg("session: transcribed chunk")
		c.resolve(sess, chunk.Seq, text)
	}
}

// resolve settles a chunk's outcome, through the reorder buffer when ordered.
func (c *Controller) resolve(sess *Session, seq uint64, text string) {
	if sess.reorder != nil {
		sess.reorder.Resolve(seq, text)
		return
	}
	if text != "" {
		c.emitSegment(sess, text)
	}
}

func (c *Controller) emitSegment(sess *Session, text string) {
	sess.emitMu.Lock()
	defer sess.emitMu.Unlock()

	index := int(sess.nextIndex.Add(1) - 1)
	c.events.EmitSegment(events.Segment{
		SessionID: sess.ID,
		TimeRange: FormatTimeRange(sess.Elapsed()),
		Text:      text,
		Index:     index,
	})
	c.metrics.RecordSegment()
}
