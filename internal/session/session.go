package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/leonardotrapani/livecc/internal/audio"
	"github.com/leonardotrapani/livecc/internal/recording"
	"github.com/leonardotrapani/livecc/internal/segmenter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session is one start-to-stop run: its own timeline, index space, buffer and
// cancellation.
type Session struct {
	ID        string
	StartTime time.Time

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
	logger zerolog.Logger

	// emitMu keeps index assignment and emission in the same order
	emitMu    sync.Mutex
	nextIndex atomic.Int64

	source    recording.Source
	converter *audio.Converter
	acc       *audio.Accumulator
	seg       *segmenter.Segmenter
	reorder   *Reorderer

	loops       sync.WaitGroup
	captureDone chan struct{}

	// inflight counts this session's transcription requests
	inflight sync.WaitGroup
	// fatal latches once the transcriber reports an unrecoverable error
	fatal atomic.Bool
}

func newSession(parent context.Context, now func() time.Time) *Session {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	return &Session{
		ID:        id,
		StartTime: now(),
		ctx:       ctx,
		cancel:    cancel,
		now:       now,
		logger:    log.With().Str("session", id).Logger(),
		acc:       audio.NewAccumulator(),

		captureDone: make(chan struct{}),
	}
}

// Elapsed is the wall-clock time since the session started.
func (s *Session) Elapsed() time.Duration {
	return s.now().Sub(s.StartTime)
}

// Segments returns how many segments the session has emitted.
func (s *Session) Segments() int {
	return int(s.nextIndex.Load())
}

// Chunks returns how many chunks the session has dispatched.
func (s *Session) Chunks() uint64 {
	if s.seg == nil {
		return 0
	}
	return s.seg.Dispatched()
}

// Buffered returns the number of canonical bytes waiting to be chunked.
func (s *Session) Buffered() int {
	return s.acc.Len()
}

// FormatTimeRange renders d as "[HH:MM:SS]". Hours are not wrapped at 24.
func FormatTimeRange(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("[%02d:%02d:%02d]", total/3600, total%3600/60, total%60)
}
