package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Segment is one transcription result. Index is unique and increasing within a
// session; TimeRange is the "[HH:MM:SS]" elapsed-time label.
type Segment struct {
	SessionID string `json:"session_id"`
	TimeRange string `json:"time_range"`
	Text      string `json:"text"`
	Index     int    `json:"index"`

	// Original holds the untranslated text when a translator rewrote Text.
	Original string `json:"original,omitempty"`
}

// Emitter is the outbound side of the pipeline.
type Emitter interface {
	EmitSegment(Segment)
	EmitError(msg string)
	EmitStatus(msg string)
}

// Sink fans events out to subscribers. Each event kind has its own unbounded
// mailbox drained by a dedicated goroutine, so emitting never blocks and a slow
// subscriber only delays its own kind.
type Sink struct {
	segments *mailbox[Segment]
	errors   *mailbox[string]
	statuses *mailbox[string]

	closeOnce sync.Once
}

var _ Emitter = (*Sink)(nil)

func NewSink() *Sink {
	s := &Sink{
		segments: newMailbox[Segment]("segment"),
		errors:   newMailbox[string]("error"),
		statuses: newMailbox[string]("status"),
	}
	go s.segments.run()
	go s.errors.run()
	go s.statuses.run()
	return s
}

func (s *Sink) OnSegment(fn func(Segment)) { s.segments.subscribe(fn) }
func (s *Sink) OnError(fn func(string))    { s.errors.subscribe(fn) }
func (s *Sink) OnStatus(fn func(string))   { s.statuses.subscribe(fn) }

func (s *Sink) EmitSegment(seg Segment) { s.segments.push(seg) }
func (s *Sink) EmitError(msg string)    { s.errors.push(msg) }
func (s *Sink) EmitStatus(msg string)   { s.statuses.push(msg) }

// Close stops accepting events, delivers everything already queued and waits
// for the dispatchers to exit. Safe to call more than once.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		s.segments.close()
		s.errors.close()
		s.statuses.close()
	})
	<-s.segments.done
	<-s.errors.done
	<-s.statuses.done
}

type mailbox[T any] struct {
	kind string

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []T
	handlers []func(T)
	closed   bool

	done chan struct{}
}

func newMailbox[T any](kind string) *mailbox[T] {
	m := &mailbox[T]{kind: kind, done: make(chan struct{})}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox[T]) subscribe(fn func(T)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.handlers = append(m.handlers[:len(m.handlers):len(m.handlers)], fn)
	m.mu.Unlock()
}

func (m *mailbox[T]) push(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		log.Debug().Str("kind", m.kind).Msg("events: dropped event after close")
		return
	}
	m.queue = append(m.queue, v)
	m.cond.Signal()
}

func (m *mailbox[T]) close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
}

func (m *mailbox[T]) run() {
	defer close(m.done)

	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		v := m.queue[0]
		var zero T
		m.queue[0] = zero
		m.queue = m.queue[1:]
		handlers := m.handlers
		m.mu.Unlock()

		for _, h := range handlers {
			m.deliver(h, v)
		}
	}
}

func (m *mailbox[T]) deliver(h func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("kind", m.kind).Interface("panic", r).Msg("events: subscriber panicked")
		}
	}()
	h(v)
}
