package translate

import (
	"context"
	"sync"
	"time"

	"github.com/leonardotrapani/livecc/internal/events"
	"github.com/rs/zerolog/log"
)

// Handler is an events.Emitter that translates segments before passing them on.
// Events are queued and forwarded in arrival order by a single worker, so the
// emitting side never waits on the translation API. When translation fails the
// original text goes through unchanged.
type Handler struct {
	next       events.Emitter
	translator Translator
	timeout    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

var _ events.Emitter = (*Handler)(nil)

// NewHandler starts the worker. Cancelling ctx aborts pending translations;
// their segments are forwarded untranslated.
func NewHandler(ctx context.Context, next events.Emitter, translator Translator, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	h := &Handler{
		next:       next,
		translator: translator,
		timeout:    timeout,
		done:       make(chan struct{}),
	}
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.cond = sync.NewCond(&h.mu)
	go h.run()
	return h
}

func (h *Handler) EmitSegment(seg events.Segment) {
	h.push(func() { h.next.EmitSegment(h.translate(seg)) })
}

func (h *Handler) EmitError(msg string) { h.push(func() { h.next.EmitError(msg) }) }

func (h *Handler) EmitStatus(msg string) { h.push(func() { h.next.EmitStatus(msg) }) }

// Close stops accepting events, forwards everything already queued and waits
// for the worker to exit. Safe to call more than once.
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	h.cond.Broadcast()
	h.mu.Unlock()

	<-h.done
	h.cancel()
}

func (h *Handler) translate(seg events.Segment) events.Segment {
	ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
	defer cancel()

	translated, err := h.translator.Translate(ctx, seg.Text)
	switch {
	case err != nil:
		log.Warn().Err(err).Int("index", seg.Index).Msg("translate: keeping original text")
	case translated != "":
		seg.Original = seg.Text
		seg.Text = translated
	}
	return seg
}

func (h *Handler) push(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		log.Debug().Msg("translate: dropped event after close")
		return
	}
	h.queue = append(h.queue, fn)
	h.cond.Signal()
}

func (h *Handler) run() {
	defer close(h.done)

	for {
		h.mu.Lock()
		for len(h.queue) == 0 && !h.closed {
			h.cond.Wait()
		}
		if len(h.queue) == 0 {
			h.mu.Unlock()
			return
		}
		fn := h.queue[0]
		h.queue[0] = nil
		h.queue = h.queue[1:]
		h.mu.Unlock()

		fn()
	}
}
