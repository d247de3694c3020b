package segmenter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/livecc/internal/audio"
	"github.com/rs/zerolog/log"
)

type State int32

const (
	Waiting State = iota
	Draining
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Draining:
		return "draining"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Chunk is a slice of canonical audio handed to the transcriber exactly once.
// Seq counts chunks within a segmenter run, starting at 0.
type Chunk struct {
	Seq       uint64
	Data      []byte
	CreatedAt time.Time
}

type Config struct {
	MinBytes     int
	MaxBytes     int
	PollInterval time.Duration
}

// NewConfig derives byte thresholds from durations of canonical audio. MaxBytes
// is rounded down to whole frames.
func NewConfig(minDur, maxDur, poll time.Duration) Config {
	return Config{
		MinBytes:     audio.Canonical.Bytes(minDur),
		MaxBytes:     audio.Canonical.Bytes(maxDur),
		PollInterval: poll,
	}
}

func DefaultConfig() Config {
	return NewConfig(3*time.Second, 30*time.Second, 200*time.Millisecond)
}

func (c Config) Validate() error {
	if c.MinBytes <= 0 {
		return fmt.Errorf("invalid MinBytes: %d", c.MinBytes)
	}
	if c.MaxBytes < c.MinBytes {
		return fmt.Errorf("MaxBytes %d below MinBytes %d", c.MaxBytes, c.MinBytes)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid PollInterval: %v", c.PollInterval)
	}
	return nil
}

// DispatchFunc receives each chunk. It must not block.
type DispatchFunc func(Chunk)

// Segmenter polls an accumulator and slices it into chunks of at least MinBytes
// and at most MaxBytes.
type Segmenter struct {
	acc      *audio.Accumulator
	config   Config
	dispatch DispatchFunc

	// mu covers draining and sequence assignment so Flush and Run agree on order
	mu    sync.Mutex
	state atomic.Int32
	seq   uint64
	now   func() time.Time
}

func New(acc *audio.Accumulator, config Config, dispatch DispatchFunc) (*Segmenter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if acc == nil || dispatch == nil {
		return nil, fmt.Errorf("segmenter: accumulator and dispatch are required")
	}
	return &Segmenter{acc: acc, config: config, dispatch: dispatch, now: time.Now}, nil
}

func (s *Segmenter) State() State {
	return State(s.state.Load())
}

// Dispatched returns the number of chunks handed out so far.
func (s *Segmenter) Dispatched() uint64 {
	return atomic.LoadUint64(&s.seq)
}

// Run drives the Waiting/Draining cycle until ctx is cancelled. It returns within
// one poll interval of cancellation and never dispatches after observing it.
func (s *Segmenter) Run(ctx context.Context) {
	timer := time.NewTimer(s.config.PollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		if s.tryDispatch(ctx) {
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.config.PollInterval)

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

func (s *Segmenter) tryDispatch(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.acc.TryDrain(s.config.MinBytes, s.config.MaxBytes)
	if !ok {
		return false
	}
	s.state.Store(int32(Draining))
	defer s.state.Store(int32(Waiting))
	if ctx.Err() != nil {
		// drained bytes belong to a cancelled session
		return false
	}
	s.dispatchLocked(data)
	return true
}

// Flush dispatches everything still buffered, below MinBytes included, in
// chunks of at most MaxBytes. It returns the number of chunks dispatched.
func (s *Segmenter) Flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for {
		data := s.acc.Drain(s.config.MaxBytes)
		if len(data) == 0 {
			return n
		}
		s.dispatchLocked(data)
		n++
	}
}

func (s *Segmenter) dispatchLocked(data []byte) {
	chunk := Chunk{Seq: atomic.AddUint64(&s.seq, 1) - 1, Data: data, CreatedAt: s.now()}
	log.Debug().
		Uint64("seq", chunk.Seq).
		Int("bytes", len(data)).
		Dur("audio", audio.Canonical.Duration(len(data))).
		Msg("segmenter: dispatching chunk")
	s.dispatch(chunk)
}
