package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/leonardotrapani/livecc/internal/audio"
	"github.com/rs/zerolog/log"
)

// ReaderSource replays PCM from an io.Reader, either raw in a known format or a
// WAV file. It ends quietly at EOF.
type ReaderSource struct {
	r      io.Reader
	closer io.Closer
	format audio.Format

	bufferSize int
	paced      bool

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ Source = (*ReaderSource)(nil)

type ReaderOption func(*ReaderSource)

// WithPacing delivers audio no faster than real time.
func WithPacing(paced bool) ReaderOption {
	return func(s *ReaderSource) { s.paced = paced }
}

func WithBufferSize(n int) ReaderOption {
	return func(s *ReaderSource) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// NewReaderSource treats r as raw interleaved PCM in format f.
func NewReaderSource(r io.Reader, f audio.Format, opts ...ReaderOption) (*ReaderSource, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s := &ReaderSource{r: r, format: f, bufferSize: 8192}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewWAVSource parses the WAV header from r and streams its data chunk.
func NewWAVSource(r io.Reader, opts ...ReaderOption) (*ReaderSource, error) {
	f, data, err := audio.ReadWAV(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	s, err := NewReaderSource(data, f, opts...)
	if err != nil {
		return nil, err
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// OpenFile opens a .wav file, or any other file as raw PCM in format raw.
func OpenFile(path string, raw audio.Format, opts ...ReaderOption) (*ReaderSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}

	var s *ReaderSource
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		s, err = NewWAVSource(f, opts...)
	} else {
		s, err = NewReaderSource(f, raw, opts...)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *ReaderSource) Format() audio.Format { return s.format }

func (s *ReaderSource) Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, nil, fmt.Errorf("already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	frameCh := make(chan AudioFrame, 30)
	errCh := make(chan error, 1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(errCh)
		defer close(frameCh)
		defer cancel()

		var pace *audio.Format
		if s.paced {
			pace = &s.format
		}
		err := pump(ctx, s.r, s.bufferSize, frameCh, pace)
		if s.closer != nil {
			if cerr := s.closer.Close(); cerr != nil {
				log.Debug().Err(cerr).Msg("recording: close reader")
			}
		}
		if err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
			errCh <- fmt.Errorf("read audio: %w", err)
		}
	}()

	return frameCh, errCh, nil
}

func (s *ReaderSource) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (s *ReaderSource) Wait() {
	s.wg.Wait()
}
