package audio

import "sync"

// Accumulator is the byte queue between capture and segmentation. Appends go to the
// tail, drains take from the head. Every operation holds the lock only long enough to
// copy bytes in or out.
type Accumulator struct {
	mu   sync.Mutex
	data []byte

	appended int64
	drained  int64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Append copies p onto the tail.
func (a *Accumulator) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	a.mu.Lock()
	a.data = append(a.data, p...)
	a.appended += int64(len(p))
	a.mu.Unlock()
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.data)
}

// Drain removes up to max bytes from the head and returns a copy of them.
func (a *Accumulator) Drain(max int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.drainLocked(max)
}

// TryDrain drains up to max bytes only if at least min bytes are buffered. The check
// and the removal happen under one lock.
func (a *Accumulator) TryDrain(min, max int) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.data) == 0 || len(a.data) < min {
		return nil, false
	}
	return a.drainLocked(max), true
}

func (a *Accumulator) drainLocked(max int) []byte {
	n := len(a.data)
	if max > 0 && n > max {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]byte, n)
	copy(out, a.data[:n])

	// shift the remainder down so the backing array does not grow without bound
	rest := copy(a.data, a.data[n:])
	a.data = a.data[:rest]
	a.drained += int64(n)

	return out
}

// Reset discards everything buffered. The discarded bytes count as drained.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.drained += int64(len(a.data))
	a.data = a.data[:0]
	a.mu.Unlock()
}

// Totals returns the number of bytes ever appended and drained.
func (a *Accumulator) Totals() (appended, drained int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appended, a.drained
}
