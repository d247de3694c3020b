package session

import (
	"sync"
	"time"
)

// Reorderer releases per-chunk results in chunk sequence order. Every sequence
// number must be resolved exactly once, with text or with "" when the chunk
// produced nothing. A gap older than timeout is skipped so one slow request
// cannot stall output forever; results for skipped sequences are released as
// soon as they arrive.
type Reorderer struct {
	mu      sync.Mutex
	next    uint64
	pending map[uint64]result
	timeout time.Duration
	now     func() time.Time

	release func(text string)
	skipped func(seq uint64)
}

type result struct {
	text    string
	arrived time.Time
}

func NewReorderer(timeout time.Duration, now func() time.Time, release func(string), skipped func(uint64)) *Reorderer {
	if now == nil {
		now = time.Now
	}
	if skipped == nil {
		skipped = func(uint64) {}
	}
	return &Reorderer{
		pending: make(map[uint64]result),
		timeout: timeout,
		now:     now,
		release: release,
		skipped: skipped,
	}
}

// Resolve records the outcome for seq and releases every result that is now
// in order.
func (r *Reorderer) Resolve(seq uint64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq < r.next {
		// its slot was skipped already
		if text != "" {
			r.release(text)
		}
		return
	}
	r.pending[seq] = result{text: text, arrived: r.now()}
	r.drainLocked()
}

// Expire skips the missing sequences in front of the queue once any held-back
// result has waited longer than the timeout.
func (r *Reorderer) Expire() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.pending) > 0 {
		if _, ok := r.pending[r.next]; !ok {
			if r.now().Sub(r.oldestArrivalLocked()) < r.timeout {
				return
			}
			r.skipToLocked(r.lowestLocked())
		}
		r.drainLocked()
	}
}

// Flush releases everything pending in order, skipping any gaps.
func (r *Reorderer) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.pending) > 0 {
		r.skipToLocked(r.lowestLocked())
		r.drainLocked()
	}
}

// Pending returns the number of results held back.
func (r *Reorderer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Reorderer) drainLocked() {
	for {
		res, ok := r.pending[r.next]
		if !ok {
			return
		}
		delete(r.pending, r.next)
		r.next++
		if res.text != "" {
			r.release(res.text)
		}
	}
}

func (r *Reorderer) skipToLocked(seq uint64) {
	for ; r.next < seq; r.next++ {
		r.skipped(r.next)
	}
}

func (r *Reorderer) lowestLocked() uint64 {
	first := true
	var lowest uint64
	for seq := range r.pending {
		if first || seq < lowest {
			lowest, first = seq, false
		}
	}
	return lowest
}

func (r *Reorderer) oldestArrivalLocked() time.Time {
	var oldest time.Time
	for _, res := range r.pending {
		if oldest.IsZero() || res.arrived.Before(oldest) {
			oldest = res.arrived
		}
	}
	return oldest
}
