package session

import (
	"slices"
	"testing"
	"time"

	"github.com/leonardotrapani/livecc/internal/testutil"
)

type reorderRecorder struct {
	released []string
	skipped  []uint64
}

func newTestReorderer(clock *testutil.FakeClock) (*Reorderer, *reorderRecorder) {
	rec := &reorderRecorder{}
	r := NewReorderer(10*time.Second, clock.Now,
		func(text string) { rec.released = append(rec.released, text) },
		func(seq uint64) { rec.skipped = append(rec.skipped, seq) })
	return r, rec
}

func TestReordererReleasesInSequence(t *testing.T) {
	tests := []struct {
		name     string
		order    []uint64
		expected []string
	}{
		{name: "in order", order: []uint64{0, 1, 2}, expected: []string{"r0", "r1", "r2"}},
		{name: "reversed", order: []uint64{2, 1, 0}, expected: []string{"r0", "r1", "r2"}},
		{name: "interleaved", order: []uint64{1, 0, 3, 2}, expected: []string{"r0", "r1", "r2", "r3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec := newTestReorderer(testutil.NewFakeClock())
			for _, seq := range tt.order {
				r.Resolve(seq, "r"+string(rune('0'+seq)))
			}
			if !slices.Equal(rec.released, tt.expected) {
				t.Errorf("released %v, want %v", rec.released, tt.expected)
			}
			if r.Pending() != 0 {
				t.Errorf("Pending() = %d, want 0", r.Pending())
			}
		})
	}
}

func TestReordererEmptyResultsFillSlots(t *testing.T) {
	r, rec := newTestReorderer(testutil.NewFakeClock())

	r.Resolve(2, "two")
	r.Resolve(0, "")
	if len(rec.released) != 0 {
		t.Fatalf("released %v before slot 1 resolved", rec.released)
	}
	r.Resolve(1, "")

	if !slices.Equal(rec.released, []string{"two"}) {
		t.Errorf("released %v, want [two]", rec.released)
	}
}

func TestReordererExpireSkipsStalledGap(t *testing.T) {
	clock := testutil.NewFakeClock()
	r, rec := newTestReorderer(clock)

	r.Resolve(1, "one")
	r.Resolve(3, "three")

	clock.Advance(9 * time.Second)
	r.Expire()
	if len(rec.released) != 0 {
		t.Fatalf("released %v before the timeout", rec.released)
	}

	clock.Advance(time.Second)
	r.Expire()
	if !slices.Equal(rec.released, []string{"one", "three"}) {
		t.Errorf("released %v, want [one three]", rec.released)
	}
	if !slices.Equal(rec.skipped, []uint64{0, 2}) {
		t.Errorf("skipped %v, want [0 2]", rec.skipped)
	}

	// a skipped result is still delivered when it shows up
	r.Resolve(0, "zero")
	r.Resolve(2, "")
	if !slices.Equal(rec.released, []string{"one", "three", "zero"}) {
		t.Errorf("released %v after late results", rec.released)
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", r.Pending())
	}
}

func TestReordererExpireWithNothingPending(t *testing.T) {
	clock := testutil.NewFakeClock()
	r, rec := newTestReorderer(clock)

	clock.Advance(time.Minute)
	r.Expire()
	r.Resolve(0, "zero")

	if len(rec.skipped) != 0 {
		t.Errorf("skipped %v with nothing pending", rec.skipped)
	}
	if !slices.Equal(rec.released, []string{"zero"}) {
		t.Errorf("released %v", rec.released)
	}
}

func TestReordererFlush(t *testing.T) {
	r, rec := newTestReorderer(testutil.NewFakeClock())

	r.Resolve(4, "four")
	r.Resolve(2, "two")
	r.Flush()

	if !slices.Equal(rec.released, []string{"two", "four"}) {
		t.Errorf("released %v, want [two four]", rec.released)
	}
	if !slices.Equal(rec.skipped, []uint64{0, 1, 3}) {
		t.Errorf("skipped %v, want [0 1 3]", rec.skipped)
	}
}
