package events

import (
	"sync"
	"testing"
	"time"
)

func TestSink_FanOut(t *testing.T) {
	s := NewSink()

	var mu sync.Mutex
	var a, b []int
	s.OnSegment(func(seg Segment) {
		mu.Lock()
		a = append(a, seg.Index)
		mu.Unlock()
	})
	s.OnSegment(func(seg Segment) {
		mu.Lock()
		b = append(b, seg.Index)
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		s.EmitSegment(Segment{Index: i, Text: "x"})
	}
	s.Close()

	if len(a) != 5 || len(b) != 5 {
		t.Fatalf("subscribers got %d and %d segments, want 5 each", len(a), len(b))
	}
	for i := range a {
		if a[i] != i || b[i] != i {
			t.Errorf("delivery %d out of order: %d, %d", i, a[i], b[i])
		}
	}
}

func TestSink_PanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	s := NewSink()

	var got []string
	s.OnError(func(msg string) {
		if msg == "boom" {
			panic("subscriber failure")
		}
	})
	s.OnError(func(msg string) { got = append(got, msg) })

	s.EmitError("boom")
	s.EmitError("after")
	s.Close()

	if len(got) != 2 || got[0] != "boom" || got[1] != "after" {
		t.Errorf("got %v, want [boom after]", got)
	}
}

func TestSink_EmitDoesNotBlockOnSlowSubscriber(t *testing.T) {
	s := NewSink()
	release := make(chan struct{})
	s.OnStatus(func(string) { <-release })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			s.EmitStatus("status")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("EmitStatus() blocked behind a slow subscriber")
	}

	close(release)
	s.Close()
}

func TestSink_KindsAreIndependent(t *testing.T) {
	s := NewSink()
	block := make(chan struct{})
	s.OnStatus(func(string) { <-block })

	gotSegment := make(chan Segment, 1)
	s.OnSegment(func(seg Segment) { gotSegment <- seg })

	s.EmitStatus("stuck")
	s.EmitSegment(Segment{Text: "hello"})

	select {
	case seg := <-gotSegment:
		if seg.Text != "hello" {
			t.Errorf("segment text = %q, want hello", seg.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("segment delivery waited on the status subscriber")
	}

	close(block)
	s.Close()
}

func TestSink_CloseIdempotentAndDropsLateEvents(t *testing.T) {
	s := NewSink()
	count := 0
	s.OnStatus(func(string) { count++ })

	s.EmitStatus("one")
	s.Close()
	s.EmitStatus("late")
	s.Close()

	if count != 1 {
		t.Errorf("delivered %d statuses, want 1", count)
	}
}
