package audio

import (
	"bytes"
	"sync"
	"testing"
)

func TestAccumulator_AppendDrainOrder(t *testing.T) {
	acc := NewAccumulator()
	acc.Append([]byte{1, 2, 3})
	acc.Append(nil)
	acc.Append([]byte{4, 5})

	if got := acc.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}

	first := acc.Drain(2)
	if !bytes.Equal(first, []byte{1, 2}) {
		t.Errorf("first drain = %v, want [1 2]", first)
	}
	rest := acc.Drain(0)
	if !bytes.Equal(rest, []byte{3, 4, 5}) {
		t.Errorf("second drain = %v, want [3 4 5]", rest)
	}
	if got := acc.Drain(10); got != nil {
		t.Errorf("drain of empty accumulator = %v, want nil", got)
	}

	appended, drained := acc.Totals()
	if appended != 5 || drained != 5 {
		t.Errorf("Totals() = %d, %d; want 5, 5", appended, drained)
	}
}

func TestAccumulator_TryDrainThreshold(t *testing.T) {
	acc := NewAccumulator()
	acc.Append(make([]byte, 9))

	if _, ok := acc.TryDrain(10, 20); ok {
		t.Fatal("TryDrain() should wait for the minimum")
	}
	if acc.Len() != 9 {
		t.Fatalf("failed TryDrain() must not remove bytes, Len() = %d", acc.Len())
	}

	acc.Append(make([]byte, 21))
	chunk, ok := acc.TryDrain(10, 20)
	if !ok {
		t.Fatal("TryDrain() should drain once the minimum is reached")
	}
	if len(chunk) != 20 {
		t.Errorf("chunk size = %d, want max 20", len(chunk))
	}
	if acc.Len() != 10 {
		t.Errorf("Len() after drain = %d, want 10", acc.Len())
	}
}

func TestAccumulator_DrainReturnsCopy(t *testing.T) {
	acc := NewAccumulator()
	src := []byte{1, 2, 3, 4}
	acc.Append(src)
	src[0] = 9

	chunk := acc.Drain(2)
	if chunk[0] != 1 {
		t.Error("Append() should copy its input")
	}

	acc.Append([]byte{5, 6})
	if chunk[0] != 1 || chunk[1] != 2 {
		t.Error("drained chunk should not alias the buffer")
	}
}

func TestAccumulator_Reset(t *testing.T) {
	acc := NewAccumulator()
	acc.Append(make([]byte, 7))
	acc.Reset()

	if acc.Len() != 0 {
		t.Errorf("Len() after Reset() = %d, want 0", acc.Len())
	}
	appended, drained := acc.Totals()
	if appended != drained {
		t.Errorf("Totals() after Reset() = %d, %d; want equal", appended, drained)
	}
}

// Concurrent appends and drains must neither lose nor duplicate bytes.
func TestAccumulator_ConcurrentNoLossNoDuplication(t *testing.T) {
	acc := NewAccumulator()

	const writes = 2000
	var want bytes.Buffer
	for i := 0; i < writes; i++ {
		want.Write([]byte{byte(i), byte(i >> 8), byte(i % 7)})
	}
	src := want.Bytes()

	var (
		wg  sync.WaitGroup
		got bytes.Buffer
	)
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for off := 0; off < len(src); off += 3 {
			acc.Append(src[off : off+3])
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				got.Write(acc.Drain(0))
				return
			default:
			}
			if chunk, ok := acc.TryDrain(64, 128); ok {
				if len(chunk) > 128 {
					t.Errorf("chunk of %d bytes exceeds max 128", len(chunk))
				}
				got.Write(chunk)
			}
		}
	}()

	wg.Wait()

	if !bytes.Equal(got.Bytes(), src) {
		t.Fatalf("drained stream differs from appended stream (%d vs %d bytes)", got.Len(), len(src))
	}
	appended, drained := acc.Totals()
	if appended != int64(len(src)) || drained != appended {
		t.Errorf("Totals() = %d, %d; want %d, %d", appended, drained, len(src), len(src))
	}
}
