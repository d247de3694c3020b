package caption

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/livecc/internal/events"
	"github.com/leonardotrapani/livecc/internal/testutil"
)

func TestPrinterLines(t *testing.T) {
	tests := []struct {
		name   string
		emit   func(p *Printer)
		opts   []Option
		expect string
	}{
		{
			name:   "segment",
			emit:   func(p *Printer) { p.EmitSegment(events.Segment{TimeRange: "[00:01:05]", Text: "hello there"}) },
			expect: "[00:01:05] hello there\n",
		},
		{
			name:   "error",
			emit:   func(p *Printer) { p.EmitError("Transcription error: API error: 401 - bad key") },
			expect: "ERROR: Transcription error: API error: 401 - bad key\n",
		},
		{
			name:   "status",
			emit:   func(p *Printer) { p.EmitStatus("Listening to system audio...") },
			expect: "INFO: Listening to system audio...\n",
		},
		{
			name: "original hidden by default",
			emit: func(p *Printer) {
				p.EmitSegment(events.Segment{TimeRange: "[00:00:03]", Text: "hola", Original: "hello"})
			},
			expect: "[00:00:03] hola\n",
		},
		{
			name: "original shown",
			emit: func(p *Printer) {
				p.EmitSegment(events.Segment{TimeRange: "[00:00:03]", Text: "hola", Original: "hello"})
			},
			opts:   []Option{WithOriginal()},
			expect: "[00:00:03] hola\n           hello\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := NewPrinter(&buf, false, tt.opts...)
			tt.emit(p)
			if buf.String() != tt.expect {
				t.Errorf("output = %q, want %q", buf.String(), tt.expect)
			}
		})
	}
}

func TestPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	p.EmitSegment(events.Segment{TimeRange: "[00:00:01]", Text: "hi"})

	if !strings.Contains(buf.String(), "hi") {
		t.Errorf("output lost the text: %q", buf.String())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPrinterAttach(t *testing.T) {
	sink := events.NewSink()
	defer sink.Close()

	var out syncBuffer
	NewPrinter(&out, false).Attach(sink)

	sink.EmitSegment(events.Segment{TimeRange: "[00:00:03]", Text: "first"})
	sink.EmitSegment(events.Segment{TimeRange: "[00:00:06]", Text: "second"})
	sink.EmitError("Audio capture error: gone")

	testutil.WaitForCondition(t, func() bool {
		s := out.String()
		return strings.Contains(s, "[00:00:06] second") && strings.Contains(s, "ERROR: Audio capture error: gone")
	}, 2*time.Second)

	s := out.String()
	if strings.Index(s, "first") > strings.Index(s, "second") {
		t.Errorf("segments out of order:\n%s", s)
	}
}
