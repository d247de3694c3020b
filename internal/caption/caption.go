// Package caption prints transcription events to a terminal as live captions.
package caption

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/livecc/internal/events"
	"github.com/muesli/termenv"
)

var (
	colorTime   = lipgloss.Color("#06B6D4")
	colorText   = lipgloss.Color("#F8FAFC")
	colorMuted  = lipgloss.Color("#94A3B8")
	colorError  = lipgloss.Color("#EF4444")
	colorStatus = lipgloss.Color("#7C3AED")
)

// Printer writes one line per event. It is safe for concurrent use.
type Printer struct {
	mu sync.Mutex
	w  io.Writer

	timeStyle     lipgloss.Style
	textStyle     lipgloss.Style
	originalStyle lipgloss.Style
	errorStyle    lipgloss.Style
	statusStyle   lipgloss.Style

	showOriginal bool
}

type Option func(*Printer)

// WithOriginal also prints the untranslated text under translated segments.
func WithOriginal() Option {
	return func(p *Printer) { p.showOriginal = true }
}

// NewPrinter creates a Printer for w. With color off every style renders plain
// text, which is what pipes and tests want.
func NewPrinter(w io.Writer, color bool, opts ...Option) *Printer {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}

	p := &Printer{
		w:             w,
		timeStyle:     r.NewStyle().Foreground(colorTime).Bold(true),
		textStyle:     r.NewStyle().Foreground(colorText),
		originalStyle: r.NewStyle().Foreground(colorMuted).Italic(true),
		errorStyle:    r.NewStyle().Foreground(colorError).Bold(true),
		statusStyle:   r.NewStyle().Foreground(colorStatus),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsTerminal reports whether w is a terminal that can take colors.
func IsTerminal(w io.Writer) bool {
	return termenv.NewOutput(w).Profile != termenv.Ascii
}

func (p *Printer) EmitSegment(seg events.Segment) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", p.timeStyle.Render(seg.TimeRange), p.textStyle.Render(seg.Text))
	if p.showOriginal && seg.Original != "" {
		indent := strings.Repeat(" ", len(seg.TimeRange)+1)
		fmt.Fprintf(&b, "%s%s\n", indent, p.originalStyle.Render(seg.Original))
	}
	p.write(b.String())
}

func (p *Printer) EmitError(msg string) {
	p.write(p.errorStyle.Render("ERROR:") + " " + msg + "\n")
}

func (p *Printer) EmitStatus(msg string) {
	p.write(p.statusStyle.Render("INFO:") + " " + msg + "\n")
}

func (p *Printer) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	io.WriteString(p.w, s)
}

// Attach subscribes p to every event kind of sink.
func (p *Printer) Attach(sink *events.Sink) {
	sink.OnSegment(p.EmitSegment)
	sink.OnError(p.EmitError)
	sink.OnStatus(p.EmitStatus)
}

var _ events.Emitter = (*Printer)(nil)
