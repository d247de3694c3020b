package notify

import (
	"fmt"
	"os/exec"

	"github.com/leonardotrapani/livecc/internal/events"
	"github.com/rs/zerolog/log"
)

const appName = "livecc"

type Notifier interface {
	Status(msg string)
	Error(msg string)
}

// New returns the notifier for a notifications.type value. Unknown types get Nop.
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return NewDesktop()
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}

// Attach forwards status and error events from sink to n.
func Attach(sink *events.Sink, n Notifier) {
	sink.OnStatus(n.Status)
	sink.OnError(n.Error)
}

// Desktop sends notifications through notify-send.
type Desktop struct {
	run func(args ...string) error
}

func NewDesktop() *Desktop {
	return &Desktop{run: func(args ...string) error {
		return exec.Command("notify-send", args...).Run()
	}}
}

func (d *Desktop) Status(msg string) {
	if err := d.run("-a", appName, appName, msg); err != nil {
		log.Warn().Err(err).Msg("notify: failed to send notification")
	}
}

func (d *Desktop) Error(msg string) {
	if err := d.run("-a", appName, "-u", "critical", fmt.Sprintf("%s error", appName), msg); err != nil {
		log.Warn().Err(err).Msg("notify: failed to send error notification")
	}
}

// Log writes notifications to the application log.
type Log struct{}

func (Log) Status(msg string) {
	log.Info().Str("status", msg).Msg("notify: status")
}

func (Log) Error(msg string) {
	log.Error().Str("error", msg).Msg("notify: error")
}

// Nop is a Notifier that does absolutely nothing.
type Nop struct{}

func (Nop) Status(string) {}
func (Nop) Error(string)  {}
