// Package notify is the non-blocking toast channel user facing errors and
// status messages go through. Every toast is also logged.
package notify

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"chatterapi/internal/logging"
)

// Level is the severity of a toast
type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Toast is one notification
type Toast struct {
	Level   Level
	Message string
	Time    time.Time
}

// Notifier publishes toasts without ever blocking the sender
type Notifier struct {
	toasts chan Toast
	logger zerolog.Logger
}

// DefaultBuffer is the number of undelivered toasts kept before new ones drop
const DefaultBuffer = 32

// New creates a Notifier with room for buffer undelivered toasts
func New(logger zerolog.Logger, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Notifier{
		toasts: make(chan Toast, buffer),
		logger: logging.Component(logger, "notify"),
	}
}

// Toasts is the stream UIs drain
func (n *Notifier) Toasts() <-chan Toast {
	return n.toasts
}

// Notify logs msg and offers it to the toast channel. A full channel drops
// the toast; the log line remains.
func (n *Notifier) Notify(level Level, msg string) {
	var ev *zerolog.Event
	switch level {
	case Error:
		ev = n.logger.Error()
	case Warn:
		ev = n.logger.Warn()
	default:
		ev = n.logger.Info()
	}
	ev.Msg(msg)

	select {
	case n.toasts <- Toast{Level: level, Message: msg, Time: time.Now()}:
	default:
		n.logger.Debug().Str("message", msg).Msg("Toast dropped, channel full")
	}
}

// Infof notifies at Info level
func (n *Notifier) Infof(format string, args ...any) {
	n.Notify(Info, fmt.Sprintf(format, args...))
}

// Warnf notifies at Warn level
func (n *Notifier) Warnf(format string, args ...any) {
	n.Notify(Warn, fmt.Sprintf(format, args...))
}

// Errorf notifies at Error level
func (n *Notifier) Errorf(format string, args ...any) {
	n.Notify(Error, fmt.Sprintf(format, args...))
}

// Drain returns the toasts currently queued without waiting
func (n *Notifier) Drain() []Toast {
	var out []Toast
	for {
		select {
		case t := <-n.toasts:
			out = append(out, t)
		default:
			return out
		}
	}
}
