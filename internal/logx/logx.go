// Package logx defines the logging sink capability the core consumes,
// per spec: the client never logs to a global facility, it only calls
// through a caller-injected Sink. A default op/go-logging-backed
// implementation is provided for convenience.
package logx

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	logging "github.com/op/go-logging"
)

// Sink is the logging capability a Client consumes. Implementations
// must be safe for concurrent use, since the multiplexer's reader
// goroutine and caller goroutines may both log at once.
type Sink interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// noop discards everything; used when a caller does not supply a Sink.
type noop struct{}

func (noop) Debugf(string, ...interface{})   {}
func (noop) Infof(string, ...interface{})    {}
func (noop) Warningf(string, ...interface{}) {}
func (noop) Errorf(string, ...interface{})   {}

// Noop returns a Sink that discards every message.
func Noop() Sink { return noop{} }

// loggingSink adapts an *op/go-logging Logger to Sink, the way the
// teacher's ControlServer and version-check helpers hold a
// *logging.Logger directly.
type loggingSink struct {
	logger *logging.Logger
}

// NewLogging wraps an existing *logging.Logger.
func NewLogging(logger *logging.Logger) Sink {
	return &loggingSink{logger: logger}
}

func (l *loggingSink) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }
func (l *loggingSink) Infof(format string, args ...interface{})    { l.logger.Infof(format, args...) }
func (l *loggingSink) Warningf(format string, args ...interface{}) { l.logger.Warningf(format, args...) }
func (l *loggingSink) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }

// NewDefault builds a ready-to-use op/go-logging backend writing to
// os.Stderr, named module. When stderr is attached to a terminal the
// timestamp, level and module prefix are tinted in one fixed color; the
// color does not vary by level.
func NewDefault(module string) Sink {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, format(module))
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.INFO, module)
	logging.SetBackend(leveled)
	return NewLogging(logging.MustGetLogger(module))
}

func format(module string) logging.Formatter {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return logging.MustStringFormatter(
			colorize("%{time:15:04:05.000} ") +
				colorize("%{level:.4s}") +
				colorize(" " + module + ": ") +
				"%{message}",
		)
	}
	return logging.MustStringFormatter(
		"%{time:15:04:05.000} %{level:.4s} " + module + ": %{message}",
	)
}

// colorize is a thin wrapper over fatih/color so the format string
// above stays readable; go-logging substitutes its own %{color} verbs,
// but this client prefers fatih/color's explicit API over that format
// mini-language for the part of the line before the message (timestamp,
// level and module prefix), which it tints the same regardless of level.
func colorize(s string) string {
	return color.New(color.FgHiBlack).Sprint(s)
}

// Errorf is a package-level convenience matching fmt.Errorf's shape,
// used by call sites that want to both log to a given Sink and return an
// error without going through a Client (e.g. construction-time failures
// before a Client exists).
func Errorf(sink Sink, format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	sink.Errorf("%s", err)
	return err
}
