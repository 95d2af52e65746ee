// Package log provides a small leveled logging facility with structured
// fields and exchangeable output writers.
package log

import (
	"fmt"
	"maps"
	"time"
)

// Level represents a log level.
type Level uint

const (
	Lsilent Level = 0
	Lerror  Level = 1
	Lwarn   Level = 2
	Linfo   Level = 3
	Ldebug  Level = 4
)

// String returns a string representation of the log level.
func (level Level) String() string {
	switch level {
	case Lsilent:
		return "SILENT"
	case Lerror:
		return "ERROR"
	case Lwarn:
		return "WARN"
	case Linfo:
		return "INFO"
	case Ldebug:
		return "DEBUG"
	}

	return "UNKNOWN"
}

type Fields map[string]interface{}

// Logger provides means for writing log messages.
//
// There are 4 log levels with increasing severity. A message is written to
// the configured output if its level has the same or a higher severity than
// the output's level, otherwise it is discarded.
type Logger interface {
	// WithOutput returns a new Logger that writes to the provided writer.
	WithOutput(w Writer) Logger

	// WithComponent returns a new Logger with the given component name.
	// The component is printed along every message.
	WithComponent(component string) Logger

	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger

	Debug() Logger
	Info() Logger
	Warn() Logger
	Error() Logger

	// Log writes a message with the selected level to the output. The
	// message is formatted according to fmt.Printf.
	Log(format string, args ...interface{})
}

type logger struct {
	output    Writer
	component string
}

// New returns an implementation of the Logger interface.
func New(component string) Logger {
	return &logger{
		component: component,
	}
}

func (l *logger) clone() *logger {
	return &logger{
		output:    l.output,
		component: l.component,
	}
}

func (l *logger) WithOutput(w Writer) Logger {
	clone := l.clone()
	clone.output = w

	return clone
}

func (l *logger) WithComponent(component string) Logger {
	clone := l.clone()
	clone.component = component

	return clone
}

func (l *logger) WithField(key string, value interface{}) Logger {
	return newEvent(l).WithField(key, value)
}

func (l *logger) WithFields(fields Fields) Logger {
	return newEvent(l).WithFields(fields)
}

func (l *logger) WithError(err error) Logger {
	return newEvent(l).WithError(err)
}

func (l *logger) Debug() Logger { return newEvent(l).Debug() }
func (l *logger) Info() Logger  { return newEvent(l).Info() }
func (l *logger) Warn() Logger  { return newEvent(l).Warn() }
func (l *logger) Error() Logger { return newEvent(l).Error() }

func (l *logger) Log(format string, args ...interface{}) {
	newEvent(l).Log(format, args...)
}

// Event is a single log message on its way to the output. Its exported
// fields are what formatters render.
type Event struct {
	logger *logger

	Time      time.Time
	Level     Level
	Component string
	Message   string
	Data      Fields
}

func newEvent(l *logger) *Event {
	return &Event{
		logger:    l,
		Component: l.component,
		Data:      Fields{},
	}
}

func (e *Event) clone() *Event {
	return &Event{
		logger:    e.logger,
		Time:      e.Time,
		Level:     e.Level,
		Component: e.Component,
		Message:   e.Message,
		Data:      maps.Clone(e.Data),
	}
}

func (e *Event) WithOutput(w Writer) Logger {
	clone := e.clone()
	clone.logger = e.logger.WithOutput(w).(*logger)

	return clone
}

func (e *Event) WithComponent(component string) Logger {
	clone := e.clone()
	clone.Component = component

	return clone
}

func (e *Event) WithField(key string, value interface{}) Logger {
	return e.WithFields(Fields{key: value})
}

func (e *Event) WithFields(fields Fields) Logger {
	clone := e.clone()

	for k, v := range fields {
		clone.Data[k] = v
	}

	return clone
}

func (e *Event) WithError(err error) Logger {
	if err == nil {
		return e
	}

	return e.WithField("error", err)
}

func (e *Event) withLevel(level Level) Logger {
	clone := e.clone()
	clone.Level = level

	return clone
}

func (e *Event) Debug() Logger { return e.withLevel(Ldebug) }
func (e *Event) Info() Logger  { return e.withLevel(Linfo) }
func (e *Event) Warn() Logger  { return e.withLevel(Lwarn) }
func (e *Event) Error() Logger { return e.withLevel(Lerror) }

func (e *Event) Log(format string, args ...interface{}) {
	if e.logger.output == nil {
		return
	}

	n := e.clone()
	n.Time = time.Now()

	if n.Level == Lsilent {
		n.Level = Ldebug
	}

	if len(args) == 0 {
		n.Message = format
	} else {
		n.Message = fmt.Sprintf(format, args...)
	}

	e.logger.output.Write(n)
}
