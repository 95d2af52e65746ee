package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/craftwatch/core/encoding/json"

	"github.com/mattn/go-isatty"
)

// Writer is the sink for log events.
type Writer interface {
	Write(e *Event) error
}

type syncWriter struct {
	mu     sync.Mutex
	writer Writer
}

// NewSyncWriter wraps a writer such that concurrent writes are serialized.
func NewSyncWriter(writer Writer) Writer {
	return &syncWriter{
		writer: writer,
	}
}

func (w *syncWriter) Write(e *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.writer.Write(e)
}

type multiWriter struct {
	writer []Writer
}

// NewMultiWriter fans an event out to all given writers.
func NewMultiWriter(writer ...Writer) Writer {
	return &multiWriter{
		writer: writer,
	}
}

func (w *multiWriter) Write(e *Event) error {
	for _, writer := range w.writer {
		if err := writer.Write(e); err != nil {
			return err
		}
	}

	return nil
}

type jsonWriter struct {
	writer io.Writer
	level  Level
}

// NewJSONWriter returns a writer that renders events as one JSON object
// per line.
func NewJSONWriter(w io.Writer, level Level) Writer {
	return NewSyncWriter(&jsonWriter{
		writer: w,
		level:  level,
	})
}

func (w *jsonWriter) Write(e *Event) error {
	if w.level < e.Level || e.Level == Lsilent {
		return nil
	}

	record := Fields{
		"ts":        e.Time,
		"level":     e.Level.String(),
		"component": e.Component,
	}

	if len(e.Message) != 0 {
		record["message"] = e.Message
	}

	for k, v := range e.Data {
		record[k] = v
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	_, err = w.writer.Write(append(data, '\n'))

	return err
}

type consoleWriter struct {
	writer io.Writer
	level  Level
	color  bool
}

// NewConsoleWriter returns a writer that renders events as key=value
// pairs. Colors are only used if the underlying writer is a terminal.
func NewConsoleWriter(w io.Writer, level Level, useColor bool) Writer {
	color := useColor

	if color {
		if f, ok := w.(*os.File); ok {
			if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
				color = false
			}
		} else {
			color = false
		}
	}

	return NewSyncWriter(&consoleWriter{
		writer: w,
		level:  level,
		color:  color,
	})
}

func (w *consoleWriter) Write(e *Event) error {
	if w.level < e.Level || e.Level == Lsilent {
		return nil
	}

	_, err := io.WriteString(w.writer, w.format(e))

	return err
}

func (w *consoleWriter) format(e *Event) string {
	level := e.Level.String()

	if w.color {
		switch e.Level {
		case Ldebug:
			level = "\033[35m" + level + "\033[0m"
		case Linfo:
			level = "\033[34m" + level + "\033[0m"
		case Lwarn:
			level = "\033[33m" + level + "\033[0m"
		case Lerror:
			level = "\033[31m" + level + "\033[0m"
		}
	}

	message := w.kv("ts", e.Time.UTC().Format(time.RFC3339)) + " " + w.kv("level", level) + " " + w.kv("component", strconv.Quote(e.Component))

	if len(e.Message) != 0 {
		message += " " + w.kv("msg", strconv.Quote(e.Message))
	}

	keys := make([]string, 0, len(e.Data))
	for key := range e.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		message += " " + w.kv(key, w.value(e.Data[key]))
	}

	return message + "\n"
}

func (w *consoleWriter) kv(key, value string) string {
	if !w.color {
		return key + "=" + value
	}

	if key == "error" {
		value = "\033[31m" + value + "\033[0m"
	}

	return "\033[90m" + key + "=\033[0m" + value
}

func (w *consoleWriter) value(v interface{}) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case string:
		return strconv.Quote(val)
	case error:
		return strconv.Quote(val.Error())
	case fmt.Stringer:
		return strconv.Quote(val.String())
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}

		return strconv.Quote(fmt.Sprintf("%v", v))
	}
}
