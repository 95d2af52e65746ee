package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	events []*Event
}

func (w *captureWriter) Write(e *Event) error {
	w.events = append(w.events, e.clone())
	return nil
}

func TestLoglevelNames(t *testing.T) {
	require.Equal(t, "DEBUG", Ldebug.String())
	require.Equal(t, "INFO", Linfo.String())
	require.Equal(t, "WARN", Lwarn.String())
	require.Equal(t, "ERROR", Lerror.String())
	require.Equal(t, "SILENT", Lsilent.String())
}

func TestLogFields(t *testing.T) {
	w := &captureWriter{}

	logger := New("test").WithOutput(w)

	logger.Info().WithField("foo", "bar").Log("hello %s", "world")

	require.Len(t, w.events, 1)
	require.Equal(t, Linfo, w.events[0].Level)
	require.Equal(t, "test", w.events[0].Component)
	require.Equal(t, "hello world", w.events[0].Message)
	require.Equal(t, "bar", w.events[0].Data["foo"])
}

func TestLogComponent(t *testing.T) {
	w := &captureWriter{}

	logger := New("parent").WithOutput(w)
	child := logger.WithComponent("child")

	logger.Info().Log("from parent")
	child.Info().Log("from child")

	require.Len(t, w.events, 2)
	require.Equal(t, "parent", w.events[0].Component)
	require.Equal(t, "child", w.events[1].Component)
}

func TestLogClonedFields(t *testing.T) {
	w := &captureWriter{}

	logger := New("test").WithOutput(w).WithField("a", 1)

	logger.WithField("b", 2).Info().Log("first")
	logger.Info().Log("second")

	require.Len(t, w.events, 2)
	require.Contains(t, w.events[0].Data, "b")
	require.NotContains(t, w.events[1].Data, "b")
}

func TestConsoleWriterLevel(t *testing.T) {
	buf := &bytes.Buffer{}

	logger := New("test").WithOutput(NewConsoleWriter(buf, Linfo, false))

	logger.Debug().Log("dropped")
	logger.Warn().Log("written")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	require.Len(t, lines, 1)
	require.Contains(t, lines[0], `msg="written"`)
	require.Contains(t, lines[0], "level=WARN")
}

func TestJSONWriter(t *testing.T) {
	buf := &bytes.Buffer{}

	logger := New("test").WithOutput(NewJSONWriter(buf, Ldebug))

	logger.Error().WithField("count", 42).Log("boom")

	require.Contains(t, buf.String(), `"level":"ERROR"`)
	require.Contains(t, buf.String(), `"count":42`)
	require.Contains(t, buf.String(), `"message":"boom"`)
}
