package callback

import (
	"testing"

	"github.com/fmigo/fmigo/internal/status"
	"github.com/fmigo/fmigo/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventsLogEntry(msg string) events.LogEntry {
	return events.LogEntry{Message: msg}
}

type recordingLogger struct {
	debug, info, warn, errorMsgs []string
}

func (l *recordingLogger) Debug(msg string, _ ...interface{}) { l.debug = append(l.debug, msg) }
func (l *recordingLogger) Info(msg string, _ ...interface{})  { l.info = append(l.info, msg) }
func (l *recordingLogger) Warn(msg string, _ ...interface{})  { l.warn = append(l.warn, msg) }
func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.errorMsgs = append(l.errorMsgs, msg) }
func (l *recordingLogger) Fatal(msg string, _ ...interface{}) { l.errorMsgs = append(l.errorMsgs, msg) }

func TestNewVerboseShimGeneratesCorrelationID(t *testing.T) {
	s := NewVerboseShim("inst", nil, nil)
	assert.NotEmpty(t, s.CorrelationID())

	s2 := NewVerboseShim("inst", nil, nil)
	assert.NotEqual(t, s.CorrelationID(), s2.CorrelationID())
}

func TestSetLoggerRejectsNil(t *testing.T) {
	s := NewVerboseShim("inst", nil, nil)
	err := s.SetLogger(nil)
	assert.Equal(t, status.Discard, err)
}

func TestSetLoggerReplacesTarget(t *testing.T) {
	s := NewVerboseShim("inst", nil, nil)
	log := &recordingLogger{}
	require.NoError(t, s.SetLogger(log))

	s.handle("inst", int(status.OK), "logAll", "hello")
	assert.Equal(t, []string{"hello"}, log.info)
}

func TestVerboseShimLogsEvenOKStatus(t *testing.T) {
	log := &recordingLogger{}
	s := NewVerboseShim("inst", log, nil)
	s.handle("inst", int(status.OK), "logAll", "ok message")
	assert.Len(t, log.info, 1)
}

func TestSuccinctShimFiltersOKStatus(t *testing.T) {
	log := &recordingLogger{}
	s := NewSuccinctShim("inst", log, nil)

	s.handle("inst", int(status.OK), "logAll", "should be dropped")
	assert.Empty(t, log.info)

	s.handle("inst", int(status.Warning), "logAll", "should appear")
	assert.Equal(t, []string{"should appear"}, log.warn)
}

func TestHandleRoutesByStatusSeverity(t *testing.T) {
	log := &recordingLogger{}
	s := NewVerboseShim("inst", log, nil)

	s.handle("inst", int(status.Fatal), "cat", "fatal msg")
	s.handle("inst", int(status.Error), "cat", "error msg")
	s.handle("inst", int(status.Warning), "cat", "warn msg")
	s.handle("inst", int(status.Discard), "cat", "discard msg")
	s.handle("inst", int(status.OK), "cat", "ok msg")

	assert.ElementsMatch(t, []string{"fatal msg", "error msg"}, log.errorMsgs)
	assert.ElementsMatch(t, []string{"warn msg", "discard msg"}, log.warn)
	assert.Equal(t, []string{"ok msg"}, log.info)
}

func TestHandleWithNilLoggerDoesNotPanic(t *testing.T) {
	s := NewVerboseShim("inst", nil, nil)
	assert.NotPanics(t, func() {
		s.handle("inst", int(status.OK), "cat", "msg")
	})
}

func TestShimWarnHelper(t *testing.T) {
	log := &recordingLogger{}
	s := NewVerboseShim("inst", log, nil)
	s.Warn("driver-level warning")
	assert.Equal(t, []string{"driver-level warning"}, log.warn)
}

func TestDebugBufferDisabledByDefault(t *testing.T) {
	b := NewDebugBuffer(0)
	b.Append(eventsLogEntry("a"))
	assert.Empty(t, b.Lines())
}

func TestDebugBufferEnableCapturesAndRespectsLimit(t *testing.T) {
	b := NewDebugBuffer(2)
	b.Enable()
	b.Append(eventsLogEntry("a"))
	b.Append(eventsLogEntry("b"))
	b.Append(eventsLogEntry("c"))

	lines := b.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "b", lines[0].Message)
	assert.Equal(t, "c", lines[1].Message)
}

func TestDebugBufferDisableStopsCapture(t *testing.T) {
	b := NewDebugBuffer(0)
	b.Enable()
	b.Append(eventsLogEntry("a"))
	b.Disable()
	b.Append(eventsLogEntry("b"))

	lines := b.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "a", lines[0].Message)
}

func TestDebugBufferClear(t *testing.T) {
	b := NewDebugBuffer(0)
	b.Enable()
	b.Append(eventsLogEntry("a"))
	b.Clear()
	assert.Empty(t, b.Lines())
}

func TestHandleAppendsToBufferRegardlessOfLogger(t *testing.T) {
	b := NewDebugBuffer(0)
	b.Enable()
	s := NewVerboseShim("inst", nil, b)
	s.handle("inst", int(status.OK), "cat", "buffered")

	lines := b.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "buffered", lines[0].Message)
	assert.Equal(t, "inst", lines[0].Instance)
}
