package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("Error"))
	assert.Equal(t, LevelFatal, ParseLevel("FATAL"))
	assert.Equal(t, LevelInfo, ParseLevel("garbage"))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "FATAL", LevelFatal.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
}

func TestNewDefaultLoggerDefaultsWriterWhenNil(t *testing.T) {
	l := NewDefaultLogger("comp", "info", nil)
	assert.NotNil(t, l)
}

func TestWriteFiltersBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLogger("comp", "warn", &buf)

	l.Debug("should be filtered")
	l.Info("also filtered")
	assert.Empty(t, buf.String())

	l.Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestFormatMessageIncludesComponentLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLogger("mycomp", "debug", &buf)

	l.Info("hello world", "key1", "val1", "key2", 42)
	out := buf.String()

	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "[mycomp]")
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "key1=val1")
	assert.Contains(t, out, "key2=42")
}

func TestFormatMessageWithNoFieldsHasNoTrailingPipe(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLogger("comp", "debug", &buf)
	l.Info("plain message")
	assert.False(t, strings.Contains(buf.String(), "|"))
}

func TestWithComponentSharesWriterAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLogger("orig", "warn", &buf)
	scoped := l.WithComponent("scoped")

	scoped.Info("filtered by inherited level")
	assert.Empty(t, buf.String())

	scoped.Error("visible")
	assert.Contains(t, buf.String(), "[scoped]")
}

func TestNoopDiscardsEverything(t *testing.T) {
	l := Noop()
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
	})
}
