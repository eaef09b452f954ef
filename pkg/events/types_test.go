package events

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPrecedence(t *testing.T) {
	// State event wins even when step and time events are also set.
	i := Info{StateEvent: true, StepEvent: true, TimeEventPending: true}
	assert.Equal(t, KindState, i.Classify())

	i = Info{StepEvent: true, TimeEventPending: true}
	assert.Equal(t, KindStep, i.Classify())

	i = Info{TimeEventPending: true}
	assert.Equal(t, KindTime, i.Classify())

	assert.Equal(t, KindNone, Info{}.Classify())
}

func TestGetTimeEvent(t *testing.T) {
	assert.True(t, math.IsInf(Info{}.GetTimeEvent(), 1))

	i := Info{TimeEventPending: true, NextEventTime: 4.5}
	assert.Equal(t, 4.5, i.GetTimeEvent())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "state", KindState.String())
	assert.Equal(t, "time", KindTime.String())
	assert.Equal(t, "step", KindStep.String())
	assert.Equal(t, "none", KindNone.String())
}

func TestLogEntryString(t *testing.T) {
	e := LogEntry{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Instance:  "inst1",
		Category:  "logError",
		Message:   "boom",
	}
	s := e.String()
	assert.Contains(t, s, "inst1")
	assert.Contains(t, s, "logError")
	assert.Contains(t, s, "boom")
}

func TestInfoStringIncludesClassification(t *testing.T) {
	i := Info{StateEvent: true, TLower: 1, TUpper: 2}
	assert.Contains(t, i.String(), "kind=state")
}
