// Package events defines the unified event record the Model Exchange
// driver classifies FMI event information into, independent of whether the
// originating FMU speaks the FMI 1.0 or FMI 2.0 event_info layout (see
// spec §9, "Unified event classification over heterogeneous FMI event_info
// layouts"). Neither flavour of the vendor struct is allowed to leak above
// the driver; everything downstream of the Bare FMU boundary consumes only
// the types in this package.
package events

import (
	"fmt"
	"math"
	"time"
)

// Kind distinguishes the three event classes the driver must react to.
type Kind uint32

const (
	// KindNone indicates no event occurred.
	KindNone Kind = iota
	// KindState marks a sign change in one or more event indicators.
	KindState
	// KindTime marks a scheduled future discontinuity the FMU announced.
	KindTime
	// KindStep marks a mid-integration pause requested during
	// completedIntegratorStep, independent of indicators or time.
	KindStep
)

func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindTime:
		return "time"
	case KindStep:
		return "step"
	default:
		return "none"
	}
}

// Info is the internal, version-agnostic event record. FMI 1.0's
// fmiEventInfo and FMI 2.0's fmi2EventInfo are both adapted into this shape
// at the Bare FMU boundary (see internal/barefmu).
type Info struct {
	// IterationConverged / NewDiscreteStatesNeeded (v2) collapse into this
	// single flag: true means another handle-events pass is required.
	DiscreteStatesNeedUpdate bool

	// StateValuesChanged / ValuesOfContinuousStatesChanged.
	StateValuesChanged bool

	// StateReferencesChanged / NominalsOfContinuousStatesChanged.
	NominalsChanged bool

	TerminateSimulation bool

	// UpcomingTimeEvent / NextEventTimeDefined.
	TimeEventPending bool
	// NextEventTime is valid only when TimeEventPending is true.
	NextEventTime float64

	// StateEvent is set by the integrator's event-search loop (spec §4.F)
	// when an event indicator changed sign within the last integration
	// interval. TLower/TUpper bracket the event once found.
	StateEvent bool
	TLower     float64
	TUpper     float64

	// StepEvent is set when completedIntegratorStep (or its v2 variant)
	// signalled enterEventMode/callEventUpdate independent of any
	// indicator sign change.
	StepEvent bool
}

// Classify returns the dominant Kind represented by this record, in the
// precedence order the driver applies when deciding how to react: a state
// event (detected by bisection) takes priority over a step event, which in
// turn takes priority over a bare time-event flag used only for horizon
// truncation (spec §4.G step 5).
func (i Info) Classify() Kind {
	switch {
	case i.StateEvent:
		return KindState
	case i.StepEvent:
		return KindStep
	case i.TimeEventPending:
		return KindTime
	default:
		return KindNone
	}
}

// GetTimeEvent returns the announced next event time, or +Inf when none is
// pending, matching check_time_event/get_time_event from spec §4.G.
func (i Info) GetTimeEvent() float64 {
	if !i.TimeEventPending {
		return math.Inf(1)
	}
	return i.NextEventTime
}

func (i Info) String() string {
	return fmt.Sprintf("events.Info{kind=%s, lower=%g, upper=%g, timeEvent=%g, terminate=%v}",
		i.Classify(), i.TLower, i.TUpper, i.GetTimeEvent(), i.TerminateSimulation)
}

// LogEntry is a single line appended to the process-wide debug log buffer
// maintained by internal/callback. It is intentionally independent of
// pkg/logger's own leveled output so a host can capture FMI-originated
// messages verbatim, with instance/category context, even when the leveled
// logger is set to discard everything.
type LogEntry struct {
	Timestamp time.Time
	Instance  string
	Category  string
	Message   string
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s/%s: %s", e.Timestamp.Format(time.RFC3339Nano), e.Instance, e.Category, e.Message)
}
