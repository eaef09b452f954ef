package fmu

import (
	"math"

	"github.com/fmigo/fmigo/internal/integrator"
	"github.com/fmigo/fmigo/internal/status"
	"github.com/fmigo/fmigo/pkg/events"
)

// CheckTimeEvent reports whether the latest event-info declares an
// upcoming time event (spec §4.G).
func (in *Instance) CheckTimeEvent() bool { return in.lastInfo.TimeEventPending }

// GetTimeEvent returns the announced next event time, or +Inf when none is
// pending.
func (in *Instance) GetTimeEvent() float64 { return in.lastInfo.GetTimeEvent() }

// HandleEvents re-enters event iteration until the FMU reports converged
// discrete states, bounded by 5 iterations to guarantee progress (spec
// §4.G).
func (in *Instance) HandleEvents() status.Status {
	if in.guardFatal() {
		return status.Fatal
	}
	ft := in.bare.Functions()

	if in.isV1() {
		for i := 0; i < 5; i++ {
			info, st := ft.EventUpdateV1(in.comp, false)
			in.lastInfo = info
			in.record(st)
			if !info.DiscreteStatesNeedUpdate {
				break
			}
		}
		return in.lastStatus
	}

	if st := ft.SimpleCall("fmi2EnterEventMode", in.comp); in.record(st) == status.Fatal {
		return status.Fatal
	}
	in.mode = modeEvent
	for i := 0; i < 5; i++ {
		info, st := ft.NewDiscreteStates(in.comp)
		in.lastInfo = info
		in.record(st)
		if info.TerminateSimulation {
			break
		}
		if !info.DiscreteStatesNeedUpdate {
			break
		}
	}
	if !in.lastInfo.TerminateSimulation {
		if st := ft.SimpleCall("fmi2EnterContinuousTimeMode", in.comp); in.record(st) == status.Fatal {
			return status.Fatal
		}
		in.mode = modeContinuousTime
	}
	return in.lastStatus
}

// StepOverEvent implements the "step just barely across the discontinuity"
// semantics FMI requires (spec §4.G): an explicit-Euler step from the left
// bracket to the right bracket, pushed into the FMU, followed by
// completedIntegratorStep, handle_events, clearing the upcoming-event
// latch, and refreshing the previous-indicator snapshot.
func (in *Instance) StepOverEvent(tLower, tUpper float64) status.Status {
	if in.guardFatal() {
		return status.Fatal
	}
	h := tUpper - tLower
	if h > 0 && len(in.x) > 0 {
		dx := make([]float64, len(in.x))
		in.SetTime(tLower)
		if err := in.GetDerivatives(dx); err == nil {
			x := make([]float64, len(in.x))
			in.GetContinuousStates(x)
			for i := range x {
				x[i] += h * dx[i]
			}
			in.SetContinuousStates(x)
		}
	}
	in.SetTime(tUpper)

	in.CheckStepEvent()
	in.HandleEvents()
	in.upcomingEvent = false
	in.ResetStateEventLatch()
	in.SaveEventIndicators()
	copy(in.g, in.gPrev)
	return in.lastStatus
}

// Integrate advances the instance from its current time to tEnd using
// suggested step dt, implementing the top-level driver contract of spec
// §4.G.
func (in *Instance) Integrate(tEnd, dt float64, integ *integrator.Integrator) (float64, status.Status) {
	if in.guardFatal() {
		return in.t, status.Fatal
	}

	if len(in.x) == 0 {
		if in.CheckTimeEvent() && in.GetTimeEvent() <= tEnd {
			tEnd = in.GetTimeEvent()
		}
		in.SetTime(tEnd)
		if in.CheckTimeEvent() && in.GetTimeEvent() <= in.t+1e-12 {
			if in.stopBeforeEvent {
				in.upcomingEvent = true
			} else {
				in.HandleEvents()
			}
		}
		return in.t, in.lastStatus
	}

	eps := in.eventSearchEps
	if eps <= 0 {
		eps = 1e-9
	}

	if in.stopBeforeEvent && in.upcomingEvent {
		in.StepOverEvent(in.t, in.t)
	}

	deltaT := tEnd - in.t
	var timeEvent bool
	if in.CheckTimeEvent() {
		te := in.GetTimeEvent()
		if te <= tEnd {
			timeEvent = true
			if te < tEnd {
				deltaT = te - in.t - eps/2
				if deltaT < 0 {
					deltaT = 0
				}
			}
		}
	}

	in.SaveEventIndicators()
	copy(in.g, in.gPrev)

	info := integ.Integrate(in.x, in.t, deltaT, dt, eps)
	in.lastInfo.StateEvent = info.StateEvent
	in.lastInfo.TLower, in.lastInfo.TUpper = info.TLower, info.TUpper
	in.lastInfo.StepEvent = info.StepEvent

	// The integrator's own events.Info never sets TimeEventPending — time
	// events are tracked here, from the horizon truncation above, and only
	// drive the reaction when no state or step event preempted them,
	// mirroring FMUModelExchange::integrate's timeEvent_ member.
	kind := info.Classify()
	if kind == events.KindNone && timeEvent {
		kind = events.KindTime
	}

	switch kind {
	case events.KindStep:
		in.HandleEvents()
	case events.KindState:
		if in.stopBeforeEvent {
			in.upcomingEvent = true
		} else {
			in.StepOverEvent(info.TLower, info.TUpper)
		}
	case events.KindTime:
		exact := in.GetTimeEvent()
		if !math.IsNaN(exact) && !math.IsInf(exact, 1) {
			in.SetTime(exact)
		}
		if in.stopBeforeEvent {
			in.upcomingEvent = true
		} else {
			in.StepOverEvent(in.t, in.t)
		}
	}

	return in.t, in.lastStatus
}
