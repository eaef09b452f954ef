// Package steppers implements the ODE stepper families of spec §4.E. Every
// stepper conforms to the same four-method contract (do_step,
// do_step_const, reset, invoke_method) so internal/integrator can hold any
// one of them behind the Stepper interface and swap it on set_properties.
//
// No example in the retrieved corpus brings a numerical integration
// library (the pack is infrastructure/tooling-shaped, not scientific
// computing), so this package is standard-library math — see DESIGN.md.
package steppers

import (
	"math"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/pkg/events"
)

// Options configures a stepper at construction. Not every field applies to
// every family; unused fields are ignored.
type Options struct {
	AbsTol float64
	RelTol float64
}

// Stepper is the uniform contract every ODE stepper implements (spec
// §4.E).
type Stepper interface {
	// DoStep takes one step starting at (t, states), mutating states and
	// info in place, and returns the time actually reached and the dt the
	// stepper suggests for the next call.
	DoStep(info *events.Info, states []float64, t, dt float64) (tNext, dtNext float64)

	// DoStepConst takes exactly one step of exactly dt.
	DoStepConst(info *events.Info, states []float64, t, dt float64)

	// Reset discards multi-step or stiffness history.
	Reset()

	// InvokeMethod runs the event-aware outer loop described in spec
	// §4.E, advancing from t0 toward t0+deltaT using repeated DoStep
	// calls, checking for state/step events after every push into sys,
	// and returning once an event is found or the horizon is reached.
	InvokeMethod(sys arch.DynamicalSystem, info *events.Info, states []float64, t0, deltaT, dt, eps float64) (tEnd float64, dtOut float64)

	// Properties reports the tolerances actually in effect, which may
	// differ from what Options requested (defaults substituted, or +Inf
	// for non-adaptive families).
	Properties() Options
}

// RunOuterLoop implements the shared invoke_method skeleton (spec §4.E)
// given a family-specific single-step function singleStep. Every family in
// this package delegates to it so the event-bracketing logic is written
// exactly once.
func RunOuterLoop(sys arch.DynamicalSystem, info *events.Info, states []float64, t0, deltaT, dt, eps float64,
	singleStep func(states []float64, t, dt float64) (tNext, dtNext float64),
	stepConst func(states []float64, t, dt float64),
	reset func(),
) (float64, float64) {
	t := t0
	prevT := t0
	prevStates := append([]float64(nil), states...)
	remaining := deltaT
	dtCur := dt

	for remaining > eps/8 {
		step := dtCur
		if step > remaining {
			step = remaining
		}
		var tNext float64
		if step < dtCur {
			stepConst(states, t, step)
			tNext = t + step
		} else {
			tNext, dtCur = singleStep(states, t, step)
		}

		sys.SetContinuousStates(states)
		sys.SetTime(tNext)

		stateEvent, err := sys.CheckStateEvent()
		if err == nil && stateEvent {
			copy(states, prevStates)
			sys.SetContinuousStates(states)
			sys.SetTime(prevT)
			info.StateEvent = true
			info.TLower = prevT
			info.TUpper = tNext
			return prevT, dtCur
		}

		if stepEvt, err := sys.CheckStepEvent(); err == nil && stepEvt {
			info.StepEvent = true
			return tNext, dtCur
		}

		prevT = tNext
		copy(prevStates, states)
		remaining = t0 + deltaT - tNext
		t = tNext
	}

	stepConst(states, t, t0+deltaT-t)
	reset()
	sys.SetContinuousStates(states)
	sys.SetTime(t0 + deltaT)
	return t0 + deltaT, dtCur
}

// NumericalJacobianFallback evaluates J and dfdt via sys's own 6th-order
// central-difference approximation (spec §4.D). It is a thin wrapper over
// sys.GetNumericalJacobian; the implicit steppers in this package call that
// method directly.
func NumericalJacobianFallback(sys arch.DynamicalSystem, J, dfdt []float64) error {
	return sys.GetNumericalJacobian(J, dfdt)
}

// posInf is the tolerance reported by Properties() for non-adaptive
// families, matching spec §4.E ("or +Inf for non-adaptive steppers").
var posInf = math.Inf(1)

func defaultOr(v, def float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return def
	}
	return v
}
