package fmu

import (
	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/internal/status"
)

// SetTime implements arch.DynamicalSystem. Bad-state or fatal instances
// silently no-op, matching the "subsequent calls return Fatal without
// touching the FMU" rule from spec §4.G; SetTime has no status to return
// under the DynamicalSystem interface, so the guard just prevents the call.
func (in *Instance) SetTime(t float64) {
	if in.guardFatal() {
		return
	}
	name := "fmiSetTime"
	if !in.isV1() {
		name = "fmi2SetTime"
	}
	st := in.bare.Functions().SetTime(in.comp, name, t)
	in.record(st)
	in.t = t
}

// GetTime returns the time last written into the FMU (FMI defines no
// getTime call; the driver tracks it).
func (in *Instance) GetTime() float64 { return in.t }

// RewindTime decreases time by delta without touching state, per spec
// §4.G. delta must be non-negative; callers that want to move forward use
// SetTime directly.
func (in *Instance) RewindTime(delta float64) {
	if delta < 0 {
		delta = -delta
	}
	in.SetTime(in.t - delta)
}

func (in *Instance) continuousStatesName(get bool) string {
	switch {
	case in.isV1() && get:
		return "fmiGetContinuousStates"
	case in.isV1() && !get:
		return "fmiSetContinuousStates"
	case !in.isV1() && get:
		return "fmi2GetContinuousStates"
	default:
		return "fmi2SetContinuousStates"
	}
}

func (in *Instance) SetContinuousStates(x []float64) {
	if in.guardFatal() {
		return
	}
	copy(in.x, x)
	st := in.bare.Functions().Array(in.continuousStatesName(false), in.comp, in.x)
	in.record(st)
}

func (in *Instance) GetContinuousStates(x []float64) {
	if in.guardFatal() {
		return
	}
	st := in.bare.Functions().Array(in.continuousStatesName(true), in.comp, in.x)
	in.record(st)
	copy(x, in.x)
}

func (in *Instance) GetDerivatives(dx []float64) error {
	if in.guardFatal() {
		return fatalError{}
	}
	name := "fmiGetDerivatives"
	if !in.isV1() {
		name = "fmi2GetDerivatives"
	}
	st := in.bare.Functions().Array(name, in.comp, dx)
	in.record(st)
	return nil
}

func (in *Instance) GetEventIndicators(g []float64) error {
	if in.guardFatal() {
		return fatalError{}
	}
	name := "fmiGetEventIndicators"
	if !in.isV1() {
		name = "fmi2GetEventIndicators"
	}
	st := in.bare.Functions().Array(name, in.comp, g)
	in.record(st)
	return nil
}

// NominalContinuousStates reports the FMU's nominal scaling for each
// state (spec §4.A/§4.D), used by steppers that need a magnitude estimate
// rather than assuming unit scale.
func (in *Instance) NominalContinuousStates(nominal []float64) error {
	name := "fmiGetNominalContinuousStates"
	if !in.isV1() {
		name = "fmi2GetNominalsOfContinuousStates"
	}
	st := in.bare.Functions().Array(name, in.comp, nominal)
	in.record(st)
	return nil
}

// GetJacobian implements arch.DynamicalSystem. v1 never provides one
// (always a warning status, per spec §4.G); v2 assembles it column by
// column from the directional derivative when
// providesDirectionalDerivative is declared, seeding one unit vector per
// state.
func (in *Instance) GetJacobian(J []float64) error {
	if in.isV1() {
		in.record(status.Warning)
		return arch.ErrJacobianUnavailable
	}
	if !in.desc.ProvidesJacobian() {
		return arch.ErrJacobianUnavailable
	}

	n := len(in.x)
	stateRefs, derivRefs := in.desc.GetStatesAndDerivativesReferences()
	if len(stateRefs) != n || len(derivRefs) != n {
		return arch.ErrJacobianUnavailable
	}

	seed := make([]float64, n)
	for col := 0; col < n; col++ {
		for i := range seed {
			seed[i] = 0
		}
		seed[col] = 1

		unknownRefs, knownRefs := derivRefs, stateRefs
		if in.dymolaDirectionalDerivativeWorkaround {
			unknownRefs, knownRefs = stateRefs, derivRefs
		}
		column, st := in.bare.Functions().GetDirectionalDerivative(in.comp, unknownRefs, knownRefs, seed)
		in.record(st)
		for row := 0; row < n; row++ {
			J[col*n+row] = column[row]
		}
	}
	return nil
}

// GetNumericalJacobian implements the 6th-order central-difference
// fallback shared by every stepper that needs a Jacobian but the loaded
// FMU does not provide one analytically (spec §4.D). dfdt is filled by the
// same symmetric 6th-order stencil, applied to time instead of state, per
// the original's DynamicalSystem::getNumericalJacobian.
func (in *Instance) GetNumericalJacobian(J, dfdt []float64) error {
	n := len(in.x)
	const h = 1e-5

	x0 := append([]float64(nil), in.x...)
	t0 := in.t
	fph := make([]float64, n)
	fmh := make([]float64, n)
	fp2h := make([]float64, n)
	fm2h := make([]float64, n)
	fp3h := make([]float64, n)
	fm3h := make([]float64, n)
	xw := append([]float64(nil), x0...)

	// sixthOrder differentiates whatever was last sampled into
	// fph/fmh/fp2h/fm2h/fp3h/fm3h with respect to a step of size h:
	// f'(.) ~ (-f(-3h)+9f(-2h)-45f(-h)+45f(h)-9f(2h)+f(3h)) / (60h)
	sixthOrder := func(out []float64) {
		for row := 0; row < n; row++ {
			out[row] = (-fm3h[row] + 9*fm2h[row] - 45*fmh[row] + 45*fph[row] - 9*fp2h[row] + fp3h[row]) / (60 * h)
		}
	}
	samples := []struct {
		mul float64
		out []float64
	}{{1, fph}, {-1, fmh}, {2, fp2h}, {-2, fm2h}, {3, fp3h}, {-3, fm3h}}

	for col := 0; col < n; col++ {
		for _, s := range samples {
			copy(xw, x0)
			xw[col] = x0[col] + s.mul*h
			in.SetContinuousStates(xw)
			in.SetTime(t0)
			in.GetDerivatives(s.out)
		}
		column := make([]float64, n)
		sixthOrder(column)
		for row := 0; row < n; row++ {
			J[col*n+row] = column[row]
		}
	}

	if dfdt != nil {
		for _, s := range samples {
			in.SetContinuousStates(x0)
			in.SetTime(t0 + s.mul*h)
			in.GetDerivatives(s.out)
		}
		sixthOrder(dfdt)
	}

	copy(xw, x0)
	in.SetContinuousStates(xw)
	in.SetTime(t0)

	return nil
}

// SaveEventIndicators snapshots g into the previous-step buffer.
func (in *Instance) SaveEventIndicators() error {
	return in.GetEventIndicators(in.gPrev)
}

// CheckStateEvent evaluates g now and reports a sign change against
// gPrev, latching the result per spec §4.G ("a latch: once set, the
// driver's internal state-event flag stays set until explicitly reset").
func (in *Instance) CheckStateEvent() (bool, error) {
	if err := in.GetEventIndicators(in.g); err != nil {
		return false, err
	}
	changed := false
	for i := range in.g {
		if (in.g[i] >= 0) != (in.gPrev[i] >= 0) {
			changed = true
			break
		}
	}
	if changed {
		in.stateEventLatch = true
	}
	return changed, nil
}

// ResetStateEventLatch clears the latch set by CheckStateEvent.
func (in *Instance) ResetStateEventLatch() { in.stateEventLatch = false }

// CheckStepEvent calls completedIntegratorStep, which in FMI 2.0 may
// itself signal enterEventMode or terminate (spec §4.G).
func (in *Instance) CheckStepEvent() (bool, error) {
	if in.guardFatal() {
		return false, fatalError{}
	}
	ft := in.bare.Functions()
	if in.isV1() {
		callEventUpdate, st := ft.CompletedIntegratorStepV1(in.comp)
		in.record(st)
		return callEventUpdate, nil
	}
	enterEventMode, terminate, st := ft.CompletedIntegratorStepV2(in.comp, false)
	in.record(st)
	if terminate {
		in.lastInfo.TerminateSimulation = true
	}
	return enterEventMode, nil
}

type fatalError struct{}

func (fatalError) Error() string { return "fmu: instance is in a fatal state" }
