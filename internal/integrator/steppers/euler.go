package steppers

import (
	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/pkg/events"
)

// Euler is the explicit, fixed-step, first-order reference stepper (spec
// §4.E). It carries no history, so Reset is a no-op.
type Euler struct {
	sys arch.DynamicalSystem
	dx  []float64
}

// NewEuler constructs an Euler stepper over sys, which must already report
// its correct NStates().
func NewEuler(sys arch.DynamicalSystem) *Euler {
	return &Euler{sys: sys, dx: make([]float64, sys.NStates())}
}

func (e *Euler) step(states []float64, t, dt float64) {
	e.sys.SetContinuousStates(states)
	e.sys.SetTime(t)
	e.sys.GetDerivatives(e.dx)
	for i := range states {
		states[i] += dt * e.dx[i]
	}
}

func (e *Euler) DoStep(info *events.Info, states []float64, t, dt float64) (float64, float64) {
	e.step(states, t, dt)
	return t + dt, dt
}

func (e *Euler) DoStepConst(info *events.Info, states []float64, t, dt float64) {
	e.step(states, t, dt)
}

func (e *Euler) Reset() {}

func (e *Euler) InvokeMethod(sys arch.DynamicalSystem, info *events.Info, states []float64, t0, deltaT, dt, eps float64) (float64, float64) {
	return RunOuterLoop(sys, info, states, t0, deltaT, dt, eps,
		func(s []float64, t, h float64) (float64, float64) { e.step(s, t, h); return t + h, h },
		func(s []float64, t, h float64) { e.step(s, t, h) },
		e.Reset,
	)
}

func (e *Euler) Properties() Options {
	return Options{AbsTol: posInf, RelTol: posInf}
}
