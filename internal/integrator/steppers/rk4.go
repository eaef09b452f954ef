package steppers

import (
	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/pkg/events"
)

// RK4 is the classical fourth-order explicit Runge-Kutta reference
// stepper (spec §4.E). Fixed step, no history.
type RK4 struct {
	sys        arch.DynamicalSystem
	k1, k2, k3, k4, tmp []float64
}

func NewRK4(sys arch.DynamicalSystem) *RK4 {
	n := sys.NStates()
	return &RK4{
		sys: sys,
		k1:  make([]float64, n), k2: make([]float64, n),
		k3: make([]float64, n), k4: make([]float64, n),
		tmp: make([]float64, n),
	}
}

func (r *RK4) eval(states []float64, t float64, out []float64) {
	r.sys.SetContinuousStates(states)
	r.sys.SetTime(t)
	r.sys.GetDerivatives(out)
}

func (r *RK4) step(states []float64, t, dt float64) {
	n := len(states)
	r.eval(states, t, r.k1)

	for i := 0; i < n; i++ {
		r.tmp[i] = states[i] + 0.5*dt*r.k1[i]
	}
	r.eval(r.tmp, t+0.5*dt, r.k2)

	for i := 0; i < n; i++ {
		r.tmp[i] = states[i] + 0.5*dt*r.k2[i]
	}
	r.eval(r.tmp, t+0.5*dt, r.k3)

	for i := 0; i < n; i++ {
		r.tmp[i] = states[i] + dt*r.k3[i]
	}
	r.eval(r.tmp, t+dt, r.k4)

	for i := 0; i < n; i++ {
		states[i] += dt / 6 * (r.k1[i] + 2*r.k2[i] + 2*r.k3[i] + r.k4[i])
	}
}

func (r *RK4) DoStep(info *events.Info, states []float64, t, dt float64) (float64, float64) {
	r.step(states, t, dt)
	return t + dt, dt
}

func (r *RK4) DoStepConst(info *events.Info, states []float64, t, dt float64) {
	r.step(states, t, dt)
}

func (r *RK4) Reset() {}

func (r *RK4) InvokeMethod(sys arch.DynamicalSystem, info *events.Info, states []float64, t0, deltaT, dt, eps float64) (float64, float64) {
	return RunOuterLoop(sys, info, states, t0, deltaT, dt, eps,
		func(s []float64, t, h float64) (float64, float64) { r.step(s, t, h); return t + h, h },
		func(s []float64, t, h float64) { r.step(s, t, h) },
		r.Reset,
	)
}

func (r *RK4) Properties() Options { return Options{AbsTol: posInf, RelTol: posInf} }
