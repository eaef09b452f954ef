package steppers

import (
	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/pkg/events"
)

// ab5 and am4 are the classical fixed-step Adams-Bashforth (predictor) and
// Adams-Moulton (corrector) coefficients for a 5th-order predictor-
// corrector pair.
var (
	ab5 = [5]float64{1901.0 / 720, -2774.0 / 720, 2616.0 / 720, -1274.0 / 720, 251.0 / 720}
	am4 = [5]float64{251.0 / 720, 646.0 / 720, -264.0 / 720, 106.0 / 720, -19.0 / 720}
)

// ABM5 is the fixed-step, fifth-order Adams-Bashforth-Moulton
// predictor-corrector multistep method (spec §4.E). It must be
// re-initialised (via Reset, which discards history and forces an RK4
// warm-up) whenever dt changes, since the stored derivative history
// assumes equally spaced past points.
type ABM5 struct {
	sys     arch.DynamicalSystem
	warmup  *RK4
	history [][]float64 // most-recent-first, each length n
	lastDt  float64
	n       int
}

func NewABM5(sys arch.DynamicalSystem) *ABM5 {
	return &ABM5{sys: sys, warmup: NewRK4(sys), n: sys.NStates()}
}

func (a *ABM5) eval(states []float64, t float64, out []float64) {
	a.sys.SetContinuousStates(states)
	a.sys.SetTime(t)
	a.sys.GetDerivatives(out)
}

func (a *ABM5) Reset() { a.history = nil; a.lastDt = 0 }

// ensureHistory rebuilds four past derivative samples via RK4 sub-steps
// whenever dt changes or history is empty.
func (a *ABM5) ensureHistory(states []float64, t, dt float64) {
	if a.history != nil && dt == a.lastDt {
		return
	}
	a.history = nil
	a.lastDt = dt

	work := append([]float64(nil), states...)
	tCur := t
	samples := make([][]float64, 0, 4)
	for i := 0; i < 4; i++ {
		dx := make([]float64, a.n)
		a.eval(work, tCur, dx)
		samples = append(samples, dx)
		a.warmup.step(work, tCur, dt)
		tCur += dt
	}
	// most-recent-first
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	a.history = samples
	copy(states, work)
}

func (a *ABM5) step(states []float64, t, dt float64) (float64, float64) {
	a.ensureHistory(states, t, dt)

	predicted := append([]float64(nil), states...)
	for i := range predicted {
		sum := 0.0
		for k := 0; k < 4; k++ {
			sum += ab5[k] * a.history[k][i]
		}
		predicted[i] += dt * sum
	}

	fNew := make([]float64, a.n)
	a.eval(predicted, t+dt, fNew)

	corrected := append([]float64(nil), states...)
	for i := range corrected {
		sum := am4[0] * fNew[i]
		for k := 0; k < 4; k++ {
			sum += am4[k+1] * a.history[k][i]
		}
		corrected[i] += dt * sum
	}
	copy(states, corrected)

	fCorrected := make([]float64, a.n)
	a.eval(states, t+dt, fCorrected)
	a.history = append([][]float64{fCorrected}, a.history[:3]...)

	return t + dt, dt
}

func (a *ABM5) DoStep(info *events.Info, states []float64, t, dt float64) (float64, float64) {
	return a.step(states, t, dt)
}

func (a *ABM5) DoStepConst(info *events.Info, states []float64, t, dt float64) {
	a.step(states, t, dt)
}

func (a *ABM5) InvokeMethod(sys arch.DynamicalSystem, info *events.Info, states []float64, t0, deltaT, dt, eps float64) (float64, float64) {
	return RunOuterLoop(sys, info, states, t0, deltaT, dt, eps,
		a.step,
		func(s []float64, t, h float64) { a.step(s, t, h) },
		a.Reset,
	)
}

func (a *ABM5) Properties() Options { return Options{AbsTol: posInf, RelTol: posInf} }

// AdamsMoulton is the non-stiff multistep family (spec §4.E). It takes
// RK4 steps for the first four steps after construction or Reset and the
// ABM5 predictor-corrector step from then on. It computes no local error
// estimate: the step size stays the caller's dt, orders above five are
// never used, and maxOrder is not consulted.
type AdamsMoulton struct {
	sys      arch.DynamicalSystem
	opts     Options
	order    int
	maxOrder int
	abm      *ABM5
	rk       *RK4
}

func NewAdamsMoulton(sys arch.DynamicalSystem, opts Options) *AdamsMoulton {
	return &AdamsMoulton{
		sys: sys, opts: normalizeAdaptive(opts, 1e-10),
		order: 1, maxOrder: 12,
		abm: NewABM5(sys), rk: NewRK4(sys),
	}
}

func (m *AdamsMoulton) step(states []float64, t, dt float64) (float64, float64) {
	// The first four steps use RK4; every later step is an ABM5 step.
	// There is no coefficient table beyond ABM5's.
	if m.order < 5 {
		m.rk.step(states, t, dt)
		m.order++
		return t + dt, dt
	}
	return m.abm.step(states, t, dt)
}

func (m *AdamsMoulton) DoStep(info *events.Info, states []float64, t, dt float64) (float64, float64) {
	return m.step(states, t, dt)
}

func (m *AdamsMoulton) DoStepConst(info *events.Info, states []float64, t, dt float64) {
	m.step(states, t, dt)
}

func (m *AdamsMoulton) Reset() { m.order = 1; m.abm.Reset() }

func (m *AdamsMoulton) InvokeMethod(sys arch.DynamicalSystem, info *events.Info, states []float64, t0, deltaT, dt, eps float64) (float64, float64) {
	return RunOuterLoop(sys, info, states, t0, deltaT, dt, eps,
		m.step,
		func(s []float64, t, h float64) { m.step(s, t, h) },
		m.Reset,
	)
}

func (m *AdamsMoulton) Properties() Options { return m.opts }
