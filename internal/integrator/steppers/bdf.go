package steppers

import (
	"math"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/pkg/events"
)

// bdfCoeffs gives, for order k (1-indexed by slice position), the
// backward-differentiation coefficients (alpha_0 ... alpha_k, beta) in the
// normalised form alpha_0*y_n + ... + alpha_k*y_{n-k} = h*beta*f(t_n, y_n).
var bdfCoeffs = [][2][]float64{
	{{1, -1}, {1}},                                     // order 1 (implicit Euler)
	{{1.5, -2, 0.5}, {1}},                               // order 2
	{{11.0 / 6, -3, 1.5, -1.0 / 3}, {1}},                 // order 3
	{{25.0 / 12, -4, 3, -4.0 / 3, 0.25}, {1}},            // order 4
	{{137.0 / 60, -5, 5, -10.0 / 3, 1.25, -0.2}, {1}},    // order 5
}

// BDF is the implicit, variable-order (1-5) backward-differentiation
// multistep family (spec §4.E, "CVODE-style; owns its own integrator
// memory and re-initialises on state change; uses analytic Jacobian if
// available, else numeric"). Each step solves the nonlinear BDF equation
// with a simplified Newton iteration reusing one Jacobian evaluation.
type BDF struct {
	sys      arch.DynamicalSystem
	opts     Options
	order    int
	maxOrder int
	history  [][]float64 // most-recent-first past states
	n        int
	J        []float64
	dfdt     []float64
	a        []float64
	piv      []int
}

func NewBDF(sys arch.DynamicalSystem, opts Options) *BDF {
	n := sys.NStates()
	return &BDF{
		sys: sys, opts: normalizeAdaptive(opts, 1e-10),
		order: 1, maxOrder: 5, n: n,
		J: make([]float64, n*n), dfdt: make([]float64, n),
		a: make([]float64, n*n), piv: make([]int, n),
	}
}

func (b *BDF) Reset() { b.history = nil; b.order = 1 }

func (b *BDF) eval(states []float64, t float64, out []float64) {
	b.sys.SetContinuousStates(states)
	b.sys.SetTime(t)
	b.sys.GetDerivatives(out)
}

func (b *BDF) evalJacobian() {
	if b.sys.ProvidesJacobian() {
		if err := b.sys.GetJacobian(b.J); err == nil {
			return
		}
	}
	b.sys.GetNumericalJacobian(b.J, b.dfdt)
}

func (b *BDF) at(row, col int) float64 { return b.J[col*b.n+row] }

func (b *BDF) buildAndFactor(h, beta float64) {
	n := b.n
	inv := bdfCoeffs[b.order-1][0][0] / (h * beta)
	for c := 0; c < n; c++ {
		for row := 0; row < n; row++ {
			v := -b.at(row, c)
			if row == c {
				v += inv
			}
			b.a[c*n+row] = v
		}
	}
	luFactor(b.a, b.piv, n)
}

func (b *BDF) step(states []float64, t, h float64) (float64, float64) {
	n := b.n
	if b.history == nil {
		b.history = [][]float64{append([]float64(nil), states...)}
		b.order = 1
	}
	order := minInt(b.order, len(b.history))
	coeffs := bdfCoeffs[order-1]
	alpha, beta := coeffs[0], coeffs[1][0]

	b.evalJacobian()
	b.buildAndFactor(h, beta)

	y := append([]float64(nil), states...)
	fy := make([]float64, n)
	residual := make([]float64, n)
	delta := make([]float64, n)

	for iter := 0; iter < 8; iter++ {
		b.eval(y, t+h, fy)
		for i := 0; i < n; i++ {
			lhs := alpha[0] * y[i]
			for k := 1; k < len(alpha); k++ {
				lhs += alpha[k] * b.history[k-1][i]
			}
			residual[i] = (lhs - h*beta*fy[i]) / (h * beta)
		}
		luSolve(b.a, b.piv, residual, delta)
		maxDelta := 0.0
		for i := 0; i < n; i++ {
			y[i] -= delta[i]
			if d := math.Abs(delta[i]); d > maxDelta {
				maxDelta = d
			}
		}
		if maxDelta < b.opts.AbsTol {
			break
		}
	}

	copy(states, y)
	b.history = append([][]float64{append([]float64(nil), y...)}, b.history...)
	if len(b.history) > b.maxOrder {
		b.history = b.history[:b.maxOrder]
	}
	if b.order < b.maxOrder {
		b.order++
	}
	return t + h, h
}

func (b *BDF) DoStep(info *events.Info, states []float64, t, dt float64) (float64, float64) {
	return b.step(states, t, dt)
}

func (b *BDF) DoStepConst(info *events.Info, states []float64, t, dt float64) {
	b.step(states, t, dt)
}

func (b *BDF) InvokeMethod(sys arch.DynamicalSystem, info *events.Info, states []float64, t0, deltaT, dt, eps float64) (float64, float64) {
	return RunOuterLoop(sys, info, states, t0, deltaT, dt, eps,
		b.step,
		func(s []float64, t, h float64) { b.step(s, t, h) },
		b.Reset,
	)
}

func (b *BDF) Properties() Options { return b.opts }

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
