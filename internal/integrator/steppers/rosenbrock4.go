package steppers

import (
	"math"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/pkg/events"
)

// Rosenbrock4 coefficients (Shampine's L-stable 4-stage/4th-order
// Rosenbrock method, as used by e.g. Press et al.'s "stiff" routine).
const (
	rbGamma = 0.25
	rbA21   = 2.0
	rbA31   = 48.0 / 25.0
	rbA32   = 6.0 / 25.0
	rbC21   = -8.0
	rbC31   = 372.0 / 25.0
	rbC32   = 12.0 / 5.0
	rbC41   = -112.0 / 125.0
	rbC42   = -54.0 / 125.0
	rbC43   = -2.0 / 5.0
	rbB1    = 19.0 / 9.0
	rbB2    = 1.0 / 2.0
	rbB3    = 25.0 / 108.0
	rbB4    = 125.0 / 108.0
	rbE1    = 17.0 / 54.0
	rbE2    = 7.0 / 36.0
	rbE3    = 0.0
	rbE4    = 125.0 / 108.0
)

// Rosenbrock4 is the implicit, L-stable, fourth-order stepper (spec §4.E:
// "requires Jacobian; state vector marshalled into dense-matrix-friendly
// storage for the linear solve"). The per-step linear systems share one
// Jacobian evaluation and one LU factorisation of (I/(gamma*h) - J),
// following the original method's design.
type Rosenbrock4 struct {
	sys  arch.DynamicalSystem
	opts Options

	n        int
	J        []float64 // N*N, column-major
	dfdt     []float64
	a        []float64 // working (I/(gamma*h) - J), column-major, factored in place
	piv      []int
	f0, k1, k2, k3, k4 []float64
	tmp      []float64
}

func NewRosenbrock4(sys arch.DynamicalSystem, opts Options) *Rosenbrock4 {
	n := sys.NStates()
	return &Rosenbrock4{
		sys: sys, opts: normalizeAdaptive(opts, 1e-6), n: n,
		J: make([]float64, n*n), dfdt: make([]float64, n),
		a: make([]float64, n*n), piv: make([]int, n),
		f0: make([]float64, n), k1: make([]float64, n), k2: make([]float64, n),
		k3: make([]float64, n), k4: make([]float64, n), tmp: make([]float64, n),
	}
}

func (r *Rosenbrock4) evalJacobian() {
	if r.sys.ProvidesJacobian() {
		if err := r.sys.GetJacobian(r.J); err == nil {
			return
		}
	}
	r.sys.GetNumericalJacobian(r.J, r.dfdt)
}

func (r *Rosenbrock4) at(row, col int) float64 { return r.J[col*r.n+row] }

// buildAndFactor assembles (I/(gamma*h) - J) into r.a and LU-factors it in
// place with partial pivoting.
func (r *Rosenbrock4) buildAndFactor(h float64) {
	n := r.n
	inv := 1.0 / (rbGamma * h)
	for c := 0; c < n; c++ {
		for row := 0; row < n; row++ {
			v := -r.at(row, c)
			if row == c {
				v += inv
			}
			r.a[c*n+row] = v
		}
	}
	luFactor(r.a, r.piv, n)
}

func (r *Rosenbrock4) eval(states []float64, t float64, out []float64) {
	r.sys.SetContinuousStates(states)
	r.sys.SetTime(t)
	r.sys.GetDerivatives(out)
}

func (r *Rosenbrock4) step(states []float64, t, h float64) (float64, float64) {
	n := r.n
	r.evalJacobian()
	r.buildAndFactor(h)
	r.eval(states, t, r.f0)

	rhs := make([]float64, n)
	copy(rhs, r.f0)
	luSolve(r.a, r.piv, rhs, r.k1)

	for i := 0; i < n; i++ {
		r.tmp[i] = states[i] + rbA21*r.k1[i]
	}
	r.eval(r.tmp, t+0.5*h, r.f0)
	for i := 0; i < n; i++ {
		rhs[i] = r.f0[i] + rbC21*r.k1[i]/h
	}
	luSolve(r.a, r.piv, rhs, r.k2)

	for i := 0; i < n; i++ {
		r.tmp[i] = states[i] + rbA31*r.k1[i] + rbA32*r.k2[i]
	}
	r.eval(r.tmp, t+h, r.f0)
	for i := 0; i < n; i++ {
		rhs[i] = r.f0[i] + (rbC31*r.k1[i]+rbC32*r.k2[i])/h
	}
	luSolve(r.a, r.piv, rhs, r.k3)

	for i := 0; i < n; i++ {
		rhs[i] = r.f0[i] + (rbC41*r.k1[i]+rbC42*r.k2[i]+rbC43*r.k3[i])/h
	}
	luSolve(r.a, r.piv, rhs, r.k4)

	errNorm := 0.0
	for i := 0; i < n; i++ {
		inc := rbB1*r.k1[i] + rbB2*r.k2[i] + rbB3*r.k3[i] + rbB4*r.k4[i]
		errEst := rbE1*r.k1[i] + rbE2*r.k2[i] + rbE3*r.k3[i] + rbE4*r.k4[i]
		states[i] += inc
		scale := r.opts.AbsTol + r.opts.RelTol*math.Abs(states[i])
		if scale <= 0 {
			scale = r.opts.AbsTol
		}
		if e := math.Abs(errEst) / scale; e > errNorm {
			errNorm = e
		}
	}
	safety := clamp(0.9*math.Pow(maxf(errNorm, 1e-12), -0.25), 0.2, 5.0)
	return t + h, h * safety
}

func (r *Rosenbrock4) DoStep(info *events.Info, states []float64, t, dt float64) (float64, float64) {
	return r.step(states, t, dt)
}

func (r *Rosenbrock4) DoStepConst(info *events.Info, states []float64, t, dt float64) {
	r.step(states, t, dt)
}

func (r *Rosenbrock4) Reset() {}

func (r *Rosenbrock4) InvokeMethod(sys arch.DynamicalSystem, info *events.Info, states []float64, t0, deltaT, dt, eps float64) (float64, float64) {
	return RunOuterLoop(sys, info, states, t0, deltaT, dt, eps,
		r.step,
		func(s []float64, t, h float64) { r.step(s, t, h) },
		r.Reset,
	)
}

func (r *Rosenbrock4) Properties() Options { return r.opts }

// luFactor performs in-place LU factorisation with partial pivoting of the
// n*n column-major matrix a. piv[k] records which row was swapped into
// position k during elimination (k itself if none); luSolve replays the same
// sequence of swaps against the right-hand side.
func luFactor(a []float64, piv []int, n int) {
	at := func(row, col int) float64 { return a[col*n+row] }
	set := func(row, col int, v float64) { a[col*n+row] = v }

	for k := 0; k < n; k++ {
		maxRow, maxVal := k, math.Abs(at(k, k))
		for i := k + 1; i < n; i++ {
			if v := math.Abs(at(i, k)); v > maxVal {
				maxRow, maxVal = i, v
			}
		}
		piv[k] = maxRow
		if maxRow != k {
			for c := 0; c < n; c++ {
				a[c*n+k], a[c*n+maxRow] = a[c*n+maxRow], a[c*n+k]
			}
		}
		pivotVal := at(k, k)
		if pivotVal == 0 {
			continue
		}
		for i := k + 1; i < n; i++ {
			factor := at(i, k) / pivotVal
			set(i, k, factor)
			for c := k + 1; c < n; c++ {
				set(i, c, at(i, c)-factor*at(k, c))
			}
		}
	}
}

// luSolve solves a*x = b given the LU-factored (a, piv) from luFactor.
func luSolve(a []float64, piv []int, b, x []float64) {
	n := len(piv)
	at := func(row, col int) float64 { return a[col*n+row] }
	y := append([]float64(nil), b...)

	for k := 0; k < n; k++ {
		if piv[k] != k {
			y[k], y[piv[k]] = y[piv[k]], y[k]
		}
	}
	for i := 0; i < n; i++ {
		sum := y[i]
		for j := 0; j < i; j++ {
			sum -= at(i, j) * y[j]
		}
		y[i] = sum
	}
	for i := n - 1; i >= 0; i-- {
		sum := y[i]
		for j := i + 1; j < n; j++ {
			sum -= at(i, j) * x[j]
		}
		x[i] = sum / at(i, i)
	}
}
