package steppers

import (
	"math"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/pkg/events"
)

// bsSubsteps is the sequence of substep counts the modified midpoint
// method is evaluated at before Richardson-extrapolating to the limit
// (the classical Bulirsch sequence 2,4,6,8,12,16,...).
var bsSubsteps = []int{2, 4, 6, 8, 12, 16, 24, 32}

// BulirschStoer is the variable-order extrapolation stepper with dense
// output (spec §4.E: "must be reset before each invoke"). The
// extrapolation tableau is rebuilt inside every step; Reset only discards
// the dense-output segment kept from the last DoStep.
type BulirschStoer struct {
	sys  arch.DynamicalSystem
	opts Options

	// dense-output segment cache, mirroring DormandPrince's approach: a
	// linear interpolation between the segment's start and end state is
	// used by DoStepConst, since BS's own polynomial extrapolant is not
	// retained past the step that produced it.
	y0      []float64
	y1      []float64
	tStart  float64
	hLast   float64
	haveSeg bool
}

func NewBulirschStoer(sys arch.DynamicalSystem, opts Options) *BulirschStoer {
	n := sys.NStates()
	return &BulirschStoer{
		sys: sys, opts: normalizeAdaptive(opts, 1e-6),
		y0: make([]float64, n), y1: make([]float64, n),
	}
}

func (b *BulirschStoer) eval(states []float64, t float64, out []float64) {
	b.sys.SetContinuousStates(states)
	b.sys.SetTime(t)
	b.sys.GetDerivatives(out)
}

// modifiedMidpoint integrates from (y0, t) over H using n substeps,
// writing the result into out.
func (b *BulirschStoer) modifiedMidpoint(y0 []float64, t, H float64, n int, out []float64) {
	h := H / float64(n)
	dim := len(y0)
	ym := append([]float64(nil), y0...)
	dy := make([]float64, dim)
	b.eval(ym, t, dy)
	yn := make([]float64, dim)
	for i := range yn {
		yn[i] = y0[i] + h*dy[i]
	}
	for step := 1; step < n; step++ {
		b.eval(yn, t+float64(step)*h, dy)
		for i := range yn {
			next := ym[i] + 2*h*dy[i]
			ym[i] = yn[i]
			yn[i] = next
		}
	}
	b.eval(yn, t+H, dy)
	for i := range out {
		out[i] = 0.5 * (ym[i] + yn[i] + h*dy[i])
	}
}

func (b *BulirschStoer) step(states []float64, t, H float64) (tNext, hSuggest float64) {
	dim := len(states)
	b.y0 = append(b.y0[:0], states...)
	b.tStart = t

	var table [][]float64
	var prevBest []float64
	converged := false
	for _, n := range bsSubsteps {
		trial := make([]float64, dim)
		b.modifiedMidpoint(b.y0, t, H, n, trial)
		table = append(table, trial)

		// Neville-style extrapolation to the h->0 limit using the last
		// two table rows as a cheap Richardson pass.
		best := trial
		if len(table) >= 2 {
			prev := table[len(table)-2]
			extrap := make([]float64, dim)
			ratio := math.Pow(float64(n)/float64(bsSubsteps[len(table)-2]), 2)
			for i := range extrap {
				extrap[i] = trial[i] + (trial[i]-prev[i])/(ratio-1)
			}
			best = extrap
		}

		if prevBest != nil {
			maxErr := 0.0
			for i := range best {
				scale := b.opts.AbsTol + b.opts.RelTol*math.Abs(states[i])
				if scale <= 0 {
					scale = b.opts.AbsTol
				}
				if r := math.Abs(best[i]-prevBest[i]) / scale; r > maxErr {
					maxErr = r
				}
			}
			if maxErr <= 1.0 {
				copy(states, best)
				converged = true
				break
			}
		}
		prevBest = best
	}
	if !converged && prevBest != nil {
		copy(states, prevBest)
	}

	copy(b.y1, states)
	b.hLast = H
	b.haveSeg = true
	return t + H, H
}

func (b *BulirschStoer) DoStep(info *events.Info, states []float64, t, dt float64) (float64, float64) {
	return b.step(states, t, dt)
}

func (b *BulirschStoer) DoStepConst(info *events.Info, states []float64, t, dt float64) {
	if b.haveSeg && t >= b.tStart-1e-12 && t+dt <= b.tStart+b.hLast+1e-9 {
		theta := (t + dt - b.tStart) / b.hLast
		for i := range states {
			states[i] = b.y0[i] + theta*(b.y1[i]-b.y0[i])
		}
		return
	}
	b.step(states, t, dt)
}

func (b *BulirschStoer) Reset() { b.haveSeg = false }

func (b *BulirschStoer) InvokeMethod(sys arch.DynamicalSystem, info *events.Info, states []float64, t0, deltaT, dt, eps float64) (float64, float64) {
	b.Reset()
	return RunOuterLoop(sys, info, states, t0, deltaT, dt, eps,
		b.step,
		func(s []float64, t, h float64) { b.DoStepConst(info, s, t, h) },
		b.Reset,
	)
}

func (b *BulirschStoer) Properties() Options {
	return Options{AbsTol: b.opts.AbsTol, RelTol: b.opts.RelTol}
}
