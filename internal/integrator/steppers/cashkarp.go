package steppers

import (
	"math"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/pkg/events"
)

// Cash-Karp coefficients (Cash & Karp, 1990), the classic embedded 5(4)
// Runge-Kutta pair; the error estimate is the difference between its
// embedded 5th- and 4th-order solutions.
var (
	ckA = [6]float64{0, 1.0 / 5, 3.0 / 10, 3.0 / 5, 1, 7.0 / 8}
	ckB = [6][5]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{3.0 / 10, -9.0 / 10, 6.0 / 5},
		{-11.0 / 54, 5.0 / 2, -70.0 / 27, 35.0 / 27},
		{1631.0 / 55296, 175.0 / 512, 575.0 / 13824, 44275.0 / 110592, 253.0 / 4096},
	}
	ckC5 = [6]float64{37.0 / 378, 0, 250.0 / 621, 125.0 / 594, 0, 512.0 / 1771}
	ckC4 = [6]float64{2825.0 / 27648, 0, 18575.0 / 48384, 13525.0 / 55296, 277.0 / 14336, 1.0 / 4}
)

// CashKarp is the adaptive explicit fifth-order stepper with embedded
// fourth-order error estimate (spec §4.E "RK error control").
type CashKarp struct {
	sys     arch.DynamicalSystem
	opts    Options
	k       [6][]float64
	tmp     []float64
	err5    []float64
	lastDt  float64
}

func NewCashKarp(sys arch.DynamicalSystem, opts Options) *CashKarp {
	n := sys.NStates()
	ck := &CashKarp{sys: sys, opts: normalizeAdaptive(opts, 1e-6)}
	for i := range ck.k {
		ck.k[i] = make([]float64, n)
	}
	ck.tmp = make([]float64, n)
	ck.err5 = make([]float64, n)
	return ck
}

func normalizeAdaptive(o Options, def float64) Options {
	return Options{AbsTol: defaultOr(o.AbsTol, def), RelTol: defaultOr(o.RelTol, def)}
}

func (c *CashKarp) eval(states []float64, t float64, out []float64) {
	c.sys.SetContinuousStates(states)
	c.sys.SetTime(t)
	c.sys.GetDerivatives(out)
}

// trial performs one Cash-Karp step of length dt from (states, t),
// writing the 5th-order result into out5 and the error estimate into
// err5. states is left untouched.
func (c *CashKarp) trial(states []float64, t, dt float64, out5 []float64) {
	n := len(states)
	c.eval(states, t, c.k[0])
	for stage := 1; stage < 6; stage++ {
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < stage; j++ {
				sum += ckB[stage][j] * c.k[j][i]
			}
			c.tmp[i] = states[i] + dt*sum
		}
		c.eval(c.tmp, t+ckA[stage]*dt, c.k[stage])
	}
	for i := 0; i < n; i++ {
		y5, y4 := states[i], states[i]
		for j := 0; j < 6; j++ {
			y5 += dt * ckC5[j] * c.k[j][i]
			y4 += dt * ckC4[j] * c.k[j][i]
		}
		out5[i] = y5
		c.err5[i] = y5 - y4
	}
}

func (c *CashKarp) errorNorm(states []float64) float64 {
	maxErr := 0.0
	for i, e := range c.err5 {
		scale := c.opts.AbsTol + c.opts.RelTol*math.Abs(states[i])
		if scale <= 0 {
			scale = c.opts.AbsTol
		}
		r := math.Abs(e) / scale
		if r > maxErr {
			maxErr = r
		}
	}
	return maxErr
}

func (c *CashKarp) step(states []float64, t, dt float64) (tNext, dtNext float64) {
	h := dt
	for attempt := 0; attempt < 32; attempt++ {
		c.trial(states, t, h, c.tmp)
		errNorm := c.errorNorm(states)
		if errNorm <= 1.0 {
			copy(states, c.tmp)
			safety := 0.9 * math.Pow(maxf(errNorm, 1e-12), -0.2)
			safety = clamp(safety, 0.2, 5.0)
			c.lastDt = h * safety
			return t + h, c.lastDt
		}
		h *= clamp(0.9*math.Pow(errNorm, -0.25), 0.1, 0.5)
	}
	copy(states, c.tmp)
	c.lastDt = h
	return t + h, h
}

func (c *CashKarp) DoStep(info *events.Info, states []float64, t, dt float64) (float64, float64) {
	return c.step(states, t, dt)
}

func (c *CashKarp) DoStepConst(info *events.Info, states []float64, t, dt float64) {
	c.trial(states, t, dt, c.tmp)
	copy(states, c.tmp)
}

func (c *CashKarp) Reset() {}

func (c *CashKarp) InvokeMethod(sys arch.DynamicalSystem, info *events.Info, states []float64, t0, deltaT, dt, eps float64) (float64, float64) {
	return RunOuterLoop(sys, info, states, t0, deltaT, dt, eps,
		c.step,
		func(s []float64, t, h float64) { c.DoStepConst(info, s, t, h) },
		c.Reset,
	)
}

func (c *CashKarp) Properties() Options { return c.opts }

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
