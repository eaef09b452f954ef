// Package integrator implements the thin coordinator of spec §4.F: it
// holds exactly one Stepper and a non-owning reference to a Dynamical
// System, and wraps whichever stepper is current in the bisection-based
// event-bracketing loop that narrows a detected state event down to
// within epsilon/2 of its true crossing time.
package integrator

import (
	"fmt"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/internal/integrator/steppers"
	"github.com/fmigo/fmigo/pkg/events"
)

// minEventSearchEps is the smallest bisection precision BDF can safely
// resolve: below this, the implicit Newton iteration's own convergence
// tolerance dominates and the bisection loop no longer converges within a
// bounded number of steps (Open Question, spec §9).
const minEventSearchEps = 1e-12

// StepperType selects which family set_properties constructs.
type StepperType int

const (
	Euler StepperType = iota
	RK4
	ABM5
	CashKarp
	DormandPrince
	Fehlberg78
	BulirschStoer
	Rosenbrock4
	BDF
	AdamsMoulton
)

func (t StepperType) String() string {
	switch t {
	case Euler:
		return "euler"
	case RK4:
		return "rk4"
	case ABM5:
		return "abm5"
	case CashKarp:
		return "cash_karp"
	case DormandPrince:
		return "dormand_prince"
	case Fehlberg78:
		return "fehlberg78"
	case BulirschStoer:
		return "bulirsch_stoer"
	case Rosenbrock4:
		return "rosenbrock4"
	case BDF:
		return "bdf"
	case AdamsMoulton:
		return "adams_moulton"
	default:
		return "unknown"
	}
}

// Properties mirrors steppers.Options but is the public type get_properties
// reports, keeping the integrator package's API independent of the
// steppers package's internal Options shape.
type Properties struct {
	Type   StepperType
	AbsTol float64
	RelTol float64
}

// Integrator is the coordinator described in spec §4.F.
type Integrator struct {
	sys     arch.DynamicalSystem
	stepper steppers.Stepper
	props   Properties
	log     arch.Logger
}

// New constructs an Integrator over sys with the given initial properties,
// logging through log (may be nil to discard).
func New(sys arch.DynamicalSystem, props Properties, log arch.Logger) *Integrator {
	i := &Integrator{sys: sys, log: log}
	i.SetProperties(props)
	return i
}

// clampEventSearchEps enforces minEventSearchEps when the current stepper
// is BDF, logging a warning if the caller's eps was tighter than that.
func (i *Integrator) clampEventSearchEps(eps float64) float64 {
	if i.props.Type != BDF || eps >= minEventSearchEps {
		return eps
	}
	if i.log != nil {
		i.log.Warn("integrator: clamping event-search precision for BDF",
			"requested", eps, "clamped", minEventSearchEps)
	}
	return minEventSearchEps
}

// SetProperties constructs a new stepper instance, discarding the old one,
// per spec §4.F.
func (i *Integrator) SetProperties(props Properties) {
	opts := steppers.Options{AbsTol: props.AbsTol, RelTol: props.RelTol}
	switch props.Type {
	case Euler:
		i.stepper = steppers.NewEuler(i.sys)
	case RK4:
		i.stepper = steppers.NewRK4(i.sys)
	case ABM5:
		i.stepper = steppers.NewABM5(i.sys)
	case CashKarp:
		i.stepper = steppers.NewCashKarp(i.sys, opts)
	case DormandPrince:
		i.stepper = steppers.NewDormandPrince(i.sys, opts)
	case Fehlberg78:
		i.stepper = steppers.NewFehlberg78(i.sys, opts)
	case BulirschStoer:
		i.stepper = steppers.NewBulirschStoer(i.sys, opts)
	case Rosenbrock4:
		i.stepper = steppers.NewRosenbrock4(i.sys, opts)
	case BDF:
		i.stepper = steppers.NewBDF(i.sys, opts)
	case AdamsMoulton:
		i.stepper = steppers.NewAdamsMoulton(i.sys, opts)
	default:
		i.stepper = steppers.NewRK4(i.sys)
		props.Type = RK4
	}
	actual := i.stepper.Properties()
	i.props = Properties{Type: props.Type, AbsTol: actual.AbsTol, RelTol: actual.RelTol}
}

// GetProperties reports what the last SetProperties call actually applied.
func (i *Integrator) GetProperties() Properties { return i.props }

// Integrate runs the event-bracketing loop of spec §4.F over [t0, t0+deltaT]
// with suggested step dt and bisection precision eps, mutating states in
// place and pushing the final (state, time) into the Dynamical System.
func (i *Integrator) Integrate(states []float64, t0, deltaT, dt, eps float64) events.Info {
	eps = i.clampEventSearchEps(eps)
	var info events.Info
	backup := append([]float64(nil), states...)

	_, _ = i.stepper.InvokeMethod(i.sys, &info, states, t0, deltaT, dt, eps)
	if !info.StateEvent {
		return info
	}

	tLower, tUpper := info.TLower, info.TUpper
	current := append([]float64(nil), backup...)

	for (tUpper - tLower) > eps/2 {
		mid := tLower + (tUpper-tLower)/2
		trial := append([]float64(nil), current...)
		i.stepper.DoStepConst(&info, trial, tLower, mid-tLower)

		i.sys.SetContinuousStates(trial)
		i.sys.SetTime(mid)
		stillEvent, err := i.sys.CheckStateEvent()
		if err == nil && !stillEvent {
			current = trial
			tLower = mid
		} else {
			i.sys.SetContinuousStates(current)
			i.sys.SetTime(tLower)
			i.stepper.Reset()
			tUpper = mid
		}
	}

	tUpper += eps / 8
	i.sys.SetContinuousStates(current)
	i.sys.SetTime(tLower)
	copy(states, current)

	info.TLower, info.TUpper = tLower, tUpper
	return info
}

func (i *Integrator) String() string {
	return fmt.Sprintf("Integrator{stepper=%s, abstol=%g, reltol=%g}", i.props.Type, i.props.AbsTol, i.props.RelTol)
}
