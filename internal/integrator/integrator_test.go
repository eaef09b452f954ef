package integrator

import (
	"testing"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSystem mirrors steppers.fakeSystem: dx/dt = -x, one event indicator
// equal to x[0] minus a threshold. It lives here too since the steppers
// package's equivalent is unexported and this is a different package.
type fakeSystem struct {
	x         []float64
	t         float64
	g, gPrev  []float64
	threshold float64
}

func newFakeSystem(x0 []float64, threshold float64) *fakeSystem {
	s := &fakeSystem{x: append([]float64(nil), x0...), threshold: threshold, g: make([]float64, 1), gPrev: make([]float64, 1)}
	s.g[0] = s.x[0] - threshold
	s.gPrev[0] = s.g[0]
	return s
}

func (s *fakeSystem) NStates() int          { return len(s.x) }
func (s *fakeSystem) NEventIndicators() int { return 1 }
func (s *fakeSystem) SetTime(t float64)     { s.t = t }
func (s *fakeSystem) GetTime() float64      { return s.t }

func (s *fakeSystem) SetContinuousStates(x []float64) { copy(s.x, x) }
func (s *fakeSystem) GetContinuousStates(x []float64) { copy(x, s.x) }

func (s *fakeSystem) GetDerivatives(dx []float64) error {
	for i, v := range s.x {
		dx[i] = -v
	}
	return nil
}

func (s *fakeSystem) GetEventIndicators(g []float64) error {
	g[0] = s.x[0] - s.threshold
	return nil
}

func (s *fakeSystem) ProvidesJacobian() bool      { return false }
func (s *fakeSystem) GetJacobian([]float64) error { return arch.ErrJacobianUnavailable }
func (s *fakeSystem) GetNumericalJacobian(J, dfdt []float64) error {
	for i := range J {
		J[i] = 0
	}
	return nil
}

func (s *fakeSystem) SaveEventIndicators() error {
	_ = s.GetEventIndicators(s.g)
	copy(s.gPrev, s.g)
	return nil
}

func (s *fakeSystem) CheckStateEvent() (bool, error) {
	_ = s.GetEventIndicators(s.g)
	changed := (s.g[0] >= 0) != (s.gPrev[0] >= 0)
	return changed, nil
}

func (s *fakeSystem) CheckStepEvent() (bool, error) { return false, nil }

var _ arch.DynamicalSystem = (*fakeSystem)(nil)

func TestIntegratorSetPropertiesSubstitutesUnknownType(t *testing.T) {
	sys := newFakeSystem([]float64{1.0}, -10)
	integ := New(sys, Properties{Type: StepperType(999), AbsTol: 1e-6, RelTol: 1e-6}, nil)
	assert.Equal(t, RK4, integ.GetProperties().Type)
}

func TestIntegratorRunsToHorizonWithoutEvent(t *testing.T) {
	sys := newFakeSystem([]float64{1.0}, -10)
	integ := New(sys, Properties{Type: RK4}, nil)
	states := []float64{1.0}

	info := integ.Integrate(states, 0, 1.0, 0.1, 1e-9)

	assert.False(t, info.StateEvent)
	assert.InDelta(t, 1.0, sys.GetTime(), 1e-9)
}

func TestIntegratorBracketsStateEventWithinEps(t *testing.T) {
	sys := newFakeSystem([]float64{1.0}, 0.5)
	integ := New(sys, Properties{Type: Euler}, nil)
	states := []float64{1.0}

	info := integ.Integrate(states, 0, 1.0, 0.01, 1e-6)

	require.True(t, info.StateEvent)
	assert.Less(t, info.TLower, info.TUpper)
	assert.LessOrEqual(t, info.TUpper-info.TLower, 1e-6+1e-6/4)
	// sys's own time should have been left at the lower bracket.
	assert.InDelta(t, info.TLower, sys.GetTime(), 1e-12)
}

func TestClampEventSearchEpsOnlyAffectsBDF(t *testing.T) {
	sys := newFakeSystem([]float64{1.0}, -10)

	rk4 := New(sys, Properties{Type: RK4}, nil)
	assert.Equal(t, 1e-15, rk4.clampEventSearchEps(1e-15))

	bdf := New(sys, Properties{Type: BDF, AbsTol: 1e-3, RelTol: 1e-3}, nil)
	assert.Equal(t, minEventSearchEps, bdf.clampEventSearchEps(1e-15))
	assert.Equal(t, 1e-6, bdf.clampEventSearchEps(1e-6))
}

func TestStepperTypeString(t *testing.T) {
	assert.Equal(t, "rk4", RK4.String())
	assert.Equal(t, "bdf", BDF.String())
	assert.Equal(t, "unknown", StepperType(999).String())
}
