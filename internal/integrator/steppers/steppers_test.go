package steppers

import (
	"math"
	"testing"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSystem is a minimal arch.DynamicalSystem for exercising steppers
// without a real FMU. Its dynamics are pure exponential decay dx/dt = -x,
// and its single event indicator is x[0] minus a configurable threshold,
// so tests can arrange for a sign change partway through an interval.
type fakeSystem struct {
	x              []float64
	t              float64
	g, gPrev       []float64
	threshold      float64
	stepEventAfter int // CheckStepEvent reports true once calls >= this; 0 disables it
	stepEventCalls int
}

func newFakeSystem(x0 []float64, threshold float64) *fakeSystem {
	s := &fakeSystem{
		x:         append([]float64(nil), x0...),
		threshold: threshold,
		g:         make([]float64, 1),
		gPrev:     make([]float64, 1),
	}
	s.g[0] = s.x[0] - threshold
	s.gPrev[0] = s.g[0]
	return s
}

func (s *fakeSystem) NStates() int          { return len(s.x) }
func (s *fakeSystem) NEventIndicators() int { return 1 }

func (s *fakeSystem) SetTime(t float64) { s.t = t }
func (s *fakeSystem) GetTime() float64  { return s.t }

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

func (s *fakeSystem) ProvidesJacobian() bool          { return false }
func (s *fakeSystem) GetJacobian([]float64) error     { return arch.ErrJacobianUnavailable }
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

func (s *fakeSystem) CheckStepEvent() (bool, error) {
	s.stepEventCalls++
	if s.stepEventAfter > 0 && s.stepEventCalls >= s.stepEventAfter {
		return true, nil
	}
	return false, nil
}

var _ arch.DynamicalSystem = (*fakeSystem)(nil)

func TestEulerInvokeMethodNoEventReachesHorizon(t *testing.T) {
	sys := newFakeSystem([]float64{1.0}, -10) // threshold never crossed
	e := NewEuler(sys)
	states := []float64{1.0}
	info := &events.Info{}

	tEnd, _ := e.InvokeMethod(sys, info, states, 0, 1.0, 0.01, 1e-9)

	assert.InDelta(t, 1.0, tEnd, 1e-9)
	assert.False(t, info.StateEvent)
	assert.False(t, info.StepEvent)
	// explicit Euler at h=0.01 over [0,1] should be close to e^-1.
	assert.InDelta(t, math.Exp(-1), states[0], 1e-2)
}

func TestRK4MoreAccurateThanEulerForSameStep(t *testing.T) {
	want := math.Exp(-1)

	eulerSys := newFakeSystem([]float64{1.0}, -10)
	euler := NewEuler(eulerSys)
	eulerStates := []float64{1.0}
	euler.InvokeMethod(eulerSys, &events.Info{}, eulerStates, 0, 1.0, 0.1, 1e-9)

	rk4Sys := newFakeSystem([]float64{1.0}, -10)
	rk4 := NewRK4(rk4Sys)
	rk4States := []float64{1.0}
	rk4.InvokeMethod(rk4Sys, &events.Info{}, rk4States, 0, 1.0, 0.1, 1e-9)

	eulerErr := math.Abs(eulerStates[0] - want)
	rk4Err := math.Abs(rk4States[0] - want)
	assert.Less(t, rk4Err, eulerErr)
}

func TestEulerInvokeMethodDetectsStateEvent(t *testing.T) {
	// x decays from 1 toward 0; threshold 0.5 is crossed partway through
	// [0,1]. The outer loop should stop at the event, not run to t=1.
	sys := newFakeSystem([]float64{1.0}, 0.5)
	e := NewEuler(sys)
	states := []float64{1.0}
	info := &events.Info{}

	tEnd, _ := e.InvokeMethod(sys, info, states, 0, 1.0, 0.01, 1e-9)

	require.True(t, info.StateEvent)
	assert.Less(t, tEnd, 1.0)
	assert.LessOrEqual(t, info.TLower, info.TUpper)
}

func TestEulerInvokeMethodDetectsStepEvent(t *testing.T) {
	sys := newFakeSystem([]float64{1.0}, -10)
	sys.stepEventAfter = 2 // fires on the second completed step
	e := NewEuler(sys)
	states := []float64{1.0}
	info := &events.Info{}

	_, _ = e.InvokeMethod(sys, info, states, 0, 1.0, 0.01, 1e-9)

	assert.True(t, info.StepEvent)
	assert.False(t, info.StateEvent)
}

func TestPropertiesReportPosInfForFixedStepFamilies(t *testing.T) {
	sys := newFakeSystem([]float64{1.0}, -10)
	assert.True(t, math.IsInf(NewEuler(sys).Properties().AbsTol, 1))
	assert.True(t, math.IsInf(NewRK4(sys).Properties().AbsTol, 1))
}

func TestDefaultOr(t *testing.T) {
	assert.Equal(t, 5.0, defaultOr(0, 5))
	assert.Equal(t, 5.0, defaultOr(-1, 5))
	assert.Equal(t, 5.0, defaultOr(math.NaN(), 5))
	assert.Equal(t, 3.0, defaultOr(3, 5))
}
