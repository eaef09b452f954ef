// Package fmu implements the Model Exchange Driver of spec §4.G: it owns
// one FMU Instance bound to a Bare FMU, implements arch.DynamicalSystem
// against it, and layers event classification, event iteration, and
// stop-before-event semantics on top of the raw FMI entry points.
package fmu

import (
	"fmt"
	"unsafe"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/internal/barefmu"
	"github.com/fmigo/fmigo/internal/callback"
	"github.com/fmigo/fmigo/internal/modeldescr"
	"github.com/fmigo/fmigo/internal/status"
	"github.com/fmigo/fmigo/pkg/events"
)

// mode tracks the FMI 2.0 state-machine position (spec §3 "Mode hierarchy
// (v2 only)"). FMI 1.0 instances use only modeNone, modeInstantiated,
// modeContinuousTime and modeTerminated.
type mode int

const (
	modeNone mode = iota
	modeInstantiated
	modeInitialization
	modeEvent
	modeContinuousTime
	modeTerminated
)

// Instance is one FMU Instance (spec §3). It implements
// arch.DynamicalSystem so internal/integrator can drive it directly.
type Instance struct {
	bare *barefmu.BareFMU
	desc *modeldescr.ModelDescription

	comp         unsafe.Pointer
	callbacksPtr unsafe.Pointer // struct allocated by barefmu.V1Callbacks/V2Callbacks, freed on terminate
	envHandle    uintptr        // v2 componentEnvironment cgo.Handle, for unregistration
	shim         *callback.Shim
	instanceName string

	t float64

	x        []float64
	g        []float64
	gPrev    []float64

	lastInfo events.Info
	stateEventLatch bool
	upcomingEvent   bool

	lastStatus status.Status
	fatal      bool

	loggingOn       bool
	stopBeforeEvent bool
	eventSearchEps  float64

	dymolaDirectionalDerivativeWorkaround bool

	mode mode
}

// InstanceOptions configures an Instance at construction. The zero value
// is a usable default: stop-before-event off, a 1e-9 event-search
// precision, and the Dymola directional-derivative workaround disabled.
type InstanceOptions struct {
	StopBeforeEvent bool
	EventSearchEps  float64

	// DymolaDirectionalDerivativeWorkaround swaps the known/unknown
	// argument order of the directional-derivative call, matching a
	// specific non-compliant FMI 2.0 exporter (spec §4.G, §9 Open
	// Questions). Off by default: the workaround must be requested
	// explicitly, never auto-detected.
	DymolaDirectionalDerivativeWorkaround bool
}

// DefaultInstanceOptions returns the zero-value defaults with
// EventSearchEps filled in explicitly, for callers that want to start from
// the default and override a single field.
func DefaultInstanceOptions() InstanceOptions {
	return InstanceOptions{EventSearchEps: 1e-9}
}

// New constructs an Instance bound to bare. Construction does not call any
// FMI entry point; that happens in Instantiate.
func New(bare *barefmu.BareFMU, opts InstanceOptions) *Instance {
	desc := bare.Description()
	eps := opts.EventSearchEps
	if eps <= 0 {
		eps = 1e-9
	}
	return &Instance{
		bare: bare, desc: desc,
		x:     make([]float64, desc.NumberOfContinuousStates()),
		g:     make([]float64, desc.NumberOfEventIndicators()),
		gPrev: make([]float64, desc.NumberOfEventIndicators()),
		eventSearchEps:  eps,
		stopBeforeEvent: opts.StopBeforeEvent,
		dymolaDirectionalDerivativeWorkaround: opts.DymolaDirectionalDerivativeWorkaround,
	}
}

// GetLastStatus returns the worst status recorded since construction; it is
// never reset (spec §4.G "Failure semantics").
func (in *Instance) GetLastStatus() status.Status { return in.lastStatus }

func (in *Instance) record(s status.Status) status.Status {
	s = status.MapFMI2Pending(s)
	if s == status.Fatal {
		in.fatal = true
	}
	in.lastStatus = status.Worst(in.lastStatus, s)
	return s
}

// guardFatal returns true if the instance has already latched a fatal
// status; callers should return immediately.
func (in *Instance) guardFatal() bool {
	return in.fatal
}

func (in *Instance) isV1() bool {
	t := in.desc.FMUType()
	return t == modeldescr.ME10 || t == modeldescr.CS10
}

// SetLogger installs log as the target for this instance's callback shim,
// replacing the default logger (spec §4.H "set_callbacks").
func (in *Instance) SetLogger(log arch.Logger) error {
	if in.shim == nil {
		return fmt.Errorf("fmu: instance not yet instantiated")
	}
	return in.shim.SetLogger(log)
}

// CorrelationID returns the run-scoped identifier generated for this
// instance's callback shim at Instantiate, or "" before instantiation.
func (in *Instance) CorrelationID() string {
	if in.shim == nil {
		return ""
	}
	return in.shim.CorrelationID()
}

// NStates / NEventIndicators implement arch.DynamicalSystem.
func (in *Instance) NStates() int          { return len(in.x) }
func (in *Instance) NEventIndicators() int { return len(in.g) }

func (in *Instance) ProvidesJacobian() bool {
	return in.desc.ProvidesJacobian()
}

var _ arch.DynamicalSystem = (*Instance)(nil)

func (in *Instance) String() string {
	return fmt.Sprintf("fmu.Instance{id=%s, t=%g, n=%d, m=%d, status=%s}",
		in.bare.ModelID(), in.t, len(in.x), len(in.g), in.lastStatus)
}
