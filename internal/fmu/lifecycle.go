package fmu

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/fmigo/fmigo/internal/barefmu"
	"github.com/fmigo/fmigo/internal/callback"
	"github.com/fmigo/fmigo/internal/modeldescr"
	"github.com/fmigo/fmigo/internal/status"
)

// normalizeGUID canonicalises raw when it parses as a UUID (the common but
// not FMI-mandated convention for the GUID field), so that two GUIDs
// differing only in case or hyphenation still compare equal at the FMU
// boundary. Vendor GUIDs that are not UUID-shaped are passed through
// unchanged, per spec §4.A ("a vendor-assigned identifier").
func normalizeGUID(raw string) string {
	if id, err := uuid.Parse(raw); err == nil {
		return id.String()
	}
	return raw
}

// Instantiate calls the FMU's instantiate entry point exactly once (spec
// §4.G "called exactly once after construction"). Calling it a second time
// is a bad-state programming error and reports status.Error without
// touching the FMU.
func (in *Instance) Instantiate(instanceName string, loggingOn bool) status.Status {
	if in.mode != modeNone {
		return in.record(status.Error)
	}
	in.instanceName = instanceName
	in.loggingOn = loggingOn

	ft := in.bare.Functions()
	guid := normalizeGUID(in.desc.GUID())

	if in.isV1() {
		in.shim = callback.NewVerboseShim(instanceName, nil, nil)
		cb := barefmu.V1Callbacks()
		in.callbacksPtr = cb
		comp, st, err := ft.InstantiateV1(instanceName, guid, cb, loggingOn)
		if err != nil || st != status.OK || comp == nil {
			barefmu.FreeCallbacks(cb)
			in.callbacksPtr = nil
			return in.record(status.Fatal)
		}
		in.comp = comp
		callback.RegisterV1(uintptr(comp), in.shim)
	} else {
		in.shim = callback.NewVerboseShim(instanceName, nil, nil)
		envHandle := callback.RegisterV2(in.shim)
		in.envHandle = envHandle
		cb := barefmu.V2Callbacks(envHandle)
		in.callbacksPtr = cb

		fmuTypeCode := 0 // fmi2ModelExchange
		resourceLocation := "file://" + in.bare.ResourceDir()
		comp, st, err := ft.InstantiateV2(instanceName, fmuTypeCode, guid, resourceLocation, cb, false, loggingOn)
		if err != nil || st != status.OK || comp == nil {
			barefmu.FreeCallbacks(cb)
			in.callbacksPtr = nil
			callback.UnregisterV2(envHandle)
			return in.record(status.Fatal)
		}
		in.comp = comp
	}

	in.mode = modeInstantiated
	return in.record(status.OK)
}

// Initialize transitions the instance into its runnable state (spec §4.G
// "initialize"). If toleranceDefined is false and the model description
// declares a default-experiment tolerance, that tolerance is adopted.
func (in *Instance) Initialize(toleranceDefined bool, tolerance float64) status.Status {
	if in.guardFatal() {
		return status.Fatal
	}
	if in.mode != modeInstantiated {
		return in.record(status.Error)
	}

	if !toleranceDefined {
		exp := in.desc.GetDefaultExperiment()
		if !math.IsNaN(exp.Tolerance) {
			toleranceDefined = true
			tolerance = exp.Tolerance
		}
	}

	ft := in.bare.Functions()
	if in.isV1() {
		relTol := tolerance
		if !toleranceDefined {
			relTol = 1e-4
		}
		info, st := ft.InitializeV1(in.comp, toleranceDefined, relTol)
		in.lastInfo = info
		in.mode = modeContinuousTime
		in.afterInitialize()
		return in.record(st)
	}

	exp := in.desc.GetDefaultExperiment()
	startTime := 0.0
	if !math.IsNaN(exp.StartTime) {
		startTime = exp.StartTime
	}
	stopDefined := !math.IsNaN(exp.StopTime)
	stopTime := exp.StopTime
	if !stopDefined {
		stopTime = 0
	}

	if st := ft.SetupExperiment(in.comp, toleranceDefined, tolerance, startTime, stopDefined, stopTime); in.record(st) == status.Fatal {
		return status.Fatal
	}
	if st := ft.SimpleCall("fmi2EnterInitializationMode", in.comp); in.record(st) == status.Fatal {
		return status.Fatal
	}
	in.mode = modeInitialization
	if st := ft.SimpleCall("fmi2ExitInitializationMode", in.comp); in.record(st) == status.Fatal {
		return status.Fatal
	}

	in.mode = modeEvent
	info, st := ft.NewDiscreteStates(in.comp)
	in.lastInfo = info
	in.record(st)

	if st := ft.SimpleCall("fmi2EnterContinuousTimeMode", in.comp); in.record(st) == status.Fatal {
		return status.Fatal
	}
	in.mode = modeContinuousTime
	in.afterInitialize()
	return in.lastStatus
}

// afterInitialize captures the previous-indicator snapshot required before
// any event detection can be trusted (spec §4.G "After initialize the
// driver also captures the previous-indicator snapshot").
func (in *Instance) afterInitialize() {
	in.GetContinuousStates(in.x)
	in.GetEventIndicators(in.g)
	copy(in.gPrev, in.g)
	in.t = in.desc.GetDefaultExperiment().StartTime
	if math.IsNaN(in.t) {
		in.t = 0
	}
}

// Terminate calls fmi{,2}Terminate followed by free_instance (spec §4.G).
func (in *Instance) Terminate() status.Status {
	if in.mode == modeNone || in.mode == modeTerminated {
		return status.OK
	}
	ft := in.bare.Functions()
	name := "fmiTerminate"
	if !in.isV1() {
		name = "fmi2Terminate"
	}
	st := ft.SimpleCall(name, in.comp)
	in.record(st)
	in.freeInstance()
	in.mode = modeTerminated
	return st
}

func (in *Instance) freeInstance() {
	if in.comp == nil {
		return
	}
	ft := in.bare.Functions()
	name := "fmiFreeModelInstance"
	if !in.isV1() {
		name = "fmi2FreeInstance"
	}
	comp := in.comp
	ft.FreeInstance(name, comp)
	in.comp = nil

	if in.callbacksPtr != nil {
		barefmu.FreeCallbacks(in.callbacksPtr)
		in.callbacksPtr = nil
	}
	if in.isV1() {
		callback.Unregister(uintptr(comp))
	} else if in.envHandle != 0 {
		callback.UnregisterV2(in.envHandle)
		in.envHandle = 0
	}
}

// Release releases this instance's reference to the shared Bare FMU. Call
// after Terminate; the Model Manager refuses to unload while any
// reference is outstanding (spec §3 "Single-binding invariant").
func (in *Instance) Release() {
	in.bare.Release()
}

// FMUType reports the variant this instance was instantiated from.
func (in *Instance) FMUType() modeldescr.FMUType { return in.desc.FMUType() }

func (in *Instance) checkComp() error {
	if in.comp == nil {
		return fmt.Errorf("fmu: instance has no live component")
	}
	return nil
}
