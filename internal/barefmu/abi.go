// This file is the one place in fmigo that crosses from a resolved symbol
// address to an actual C-ABI call. cgo cannot invoke a function pointer
// whose address was only discovered at runtime (dynload.Library.Symbol)
// directly from Go, so every distinct FMI call shape gets a small static C
// trampoline here: it casts the address to the right C function-pointer
// type and calls through it. Everything above this file works with plain
// Go slices, strings and the event-info types in this package.
package barefmu

/*
#include <stdlib.h>

typedef struct {
    int iterationConverged;
    int stateValuesChanged;
    int stateValueReferencesChanged;
    int terminateSimulation;
    int upcomingTimeEvent;
    double nextEventTime;
} fmigo_v1_event_info;

typedef struct {
    int newDiscreteStatesNeeded;
    int terminateSimulation;
    int nominalsOfContinuousStatesChanged;
    int valuesOfContinuousStatesChanged;
    int nextEventTimeDefined;
    double nextEventTime;
} fmigo_v2_event_info;

typedef struct {
    void *logger;
    void *allocateMemory;
    void *freeMemory;
    void *stepFinished;
    void *componentEnvironment;
} fmigo_v1_callbacks;

typedef struct {
    void *logger;
    void *allocateMemory;
    void *freeMemory;
    void *stepFinished;
    void *componentEnvironment;
} fmigo_v2_callbacks;

typedef void *(*fn_instantiate_v1)(const char *, const char *, void *, int);
static void *call_instantiate_v1(void *fn, const char *name, const char *guid, void *callbacks, int loggingOn) {
    return ((fn_instantiate_v1)fn)(name, guid, callbacks, loggingOn);
}

typedef void *(*fn_instantiate_v2)(const char *, int, const char *, const char *, void *, int, int);
static void *call_instantiate_v2(void *fn, const char *instanceName, int fmuType, const char *guid, const char *resourceLocation, void *functions, int visible, int loggingOn) {
    return ((fn_instantiate_v2)fn)(instanceName, fmuType, guid, resourceLocation, functions, visible, loggingOn);
}

typedef int (*fn_i_v_i_d_p)(void *, int, double, fmigo_v1_event_info *);
static int call_initialize_v1(void *fn, void *c, int tolCtrl, double relTol, fmigo_v1_event_info *ei) {
    return ((fn_i_v_i_d_p)fn)(c, tolCtrl, relTol, ei);
}

typedef int (*fn_eventupdate_v1)(void *, int, fmigo_v1_event_info *);
static int call_event_update_v1(void *fn, void *c, int intermediate, fmigo_v1_event_info *ei) {
    return ((fn_eventupdate_v1)fn)(c, intermediate, ei);
}

typedef int (*fn_completed_step_v1)(void *, int *);
static int call_completed_step_v1(void *fn, void *c, int *callEventUpdate) {
    return ((fn_completed_step_v1)fn)(c, callEventUpdate);
}

typedef int (*fn_setup_experiment_v2)(void *, int, double, double, int, double);
static int call_setup_experiment_v2(void *fn, void *c, int tolDef, double tol, double start, int stopDef, double stop) {
    return ((fn_setup_experiment_v2)fn)(c, tolDef, tol, start, stopDef, stop);
}

typedef int (*fn_newdiscretestates_v2)(void *, fmigo_v2_event_info *);
static int call_new_discrete_states_v2(void *fn, void *c, fmigo_v2_event_info *ei) {
    return ((fn_newdiscretestates_v2)fn)(c, ei);
}

typedef int (*fn_completed_step_v2)(void *, int, int *, int *);
static int call_completed_step_v2(void *fn, void *c, int noSetFMUStatePriorToCurrentPoint, int *enterEventMode, int *terminateSimulation) {
    return ((fn_completed_step_v2)fn)(c, noSetFMUStatePriorToCurrentPoint, enterEventMode, terminateSimulation);
}

typedef int (*fn_i_v)(void *);
static int call_i_v(void *fn, void *c) { return ((fn_i_v)fn)(c); }

typedef int (*fn_set_time)(void *, double);
static int call_set_time(void *fn, void *c, double t) { return ((fn_set_time)fn)(c, t); }

typedef void (*fn_v_v)(void *);
static void call_v_v(void *fn, void *c) { ((fn_v_v)fn)(c); }

typedef int (*fn_array)(void *, double *, int);
static int call_array(void *fn, void *c, double *x, int n) { return ((fn_array)fn)(c, x, n); }

typedef int (*fn_vr_real)(void *, const unsigned int *, int, double *);
static int call_vr_real(void *fn, void *c, const unsigned int *vr, int n, double *v) { return ((fn_vr_real)fn)(c, vr, n, v); }

typedef int (*fn_vr_int)(void *, const unsigned int *, int, int *);
static int call_vr_int(void *fn, void *c, const unsigned int *vr, int n, int *v) { return ((fn_vr_int)fn)(c, vr, n, v); }

typedef int (*fn_vr_bool)(void *, const unsigned int *, int, int *);
static int call_vr_bool(void *fn, void *c, const unsigned int *vr, int n, int *v) { return ((fn_vr_bool)fn)(c, vr, n, v); }

typedef int (*fn_vr_string)(void *, const unsigned int *, int, char **);
static int call_vr_string(void *fn, void *c, const unsigned int *vr, int n, char **v) { return ((fn_vr_string)fn)(c, vr, n, v); }

typedef int (*fn_dir_deriv)(void *, const unsigned int *, int, const unsigned int *, int, const double *, double *);
static int call_dir_deriv(void *fn, void *c, const unsigned int *unknownRefs, int nUnknown, const unsigned int *knownRefs, int nKnown, const double *dvKnown, double *dvUnknown) {
    return ((fn_dir_deriv)fn)(c, unknownRefs, nUnknown, knownRefs, nKnown, dvKnown, dvUnknown);
}
*/
import "C"

import (
	"unsafe"

	"github.com/fmigo/fmigo/internal/callback"
	"github.com/fmigo/fmigo/internal/status"
	"github.com/fmigo/fmigo/pkg/events"
)

// V1Callbacks builds the fmiCallbackFunctions struct passed to
// instantiateModel, wired to the default logger/allocator shim (spec
// §4.H). The returned struct is C-allocated; the caller releases it with
// FreeCallbacks once the instance no longer needs it.
func V1Callbacks() unsafe.Pointer {
	cb := (*C.fmigo_v1_callbacks)(C.malloc(C.size_t(unsafe.Sizeof(C.fmigo_v1_callbacks{}))))
	cb.logger = unsafe.Pointer(uintptr(callback.V1LoggerFunctionPointer()))
	cb.allocateMemory = unsafe.Pointer(uintptr(callback.AllocateMemoryFunctionPointer()))
	cb.freeMemory = unsafe.Pointer(uintptr(callback.FreeMemoryFunctionPointer()))
	cb.stepFinished = nil
	cb.componentEnvironment = nil
	return unsafe.Pointer(cb)
}

// V2Callbacks builds the fmi2CallbackFunctions struct, keyed to
// componentEnvironment (a runtime/cgo.Handle value obtained from
// callback.RegisterV2) so the logger bridge can recover the right Shim.
func V2Callbacks(componentEnvironment uintptr) unsafe.Pointer {
	cb := (*C.fmigo_v2_callbacks)(C.malloc(C.size_t(unsafe.Sizeof(C.fmigo_v2_callbacks{}))))
	cb.logger = unsafe.Pointer(uintptr(callback.V2LoggerFunctionPointer()))
	cb.allocateMemory = unsafe.Pointer(uintptr(callback.AllocateMemoryFunctionPointer()))
	cb.freeMemory = unsafe.Pointer(uintptr(callback.FreeMemoryFunctionPointer()))
	cb.stepFinished = unsafe.Pointer(uintptr(callback.V2StepFinishedFunctionPointer()))
	cb.componentEnvironment = unsafe.Pointer(componentEnvironment)
	return unsafe.Pointer(cb)
}

// FreeCallbacks releases a struct returned by V1Callbacks/V2Callbacks.
func FreeCallbacks(p unsafe.Pointer) { C.free(p) }

func cstr(s string) *C.char { return C.CString(s) }

// InstantiateV1 calls fmiInstantiateModel.
func (ft *FunctionTable) InstantiateV1(name, guid string, callbacks unsafe.Pointer, loggingOn bool) (unsafe.Pointer, status.Status, error) {
	addr, ok := ft.Addr("fmiInstantiateModel")
	if !ok {
		return nil, status.Fatal, errNotImplemented("fmiInstantiateModel")
	}
	cname, cguid := cstr(name), cstr(guid)
	defer C.free(unsafe.Pointer(cname))
	defer C.free(unsafe.Pointer(cguid))

	loggingFlag := 0
	if loggingOn {
		loggingFlag = 1
	}
	comp := C.call_instantiate_v1(unsafe.Pointer(uintptr(addr)), cname, cguid, callbacks, C.int(loggingFlag))
	if comp == nil {
		return nil, status.Fatal, nil
	}
	return comp, status.OK, nil
}

// InstantiateV2 calls fmi2Instantiate. fmuType is 0 for Model Exchange, 1
// for Co-Simulation, per the FMI 2.0 fmi2Type enum.
func (ft *FunctionTable) InstantiateV2(instanceName string, fmuType int, guid, resourceLocation string, callbacks unsafe.Pointer, visible, loggingOn bool) (unsafe.Pointer, status.Status, error) {
	addr, ok := ft.Addr("fmi2Instantiate")
	if !ok {
		return nil, status.Fatal, errNotImplemented("fmi2Instantiate")
	}
	cname, cguid, cloc := cstr(instanceName), cstr(guid), cstr(resourceLocation)
	defer C.free(unsafe.Pointer(cname))
	defer C.free(unsafe.Pointer(cguid))
	defer C.free(unsafe.Pointer(cloc))

	comp := C.call_instantiate_v2(unsafe.Pointer(uintptr(addr)), cname, C.int(fmuType), cguid, cloc, callbacks, boolToC(visible), boolToC(loggingOn))
	if comp == nil {
		return nil, status.Fatal, nil
	}
	return comp, status.OK, nil
}

func boolToC(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

// SetTime calls fmiSetTime / fmi2SetTime.
func (ft *FunctionTable) SetTime(comp unsafe.Pointer, name string, t float64) status.Status {
	addr, ok := ft.Addr(name)
	if !ok {
		return status.Fatal
	}
	ret := C.call_set_time(unsafe.Pointer(uintptr(addr)), comp, C.double(t))
	return status.Status(ret)
}

// Array invokes any of the plain (comp, double*, n) FMI calls:
// fmi{,2}SetContinuousStates, fmi{,2}GetContinuousStates,
// fmi{,2}GetDerivatives, fmi{,2}GetEventIndicators,
// fmi{,2}GetNominalContinuousStates / fmi2GetNominalsOfContinuousStates.
func (ft *FunctionTable) Array(name string, comp unsafe.Pointer, x []float64) status.Status {
	addr, ok := ft.Addr(name)
	if !ok {
		return status.Fatal
	}
	var ptr *C.double
	if len(x) > 0 {
		ptr = (*C.double)(unsafe.Pointer(&x[0]))
	}
	ret := C.call_array(unsafe.Pointer(uintptr(addr)), comp, ptr, C.int(len(x)))
	return status.Status(ret)
}

// GetReal/SetReal et al. all share the (comp, vr[], n, value[]) shape.
func (ft *FunctionTable) VRReal(name string, comp unsafe.Pointer, vr []uint32, values []float64) status.Status {
	addr, ok := ft.Addr(name)
	if !ok {
		return status.Fatal
	}
	ret := C.call_vr_real(unsafe.Pointer(uintptr(addr)), comp, vrPtr(vr), C.int(len(vr)), (*C.double)(unsafe.Pointer(&values[0])))
	return status.Status(ret)
}

func (ft *FunctionTable) VRInt(name string, comp unsafe.Pointer, vr []uint32, values []int32) status.Status {
	addr, ok := ft.Addr(name)
	if !ok {
		return status.Fatal
	}
	ret := C.call_vr_int(unsafe.Pointer(uintptr(addr)), comp, vrPtr(vr), C.int(len(vr)), (*C.int)(unsafe.Pointer(&values[0])))
	return status.Status(ret)
}

func (ft *FunctionTable) VRBool(name string, comp unsafe.Pointer, vr []uint32, values []int32) status.Status {
	addr, ok := ft.Addr(name)
	if !ok {
		return status.Fatal
	}
	ret := C.call_vr_bool(unsafe.Pointer(uintptr(addr)), comp, vrPtr(vr), C.int(len(vr)), (*C.int)(unsafe.Pointer(&values[0])))
	return status.Status(ret)
}

// VRStringSet calls fmi{,2}SetString: values are copied into freshly
// allocated C strings for the duration of the call.
func (ft *FunctionTable) VRStringSet(name string, comp unsafe.Pointer, vr []uint32, values []string) status.Status {
	addr, ok := ft.Addr(name)
	if !ok {
		return status.Fatal
	}
	cvals := make([]*C.char, len(values))
	for i, v := range values {
		cvals[i] = cstr(v)
	}
	defer func() {
		for _, p := range cvals {
			C.free(unsafe.Pointer(p))
		}
	}()
	var ptr **C.char
	if len(cvals) > 0 {
		ptr = &cvals[0]
	}
	ret := C.call_vr_string(unsafe.Pointer(uintptr(addr)), comp, vrPtr(vr), C.int(len(vr)), ptr)
	return status.Status(ret)
}

// VRStringGet calls fmi{,2}GetString. Returned strings are copied
// immediately since the FMU retains ownership of the buffers it wrote.
func (ft *FunctionTable) VRStringGet(name string, comp unsafe.Pointer, vr []uint32) ([]string, status.Status) {
	addr, ok := ft.Addr(name)
	if !ok {
		return nil, status.Fatal
	}
	cvals := make([]*C.char, len(vr))
	var ptr **C.char
	if len(cvals) > 0 {
		ptr = &cvals[0]
	}
	ret := C.call_vr_string(unsafe.Pointer(uintptr(addr)), comp, vrPtr(vr), C.int(len(vr)), ptr)
	out := make([]string, len(vr))
	for i, p := range cvals {
		if p != nil {
			out[i] = C.GoString(p)
		}
	}
	return out, status.Status(ret)
}

func vrPtr(vr []uint32) *C.uint {
	if len(vr) == 0 {
		return nil
	}
	return (*C.uint)(unsafe.Pointer(&vr[0]))
}

// InitializeV1 calls fmiInitialize and adapts the vendor event-info struct
// into the package-wide events.Info shape.
func (ft *FunctionTable) InitializeV1(comp unsafe.Pointer, toleranceControlled bool, relativeTolerance float64) (events.Info, status.Status) {
	addr, ok := ft.Addr("fmiInitialize")
	if !ok {
		return events.Info{}, status.Fatal
	}
	var ei C.fmigo_v1_event_info
	ret := C.call_initialize_v1(unsafe.Pointer(uintptr(addr)), comp, boolToC(toleranceControlled), C.double(relativeTolerance), &ei)
	return adaptV1EventInfo(ei), status.Status(ret)
}

// EventUpdateV1 calls fmiEventUpdate.
func (ft *FunctionTable) EventUpdateV1(comp unsafe.Pointer, intermediateResults bool) (events.Info, status.Status) {
	addr, ok := ft.Addr("fmiEventUpdate")
	if !ok {
		return events.Info{}, status.Fatal
	}
	var ei C.fmigo_v1_event_info
	ret := C.call_event_update_v1(unsafe.Pointer(uintptr(addr)), comp, boolToC(intermediateResults), &ei)
	return adaptV1EventInfo(ei), status.Status(ret)
}

// CompletedIntegratorStepV1 calls fmiCompletedIntegratorStep.
func (ft *FunctionTable) CompletedIntegratorStepV1(comp unsafe.Pointer) (callEventUpdate bool, st status.Status) {
	addr, ok := ft.Addr("fmiCompletedIntegratorStep")
	if !ok {
		return false, status.Fatal
	}
	var flag C.int
	ret := C.call_completed_step_v1(unsafe.Pointer(uintptr(addr)), comp, &flag)
	return flag != 0, status.Status(ret)
}

// SetupExperiment calls fmi2SetupExperiment.
func (ft *FunctionTable) SetupExperiment(comp unsafe.Pointer, toleranceDefined bool, tolerance, startTime float64, stopTimeDefined bool, stopTime float64) status.Status {
	addr, ok := ft.Addr("fmi2SetupExperiment")
	if !ok {
		return status.Fatal
	}
	ret := C.call_setup_experiment_v2(unsafe.Pointer(uintptr(addr)), comp, boolToC(toleranceDefined), C.double(tolerance), C.double(startTime), boolToC(stopTimeDefined), C.double(stopTime))
	return status.Status(ret)
}

// SimpleCall invokes any (comp) -> status entry point: fmi2Terminate,
// fmi2EnterInitializationMode, fmi2ExitInitializationMode,
// fmi2EnterEventMode, fmi2EnterContinuousTimeMode, fmiTerminate.
func (ft *FunctionTable) SimpleCall(name string, comp unsafe.Pointer) status.Status {
	addr, ok := ft.Addr(name)
	if !ok {
		return status.Fatal
	}
	ret := C.call_i_v(unsafe.Pointer(uintptr(addr)), comp)
	return status.Status(ret)
}

// FreeInstance invokes fmiFreeModelInstance / fmi2FreeInstance.
func (ft *FunctionTable) FreeInstance(name string, comp unsafe.Pointer) {
	addr, ok := ft.Addr(name)
	if !ok {
		return
	}
	C.call_v_v(unsafe.Pointer(uintptr(addr)), comp)
}

// NewDiscreteStates calls fmi2NewDiscreteStates.
func (ft *FunctionTable) NewDiscreteStates(comp unsafe.Pointer) (events.Info, status.Status) {
	addr, ok := ft.Addr("fmi2NewDiscreteStates")
	if !ok {
		return events.Info{}, status.Fatal
	}
	var ei C.fmigo_v2_event_info
	ret := C.call_new_discrete_states_v2(unsafe.Pointer(uintptr(addr)), comp, &ei)
	return adaptV2EventInfo(ei), status.Status(ret)
}

// CompletedIntegratorStepV2 calls fmi2CompletedIntegratorStep.
func (ft *FunctionTable) CompletedIntegratorStepV2(comp unsafe.Pointer, noSetFMUStatePriorToCurrentPoint bool) (enterEventMode, terminateSimulation bool, st status.Status) {
	addr, ok := ft.Addr("fmi2CompletedIntegratorStep")
	if !ok {
		return false, false, status.Fatal
	}
	var eem, term C.int
	ret := C.call_completed_step_v2(unsafe.Pointer(uintptr(addr)), comp, boolToC(noSetFMUStatePriorToCurrentPoint), &eem, &term)
	return eem != 0, term != 0, status.Status(ret)
}

// GetDirectionalDerivative calls fmi2GetDirectionalDerivative.
func (ft *FunctionTable) GetDirectionalDerivative(comp unsafe.Pointer, unknownRefs, knownRefs []uint32, dvKnown []float64) ([]float64, status.Status) {
	addr, ok := ft.Addr("fmi2GetDirectionalDerivative")
	if !ok {
		return nil, status.Fatal
	}
	dvUnknown := make([]float64, len(unknownRefs))
	ret := C.call_dir_deriv(
		unsafe.Pointer(uintptr(addr)), comp,
		vrPtr(unknownRefs), C.int(len(unknownRefs)),
		vrPtr(knownRefs), C.int(len(knownRefs)),
		(*C.double)(unsafe.Pointer(&dvKnown[0])), (*C.double)(unsafe.Pointer(&dvUnknown[0])),
	)
	return dvUnknown, status.Status(ret)
}

func adaptV1EventInfo(ei C.fmigo_v1_event_info) events.Info {
	return events.Info{
		DiscreteStatesNeedUpdate: ei.iterationConverged == 0,
		StateValuesChanged:       ei.stateValuesChanged != 0,
		NominalsChanged:          ei.stateValueReferencesChanged != 0,
		TerminateSimulation:      ei.terminateSimulation != 0,
		TimeEventPending:         ei.upcomingTimeEvent != 0,
		NextEventTime:            float64(ei.nextEventTime),
	}
}

func adaptV2EventInfo(ei C.fmigo_v2_event_info) events.Info {
	return events.Info{
		DiscreteStatesNeedUpdate: ei.newDiscreteStatesNeeded != 0,
		StateValuesChanged:       ei.valuesOfContinuousStatesChanged != 0,
		NominalsChanged:          ei.nominalsOfContinuousStatesChanged != 0,
		TerminateSimulation:      ei.terminateSimulation != 0,
		TimeEventPending:         ei.nextEventTimeDefined != 0,
		NextEventTime:            float64(ei.nextEventTime),
	}
}

type notImplementedError struct{ name string }

func (e notImplementedError) Error() string { return "fmigo: function not bound by this variant: " + e.name }

func errNotImplemented(name string) error { return notImplementedError{name: name} }
