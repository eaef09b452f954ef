// Package barefmu implements the Bare FMU (spec §4.B): a loaded shared
// library plus its parsed Model Description plus a function-pointer table
// resolved according to the FMI version/variant it declares. A Bare FMU
// owns no simulation state — that belongs to internal/fmu's FMU Instance,
// which holds a reference to one Bare FMU and drives it.
package barefmu

import (
	"fmt"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/internal/dynload"
	"github.com/fmigo/fmigo/internal/modeldescr"
)

// trapped is the sentinel address recorded for a function the loaded
// variant does not declare. fmigo never dlsym's a name the description
// rules out; calling through a trapped entry is a programming error in the
// driver, not a runtime condition an FMU ever triggers, so the call
// wrappers return status.Fatal for it rather than jumping through an invalid address
// (spec §4.B: "functions not implemented ... are bound to a trap").
const trapped uintptr = 0

// FunctionTable is the resolved address of every FMI entry point a Bare
// FMU's variant declares, keyed by the plain (unprefixed) standard name.
type FunctionTable struct {
	addrs map[string]uintptr
}

// Addr returns the resolved address for name, or (trapped, false) if name
// was not declared by this variant.
func (ft *FunctionTable) Addr(name string) (uintptr, bool) {
	a, ok := ft.addrs[name]
	if !ok || a == trapped {
		return trapped, false
	}
	return a, true
}

// v1MECommon is present on every FMI 1.0 Model Exchange FMU.
var v1MECommon = []string{
	"fmiGetVersion", "fmiSetDebugLogging",
	"fmiInstantiateModel", "fmiFreeModelInstance",
	"fmiSetTime", "fmiSetContinuousStates", "fmiCompletedIntegratorStep",
	"fmiSetReal", "fmiSetInteger", "fmiSetBoolean", "fmiSetString",
	"fmiInitialize",
	"fmiGetDerivatives", "fmiGetEventIndicators",
	"fmiEventUpdate",
	"fmiGetContinuousStates", "fmiGetNominalContinuousStates", "fmiGetStateValueReferences",
	"fmiTerminate",
	"fmiGetReal", "fmiGetInteger", "fmiGetBoolean", "fmiGetString",
}

// v1CSCommon is present on every FMI 1.0 Co-Simulation FMU. fmigo resolves
// these (the Model Manager's report lists them) but the driver, which is
// Model-Exchange-only per spec §1, never calls through them.
var v1CSCommon = []string{
	"fmiInstantiateSlave", "fmiInitializeSlave", "fmiTerminateSlave", "fmiResetSlave", "fmiFreeSlaveInstance",
	"fmiSetRealInputDerivatives", "fmiGetRealOutputDerivatives",
	"fmiDoStep", "fmiCancelStep",
	"fmiGetStatus", "fmiGetRealStatus", "fmiGetIntegerStatus", "fmiGetBooleanStatus", "fmiGetStringStatus",
}

// v2Common is present on every FMI 2.0 FMU regardless of variant.
var v2Common = []string{
	"fmi2GetTypesPlatform", "fmi2GetVersion", "fmi2SetDebugLogging",
	"fmi2Instantiate", "fmi2FreeInstance",
	"fmi2SetupExperiment", "fmi2EnterInitializationMode", "fmi2ExitInitializationMode",
	"fmi2Terminate", "fmi2Reset",
	"fmi2GetReal", "fmi2GetInteger", "fmi2GetBoolean", "fmi2GetString",
	"fmi2SetReal", "fmi2SetInteger", "fmi2SetBoolean", "fmi2SetString",
	"fmi2GetFMUstate", "fmi2SetFMUstate", "fmi2FreeFMUstate",
	"fmi2SerializedFMUstateSize", "fmi2SerializeFMUstate", "fmi2DeSerializeFMUstate",
	"fmi2GetDirectionalDerivative",
}

// v2MEOnly is resolved only when the description declares a Model
// Exchange interface (spec §4.B: "resolves ME-specific and CS-specific
// subsets only if the description declares the matching variant").
var v2MEOnly = []string{
	"fmi2EnterEventMode", "fmi2NewDiscreteStates", "fmi2EnterContinuousTimeMode",
	"fmi2CompletedIntegratorStep",
	"fmi2SetTime", "fmi2SetContinuousStates",
	"fmi2GetDerivatives", "fmi2GetEventIndicators",
	"fmi2GetContinuousStates", "fmi2GetNominalsOfContinuousStates",
}

// v2CSOnly is resolved only when the description declares a Co-Simulation
// interface.
var v2CSOnly = []string{
	"fmi2SetRealInputDerivatives", "fmi2GetRealOutputDerivatives",
	"fmi2DoStep", "fmi2CancelStep",
	"fmi2GetStatus", "fmi2GetRealStatus", "fmi2GetIntegerStatus", "fmi2GetBooleanStatus", "fmi2GetStringStatus",
}

// resolve builds a FunctionTable for lib, prefixing v1 symbol names with
// modelID per spec §4.B and logging a warning (not an error) for each
// symbol the declared variant calls for but the library does not export —
// that partial result is what lets the caller decide whether to discard
// the Bare FMU.
func resolve(lib *dynload.Library, md *modeldescr.ModelDescription, log arch.Logger) (*FunctionTable, []string) {
	ft := &FunctionTable{addrs: make(map[string]uintptr)}
	var missing []string

	resolveOne := func(plainName, symbolName string) {
		addr, err := lib.Symbol(symbolName)
		if err != nil {
			missing = append(missing, plainName)
			log.Warn("bare fmu: required symbol not found", "symbol", symbolName, "err", err.Error())
			ft.addrs[plainName] = trapped
			return
		}
		ft.addrs[plainName] = addr
	}

	switch {
	case md.FMUType() == modeldescr.ME10:
		prefix := md.ModelIdentifierME() + "_"
		for _, name := range v1MECommon {
			resolveOne(name, prefix+name)
		}
	case md.FMUType() == modeldescr.CS10:
		prefix := md.ModelIdentifierCS() + "_"
		for _, name := range v1CSCommon {
			resolveOne(name, prefix+name)
		}
	default:
		for _, name := range v2Common {
			resolveOne(name, name)
		}
		if md.FMUType().IsModelExchange() {
			for _, name := range v2MEOnly {
				resolveOne(name, name)
			}
		}
		if md.FMUType().IsCoSimulation() {
			for _, name := range v2CSOnly {
				resolveOne(name, name)
			}
		}
	}

	return ft, missing
}

func (ft *FunctionTable) String() string {
	return fmt.Sprintf("FunctionTable{%d symbols resolved}", len(ft.addrs))
}
