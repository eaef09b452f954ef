package fmu

import (
	"github.com/fmigo/fmigo/internal/modeldescr"
	"github.com/fmigo/fmigo/internal/status"
)

func (in *Instance) realGetterName() string {
	if in.isV1() {
		return "fmiGetReal"
	}
	return "fmi2GetReal"
}
func (in *Instance) realSetterName() string {
	if in.isV1() {
		return "fmiSetReal"
	}
	return "fmi2SetReal"
}
func (in *Instance) intGetterName() string {
	if in.isV1() {
		return "fmiGetInteger"
	}
	return "fmi2GetInteger"
}
func (in *Instance) intSetterName() string {
	if in.isV1() {
		return "fmiSetInteger"
	}
	return "fmi2SetInteger"
}
func (in *Instance) boolGetterName() string {
	if in.isV1() {
		return "fmiGetBoolean"
	}
	return "fmi2GetBoolean"
}
func (in *Instance) boolSetterName() string {
	if in.isV1() {
		return "fmiSetBoolean"
	}
	return "fmi2SetBoolean"
}
func (in *Instance) stringGetterName() string {
	if in.isV1() {
		return "fmiGetString"
	}
	return "fmi2GetString"
}
func (in *Instance) stringSetterName() string {
	if in.isV1() {
		return "fmiSetString"
	}
	return "fmi2SetString"
}

// GetReal reads the Real values at refs, batched (spec §4.G "Batched
// variants take parallel arrays").
func (in *Instance) GetReal(refs []uint32) ([]float64, status.Status) {
	if in.guardFatal() {
		return nil, status.Fatal
	}
	values := make([]float64, len(refs))
	st := in.bare.Functions().VRReal(in.realGetterName(), in.comp, refs, values)
	return values, in.record(st)
}

// SetReal writes values at refs.
func (in *Instance) SetReal(refs []uint32, values []float64) status.Status {
	if in.guardFatal() {
		return status.Fatal
	}
	st := in.bare.Functions().VRReal(in.realSetterName(), in.comp, refs, values)
	return in.record(st)
}

func (in *Instance) GetInteger(refs []uint32) ([]int32, status.Status) {
	if in.guardFatal() {
		return nil, status.Fatal
	}
	values := make([]int32, len(refs))
	st := in.bare.Functions().VRInt(in.intGetterName(), in.comp, refs, values)
	return values, in.record(st)
}

func (in *Instance) SetInteger(refs []uint32, values []int32) status.Status {
	if in.guardFatal() {
		return status.Fatal
	}
	st := in.bare.Functions().VRInt(in.intSetterName(), in.comp, refs, values)
	return in.record(st)
}

// GetBoolean/SetBoolean marshal Go bool through the FMI int-as-bool ABI.
func (in *Instance) GetBoolean(refs []uint32) ([]bool, status.Status) {
	if in.guardFatal() {
		return nil, status.Fatal
	}
	raw := make([]int32, len(refs))
	st := in.bare.Functions().VRBool(in.boolGetterName(), in.comp, refs, raw)
	out := make([]bool, len(refs))
	for i, v := range raw {
		out[i] = v != 0
	}
	return out, in.record(st)
}

func (in *Instance) SetBoolean(refs []uint32, values []bool) status.Status {
	if in.guardFatal() {
		return status.Fatal
	}
	raw := make([]int32, len(values))
	for i, v := range values {
		if v {
			raw[i] = 1
		}
	}
	st := in.bare.Functions().VRBool(in.boolSetterName(), in.comp, refs, raw)
	return in.record(st)
}

func (in *Instance) GetString(refs []uint32) ([]string, status.Status) {
	if in.guardFatal() {
		return nil, status.Fatal
	}
	values, st := in.bare.Functions().VRStringGet(in.stringGetterName(), in.comp, refs)
	return values, in.record(st)
}

func (in *Instance) SetString(refs []uint32, values []string) status.Status {
	if in.guardFatal() {
		return status.Fatal
	}
	st := in.bare.Functions().VRStringSet(in.stringSetterName(), in.comp, refs, values)
	return in.record(st)
}

// lookup resolves name to its ScalarVariable, logging a warning and
// returning a "discard" status on a miss. A missing name is never fatal
// (spec §4.G "Name-unknown returns a discard status ... it is never
// fatal").
func (in *Instance) lookup(name string) (modeldescr.ScalarVariable, bool) {
	v, ok := in.desc.LookupByName(name)
	if !ok {
		in.record(status.Discard)
		if in.shim != nil {
			in.shim.Warn("fmu: unknown variable name", "name", name)
		}
	}
	return v, ok
}

// GetRealByName/SetRealByName and their Integer/Boolean/String siblings
// expose the by-name convenience layer built on the model description's
// name->reference map (spec §4.G "addressable by value reference or by
// name").
func (in *Instance) GetRealByName(name string) (float64, status.Status) {
	v, ok := in.lookup(name)
	if !ok {
		return 0, status.Discard
	}
	values, st := in.GetReal([]uint32{v.ValueRef})
	return values[0], st
}

func (in *Instance) SetRealByName(name string, value float64) status.Status {
	v, ok := in.lookup(name)
	if !ok {
		return status.Discard
	}
	return in.SetReal([]uint32{v.ValueRef}, []float64{value})
}

func (in *Instance) GetIntegerByName(name string) (int32, status.Status) {
	v, ok := in.lookup(name)
	if !ok {
		return 0, status.Discard
	}
	values, st := in.GetInteger([]uint32{v.ValueRef})
	return values[0], st
}

func (in *Instance) SetIntegerByName(name string, value int32) status.Status {
	v, ok := in.lookup(name)
	if !ok {
		return status.Discard
	}
	return in.SetInteger([]uint32{v.ValueRef}, []int32{value})
}

func (in *Instance) GetBooleanByName(name string) (bool, status.Status) {
	v, ok := in.lookup(name)
	if !ok {
		return false, status.Discard
	}
	values, st := in.GetBoolean([]uint32{v.ValueRef})
	return values[0], st
}

func (in *Instance) SetBooleanByName(name string, value bool) status.Status {
	v, ok := in.lookup(name)
	if !ok {
		return status.Discard
	}
	return in.SetBoolean([]uint32{v.ValueRef}, []bool{value})
}

func (in *Instance) GetStringByName(name string) (string, status.Status) {
	v, ok := in.lookup(name)
	if !ok {
		return "", status.Discard
	}
	values, st := in.GetString([]uint32{v.ValueRef})
	return values[0], st
}

func (in *Instance) SetStringByName(name string, value string) status.Status {
	v, ok := in.lookup(name)
	if !ok {
		return status.Discard
	}
	return in.SetString([]uint32{v.ValueRef}, []string{value})
}
