// Package modeldescr parses and queries the XML manifest ("model
// description") carried by every FMU (spec §4.A). Parsing is treated as a
// mechanical, low-interest concern here — the spec names XML parsing itself
// as an external collaborator (§1, §6) — so this package leans on the
// standard library's encoding/xml rather than a bespoke parser; nothing in
// the retrieved examples brings its own XML library for this kind of
// manifest-reading task.
package modeldescr

import "math"

// FMUType is the resolved variant of a loaded or described FMU.
type FMUType int

const (
	Invalid FMUType = iota
	ME10
	CS10
	ME20
	CS20
	MEAndCS20
)

func (t FMUType) String() string {
	switch t {
	case ME10:
		return "ME_1_0"
	case CS10:
		return "CS_1_0"
	case ME20:
		return "ME_2_0"
	case CS20:
		return "CS_2_0"
	case MEAndCS20:
		return "ME_and_CS_2_0"
	default:
		return "invalid"
	}
}

// IsModelExchange reports whether t declares a Model Exchange interface.
func (t FMUType) IsModelExchange() bool {
	return t == ME10 || t == ME20 || t == MEAndCS20
}

// IsCoSimulation reports whether t declares a Co-Simulation interface.
func (t FMUType) IsCoSimulation() bool {
	return t == CS10 || t == CS20 || t == MEAndCS20
}

// ScalarType is the FMI primitive type of a model variable.
type ScalarType int

const (
	TypeUnknown ScalarType = iota
	TypeReal
	TypeInteger
	TypeBoolean
	TypeString
)

func (t ScalarType) String() string {
	switch t {
	case TypeReal:
		return "Real"
	case TypeInteger:
		return "Integer"
	case TypeBoolean:
		return "Boolean"
	case TypeString:
		return "String"
	default:
		return "Unknown"
	}
}

// ScalarVariable is one entry of the model's ordered variable list.
type ScalarVariable struct {
	Name          string
	ValueRef      uint32
	Type          ScalarType
	Causality     string
	Variability   string
	StartReal     float64
	StartInteger  int32
	StartBoolean  bool
	StartString   string
	HasStart      bool
	Derivative    bool // true if this variable is itself a derivative of another state
	StateRefIndex int  // not filled in by Parse; always 0
}

// DefaultExperiment mirrors the optional <DefaultExperiment> element. Any
// field that was absent in the XML is left as NaN so callers can detect
// absence with math.IsNaN, per spec §4.A.
type DefaultExperiment struct {
	StartTime float64
	StopTime  float64
	Tolerance float64
	StepSize  float64
}

// NotAvailable is the sentinel used for absent DefaultExperiment fields.
var NotAvailable = math.NaN()

func newDefaultExperiment() DefaultExperiment {
	return DefaultExperiment{
		StartTime: NotAvailable,
		StopTime:  NotAvailable,
		Tolerance: NotAvailable,
		StepSize:  NotAvailable,
	}
}

// VariableCounts reports how many model variables of each scalar type are
// declared (spec §4.A number_of_variables_by_type).
type VariableCounts struct {
	Real, Integer, Boolean, String int
}
