package modeldescr

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/fmigo/fmigo/internal/arch"
)

// ErrInvalidDescription is returned when the root element is absent or the
// FMI version cannot be mapped to a supported variant (spec §4.A).
type ErrInvalidDescription struct {
	Reason string
}

func (e *ErrInvalidDescription) Error() string {
	return fmt.Sprintf("invalid model description: %s", e.Reason)
}

// ModelDescription is immutable after construction (spec §3).
type ModelDescription struct {
	valid      bool
	fmiVersion string
	fmuType    FMUType
	guid       string
	mimeType   string
	entryPoint string

	modelIdentifierME string
	modelIdentifierCS string

	nStates int
	nEventIndicators int

	variables     []ScalarVariable
	byName        map[string]int
	byRef         map[uint32]int

	defaultExperiment DefaultExperiment
	hasDefaultExperiment bool

	providesJacobian bool
	canHandleVariableStep bool

	stateRefs      []uint32
	derivativeRefs []uint32
}

// Parse parses a model description document already read into memory. It
// is the primitive every other constructor below funnels through.
func Parse(data []byte, log arch.Logger) (*ModelDescription, error) {
	if log == nil {
		log = noopLogger{}
	}
	var root xmlRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, &ErrInvalidDescription{Reason: err.Error()}
	}
	if root.XMLName.Local != "fmiModelDescription" {
		return nil, &ErrInvalidDescription{Reason: "missing fmiModelDescription root element"}
	}

	md := &ModelDescription{
		guid:   root.GUID,
		byName: make(map[string]int),
		byRef:  make(map[uint32]int),
	}

	switch {
	case strings.HasPrefix(root.FMIVersion, "1.0"):
		md.fmiVersion = "1.0"
		if err := md.parseV1(root); err != nil {
			return nil, err
		}
	case strings.HasPrefix(root.FMIVersion, "2.0"):
		md.fmiVersion = "2.0"
		if err := md.parseV2(root); err != nil {
			return nil, err
		}
	default:
		return nil, &ErrInvalidDescription{Reason: fmt.Sprintf("unsupported fmiVersion %q", root.FMIVersion)}
	}

	md.parseVariables(root.ModelVariables.Variables, log)
	if md.fmiVersion == "1.0" {
		// FMI 1.0 declares the state count as a root attribute.
		md.nStates = root.NumContinuousStates
	}
	md.parseDefaultExperiment(root.DefaultExp)

	md.valid = true
	return md, nil
}

func (md *ModelDescription) parseV1(root xmlRoot) error {
	switch {
	case root.ModelExchange != nil && root.CoSimulation == nil:
		md.fmuType = ME10
		md.modelIdentifierME = firstNonEmpty(root.ModelExchange.ModelIdentifier, root.ModelIdentifier)
		md.providesJacobian = false
	case root.CoSimulation != nil && root.ModelExchange == nil:
		md.fmuType = CS10
		md.modelIdentifierCS = firstNonEmpty(root.CoSimulation.ModelIdentifier, root.ModelIdentifier)
		if root.Implementation != nil && root.Implementation.CoSimStandAlone != nil {
			md.mimeType = root.Implementation.CoSimStandAlone.Capabilities.MimeType
			md.entryPoint = root.Implementation.CoSimStandAlone.Capabilities.Entry
		}
	case root.ModelIdentifier != "":
		// v1 FMUs commonly carry modelIdentifier at the root with no
		// nested ModelExchange/CoSimulation element when the archive is
		// ME-only.
		md.fmuType = ME10
		md.modelIdentifierME = root.ModelIdentifier
	default:
		return &ErrInvalidDescription{Reason: "FMI 1.0 description declares neither ModelExchange nor CoSimulation"}
	}
	md.nEventIndicators = root.NumEventIndicators
	return nil
}

func (md *ModelDescription) parseV2(root xmlRoot) error {
	hasME := root.ModelExchange != nil
	hasCS := root.CoSimulation != nil
	switch {
	case hasME && hasCS:
		md.fmuType = MEAndCS20
	case hasME:
		md.fmuType = ME20
	case hasCS:
		md.fmuType = CS20
	default:
		return &ErrInvalidDescription{Reason: "FMI 2.0 description declares neither ModelExchange nor CoSimulation"}
	}
	if hasME {
		md.modelIdentifierME = root.ModelExchange.ModelIdentifier
		md.providesJacobian = root.ModelExchange.ProvidesDirectionalDeriv
		md.canHandleVariableStep = root.ModelExchange.CanHandleVariableStep
	}
	if hasCS {
		md.modelIdentifierCS = root.CoSimulation.ModelIdentifier
	}
	md.nEventIndicators = root.NumEventIndicators
	return nil
}

func (md *ModelDescription) parseVariables(vars []xmlScalarVariable, log arch.Logger) {
	seenNames := make(map[string]bool)
	seenRefs := make(map[uint32]bool)

	// A Real variable's derivative attribute holds the 1-based index into
	// ModelVariables of the state it differentiates. Capture the index of
	// every such variable so the loop after this one can pair each with
	// that state (spec §4.A get_states_and_derivatives_references).
	type derivPair struct {
		derivativeIndex int // 0-based index into md.variables
		stateIndex      int // 0-based index into md.variables, from xmlReal.Derivative (1-based)
	}
	var pairs []derivPair

	for i, v := range vars {
		sv := ScalarVariable{
			Name:        v.Name,
			ValueRef:    v.ValueRef,
			Causality:   v.Causality,
			Variability: v.Variability,
		}
		switch {
		case v.Real != nil:
			sv.Type = TypeReal
			if v.Real.Start != nil {
				sv.StartReal = *v.Real.Start
				sv.HasStart = true
			}
			if v.Real.Derivative != nil {
				sv.Derivative = true
				pairs = append(pairs, derivPair{derivativeIndex: i, stateIndex: *v.Real.Derivative - 1})
			}
		case v.Integer != nil:
			sv.Type = TypeInteger
			if v.Integer.Start != nil {
				sv.StartInteger = *v.Integer.Start
				sv.HasStart = true
			}
		case v.Boolean != nil:
			sv.Type = TypeBoolean
			if v.Boolean.Start != nil {
				sv.StartBoolean = *v.Boolean.Start
				sv.HasStart = true
			}
		case v.String != nil:
			sv.Type = TypeString
			if v.String.Start != nil {
				sv.StartString = *v.String.Start
				sv.HasStart = true
			}
		default:
			sv.Type = TypeUnknown
		}

		if seenNames[sv.Name] {
			log.Warn("duplicate variable name in model description", "name", sv.Name)
		}
		seenNames[sv.Name] = true
		if seenRefs[sv.ValueRef] {
			log.Warn("duplicate value reference in model description", "valueReference", sv.ValueRef)
		}
		seenRefs[sv.ValueRef] = true

		md.byName[sv.Name] = len(md.variables)
		md.byRef[sv.ValueRef] = len(md.variables)
		md.variables = append(md.variables, sv)
	}

	md.stateRefs = md.stateRefs[:0]
	md.derivativeRefs = md.derivativeRefs[:0]
	for _, p := range pairs {
		if p.stateIndex < 0 || p.stateIndex >= len(md.variables) {
			continue
		}
		md.stateRefs = append(md.stateRefs, md.variables[p.stateIndex].ValueRef)
		md.derivativeRefs = append(md.derivativeRefs, md.variables[p.derivativeIndex].ValueRef)
	}
	md.nStates = len(md.stateRefs)
}

func (md *ModelDescription) parseDefaultExperiment(e *xmlDefaultExp) {
	md.defaultExperiment = newDefaultExperiment()
	if e == nil {
		return
	}
	md.hasDefaultExperiment = true
	if e.StartTime != nil {
		md.defaultExperiment.StartTime = *e.StartTime
	}
	if e.StopTime != nil {
		md.defaultExperiment.StopTime = *e.StopTime
	}
	if e.Tolerance != nil {
		md.defaultExperiment.Tolerance = *e.Tolerance
	}
	if e.StepSize != nil {
		md.defaultExperiment.StepSize = *e.StepSize
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// ParseFile reads and parses a model description from a filesystem path.
func ParseFile(path string, log arch.Logger) (*ModelDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model description: %w", err)
	}
	return Parse(data, log)
}

// ParseURL resolves a file:// URL to a path and parses it. Only file://
// URLs are accepted on POSIX, per spec §6; any other scheme is rejected
// here rather than in a general-purpose URL-to-path collaborator, since
// that conversion is explicitly out of this library's scope (spec §1) and
// this is the one place within scope that needs it.
func ParseURL(rawURL string, log arch.Logger) (*ModelDescription, error) {
	path, err := FileURLToPath(rawURL)
	if err != nil {
		return nil, err
	}
	return ParseFile(path, log)
}

// FileURLToPath converts a file:// URL to a filesystem path, or returns the
// input unchanged if it is already a bare path.
func FileURLToPath(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw, nil
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	return p, nil
}

// ---- public read-only accessors (spec §4.A) ----

func (md *ModelDescription) IsValid() bool          { return md.valid }
func (md *ModelDescription) FMIVersion() string     { return md.fmiVersion }
func (md *ModelDescription) FMUType() FMUType       { return md.fmuType }
func (md *ModelDescription) GUID() string           { return md.guid }
func (md *ModelDescription) MimeType() string       { return md.mimeType }
func (md *ModelDescription) EntryPoint() string     { return md.entryPoint }
func (md *ModelDescription) ProvidesJacobian() bool { return md.providesJacobian }
func (md *ModelDescription) CanHandleVariableStep() bool { return md.canHandleVariableStep }

// ModelIdentifiers returns the one or two model identifiers this
// description declares (v2 ME+CS FMUs declare two).
func (md *ModelDescription) ModelIdentifiers() []string {
	var ids []string
	if md.modelIdentifierME != "" {
		ids = append(ids, md.modelIdentifierME)
	}
	if md.modelIdentifierCS != "" && md.modelIdentifierCS != md.modelIdentifierME {
		ids = append(ids, md.modelIdentifierCS)
	}
	return ids
}

func (md *ModelDescription) ModelIdentifierME() string { return md.modelIdentifierME }
func (md *ModelDescription) ModelIdentifierCS() string { return md.modelIdentifierCS }

// HasModelIdentifier reports whether id matches any identifier this
// description declares (used by the Model Manager's load-by-explicit-ID
// check, spec §4.C).
func (md *ModelDescription) HasModelIdentifier(id string) bool {
	for _, i := range md.ModelIdentifiers() {
		if i == id {
			return true
		}
	}
	return false
}

func (md *ModelDescription) NumberOfContinuousStates() int  { return md.nStates }
func (md *ModelDescription) NumberOfEventIndicators() int   { return md.nEventIndicators }

func (md *ModelDescription) NumberOfVariablesByType() VariableCounts {
	var c VariableCounts
	for _, v := range md.variables {
		switch v.Type {
		case TypeReal:
			c.Real++
		case TypeInteger:
			c.Integer++
		case TypeBoolean:
			c.Boolean++
		case TypeString:
			c.String++
		}
	}
	return c
}

// GetDefaultExperiment returns the default experiment, with any absent
// field left as NaN (spec §4.A).
func (md *ModelDescription) GetDefaultExperiment() DefaultExperiment {
	return md.defaultExperiment
}

func (md *ModelDescription) HasDefaultExperiment() bool { return md.hasDefaultExperiment }

// GetStatesAndDerivativesReferences fills two parallel slices matching
// each continuous state's value reference with its derivative's value
// reference (FMI 2.0 only; spec §4.A).
func (md *ModelDescription) GetStatesAndDerivativesReferences() (stateRefs, derivativeRefs []uint32) {
	stateRefs = append([]uint32(nil), md.stateRefs...)
	derivativeRefs = append([]uint32(nil), md.derivativeRefs...)
	return
}

// GetModelVariables returns the ordered variable list.
func (md *ModelDescription) GetModelVariables() []ScalarVariable {
	return md.variables
}

// LookupByName resolves a variable by name.
func (md *ModelDescription) LookupByName(name string) (ScalarVariable, bool) {
	i, ok := md.byName[name]
	if !ok {
		return ScalarVariable{}, false
	}
	return md.variables[i], true
}

// LookupByRef resolves a variable by value reference. It returns a single
// variable: when several variables share the reference, the one declared
// last wins and the others are not returned.
func (md *ModelDescription) LookupByRef(ref uint32) (ScalarVariable, bool) {
	i, ok := md.byRef[ref]
	if !ok {
		return ScalarVariable{}, false
	}
	return md.variables[i], true
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}
