package modeldescr

import "encoding/xml"

// The following mirror only the subset of modelDescription.xml this
// package needs; FMI's schema carries many more optional elements the
// driver never queries.

type xmlRoot struct {
	XMLName           xml.Name           `xml:"fmiModelDescription"`
	FMIVersion        string             `xml:"fmiVersion,attr"`
	GUID              string             `xml:"guid,attr"`
	ModelIdentifier    string             `xml:"modelIdentifier,attr"` // v1, and v2 common fallback
	NumEventIndicators int               `xml:"numberOfEventIndicators,attr"`
	NumContinuousStates int              `xml:"numberOfContinuousStates,attr"` // v1 only

	ModelExchange   *xmlModelExchange   `xml:"ModelExchange"`
	CoSimulation    *xmlCoSimulation    `xml:"CoSimulation"`
	Implementation  *xmlImplementation  `xml:"Implementation"`
	DefaultExp      *xmlDefaultExp      `xml:"DefaultExperiment"`
	ModelVariables  xmlModelVariables   `xml:"ModelVariables"`
	ModelStructure  *xmlModelStructure  `xml:"ModelStructure"`
}

type xmlModelExchange struct {
	ModelIdentifier              string `xml:"modelIdentifier,attr"`
	ProvidesDirectionalDeriv     bool   `xml:"providesDirectionalDerivative,attr"`
	CanHandleVariableStep        bool   `xml:"canHandleVariableCommunicationStepSize,attr"`
}

type xmlCoSimulation struct {
	ModelIdentifier       string `xml:"modelIdentifier,attr"`
	CanHandleVariableStep bool   `xml:"canHandleVariableCommunicationStepSize,attr"`
}

// xmlImplementation carries the FMI 1.0 CS entry point / mime type, nested
// under <Implementation><CoSimulation_StandAlone>|<CoSimulation_Tool>.
type xmlImplementation struct {
	CoSimStandAlone *xmlCoSimStandAlone `xml:"CoSimulation_StandAlone"`
}

type xmlCoSimStandAlone struct {
	Capabilities xmlCapabilities `xml:"Capabilities"`
}

type xmlCapabilities struct {
	MimeType string `xml:"mimeType,attr"`
	Entry    string `xml:"entryPoint,attr"`
}

type xmlDefaultExp struct {
	StartTime *float64 `xml:"startTime,attr"`
	StopTime  *float64 `xml:"stopTime,attr"`
	Tolerance *float64 `xml:"tolerance,attr"`
	StepSize  *float64 `xml:"stepSize,attr"`
}

type xmlModelVariables struct {
	Variables []xmlScalarVariable `xml:"ScalarVariable"`
}

type xmlScalarVariable struct {
	Name        string      `xml:"name,attr"`
	ValueRef    uint32      `xml:"valueReference,attr"`
	Causality   string      `xml:"causality,attr"`
	Variability string      `xml:"variability,attr"`
	Real        *xmlReal    `xml:"Real"`
	Integer     *xmlInteger `xml:"Integer"`
	Boolean     *xmlBoolean `xml:"Boolean"`
	String      *xmlString  `xml:"String"`
}

type xmlReal struct {
	Start      *float64 `xml:"start,attr"`
	Derivative *int     `xml:"derivative,attr"`
}
type xmlInteger struct {
	Start *int32 `xml:"start,attr"`
}
type xmlBoolean struct {
	Start *bool `xml:"start,attr"`
}
type xmlString struct {
	Start *string `xml:"start,attr"`
}

type xmlModelStructure struct {
	Derivatives *xmlDerivatives `xml:"Derivatives"`
}

type xmlDerivatives struct {
	Unknowns []xmlUnknown `xml:"Unknown"`
}

type xmlUnknown struct {
	Index int `xml:"index,attr"`
}
