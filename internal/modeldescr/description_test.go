package modeldescr

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const v1MEDescription = `<?xml version="1.0" encoding="UTF-8"?>
<fmiModelDescription
	fmiVersion="1.0"
	modelName="BouncingBall"
	guid="{8c4e810f-3df3-4a00-8276-176fa3c9f003}"
	modelIdentifier="bouncingBall"
	numberOfContinuousStates="2"
	numberOfEventIndicators="1">
	<ModelVariables>
		<ScalarVariable name="h" valueReference="0" causality="output">
			<Real start="1.0"/>
		</ScalarVariable>
		<ScalarVariable name="v" valueReference="1" causality="output">
			<Real start="0.0"/>
		</ScalarVariable>
		<ScalarVariable name="e" valueReference="2" causality="parameter">
			<Real start="0.7"/>
		</ScalarVariable>
	</ModelVariables>
</fmiModelDescription>`

const v2MEDescription = `<?xml version="1.0" encoding="UTF-8"?>
<fmiModelDescription
	fmiVersion="2.0"
	modelName="Vehicle"
	guid="{12345678-ABCD-4444-9999-0123456789AB}"
	numberOfEventIndicators="2">
	<ModelExchange modelIdentifier="vehicle" providesDirectionalDerivative="true"/>
	<DefaultExperiment startTime="0.0" stopTime="10.0" tolerance="1e-6"/>
	<ModelVariables>
		<ScalarVariable name="x" valueReference="0" causality="output" variability="continuous">
			<Real start="0.0"/>
		</ScalarVariable>
		<ScalarVariable name="der(x)" valueReference="1" causality="local" variability="continuous">
			<Real derivative="1"/>
		</ScalarVariable>
		<ScalarVariable name="count" valueReference="2" causality="parameter">
			<Integer start="3"/>
		</ScalarVariable>
		<ScalarVariable name="x" valueReference="3" causality="local">
			<Boolean start="true"/>
		</ScalarVariable>
	</ModelVariables>
</fmiModelDescription>`

const v2CSOnlyDescription = `<?xml version="1.0" encoding="UTF-8"?>
<fmiModelDescription fmiVersion="2.0" modelName="Controller" guid="cs-only-guid">
	<CoSimulation modelIdentifier="controller"/>
	<ModelVariables/>
</fmiModelDescription>`

func TestParseV1ModelExchange(t *testing.T) {
	md, err := Parse([]byte(v1MEDescription), nil)
	require.NoError(t, err)
	require.True(t, md.IsValid())

	assert.Equal(t, "1.0", md.FMIVersion())
	assert.Equal(t, ME10, md.FMUType())
	assert.True(t, md.FMUType().IsModelExchange())
	assert.False(t, md.FMUType().IsCoSimulation())
	assert.Equal(t, "{8c4e810f-3df3-4a00-8276-176fa3c9f003}", md.GUID())
	assert.Equal(t, "bouncingBall", md.ModelIdentifierME())
	assert.Equal(t, 2, md.NumberOfContinuousStates())
	assert.Equal(t, 1, md.NumberOfEventIndicators())
	assert.False(t, md.ProvidesJacobian())

	v, ok := md.LookupByName("h")
	require.True(t, ok)
	assert.Equal(t, TypeReal, v.Type)
	assert.Equal(t, 1.0, v.StartReal)
	assert.True(t, v.HasStart)

	_, ok = md.LookupByName("nonexistent")
	assert.False(t, ok)
}

func TestParseV1NumberOfContinuousStatesFromXMLAttribute(t *testing.T) {
	// FMI 1.0 declares numberOfContinuousStates directly as a root XML
	// attribute (v2 derives the count from derivative annotations), and
	// numberOfEventIndicators is read from its attribute in both versions.
	md, err := Parse([]byte(v1MEDescription), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, md.NumberOfContinuousStates())
	assert.Equal(t, 1, md.NumberOfEventIndicators())
}

func TestParseV2ModelExchangeWithDerivatives(t *testing.T) {
	md, err := Parse([]byte(v2MEDescription), nil)
	require.NoError(t, err)
	require.True(t, md.IsValid())

	assert.Equal(t, "2.0", md.FMIVersion())
	assert.Equal(t, ME20, md.FMUType())
	assert.True(t, md.ProvidesJacobian())
	assert.Equal(t, 2, md.NumberOfEventIndicators())
	assert.Equal(t, 1, md.NumberOfContinuousStates())

	stateRefs, derivRefs := md.GetStatesAndDerivativesReferences()
	require.Len(t, stateRefs, 1)
	require.Len(t, derivRefs, 1)
	assert.Equal(t, uint32(0), stateRefs[0])
	assert.Equal(t, uint32(1), derivRefs[0])

	exp := md.GetDefaultExperiment()
	require.True(t, md.HasDefaultExperiment())
	assert.Equal(t, 0.0, exp.StartTime)
	assert.Equal(t, 10.0, exp.StopTime)
	assert.Equal(t, 1e-6, exp.Tolerance)
	assert.True(t, math.IsNaN(exp.StepSize))

	counts := md.NumberOfVariablesByType()
	assert.Equal(t, 2, counts.Real)
	assert.Equal(t, 1, counts.Integer)
	assert.Equal(t, 1, counts.Boolean)
	assert.Equal(t, 0, counts.String)

	vars := md.GetModelVariables()
	assert.Len(t, vars, 4)
}

func TestParseV2DuplicateNamesWarn(t *testing.T) {
	var warnings []string
	log := &recordingLogger{warn: &warnings}
	_, err := Parse([]byte(v2MEDescription), log)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "duplicate variable name")
}

func TestParseV2CoSimulationOnly(t *testing.T) {
	md, err := Parse([]byte(v2CSOnlyDescription), nil)
	require.NoError(t, err)
	assert.Equal(t, CS20, md.FMUType())
	assert.False(t, md.FMUType().IsModelExchange())
	assert.True(t, md.FMUType().IsCoSimulation())
	assert.Equal(t, "controller", md.ModelIdentifierCS())
}

func TestParseRejectsMissingRootElement(t *testing.T) {
	_, err := Parse([]byte(`<notAModelDescription/>`), nil)
	require.Error(t, err)
	var invalid *ErrInvalidDescription
	assert.ErrorAs(t, err, &invalid)
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	_, err := Parse([]byte(`<fmiModelDescription fmiVersion="3.0" guid="x"/>`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported fmiVersion")
}

func TestParseRejectsMissingInterfaceDeclaration(t *testing.T) {
	_, err := Parse([]byte(`<fmiModelDescription fmiVersion="2.0" guid="x"/>`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither ModelExchange nor CoSimulation")
}

func TestParseFileReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modelDescription.xml")
	require.NoError(t, os.WriteFile(path, []byte(v1MEDescription), 0o644))

	md, err := ParseFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ME10, md.FMUType())
}

func TestParseFileMissingFile(t *testing.T) {
	_, err := ParseFile("/nonexistent/modelDescription.xml", nil)
	assert.Error(t, err)
}

func TestFileURLToPath(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "/abs/path/modelDescription.xml", want: "/abs/path/modelDescription.xml"},
		{in: "file:///abs/path/modelDescription.xml", want: "/abs/path/modelDescription.xml"},
		{in: "http://example.com/x.xml", wantErr: true},
	}
	for _, c := range cases {
		got, err := FileURLToPath(c.in)
		if c.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestHasModelIdentifier(t *testing.T) {
	md, err := Parse([]byte(v1MEDescription), nil)
	require.NoError(t, err)
	assert.True(t, md.HasModelIdentifier("bouncingBall"))
	assert.False(t, md.HasModelIdentifier("other"))
}

type recordingLogger struct {
	warn *[]string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(msg string, _ ...interface{}) {
	*l.warn = append(*l.warn, msg)
}
func (l *recordingLogger) Error(string, ...interface{}) {}
func (l *recordingLogger) Fatal(string, ...interface{}) {}
