package modelmanager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fmigo/fmigo/internal/modeldescr"
	"github.com/fmigo/fmigo/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const meDescriptionXML = `<?xml version="1.0" encoding="UTF-8"?>
<fmiModelDescription fmiVersion="2.0" modelName="Test" guid="g">
	<ModelExchange modelIdentifier="testModel"/>
	<ModelVariables/>
</fmiModelDescription>`

func writeFMUDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "modelDescription.xml"), []byte(meDescriptionXML), 0o644))
	return dir
}

func TestGetTypeOfLoadedNotFound(t *testing.T) {
	m := New(discardLogger{})
	_, st := m.GetTypeOfLoaded("missing")
	assert.Equal(t, status.NotFound, st)
}

func TestUnloadByIDNotFound(t *testing.T) {
	m := New(discardLogger{})
	assert.Equal(t, status.NotFound, m.UnloadByID("missing"))
}

func TestUnloadAllOnEmptyManagerIsOK(t *testing.T) {
	m := New(discardLogger{})
	assert.Equal(t, status.OK, m.UnloadAll())
}

func TestLoadedIDsEmptyByDefault(t *testing.T) {
	m := New(discardLogger{})
	assert.Empty(t, m.LoadedIDs())
}

func TestLoadByDiscoveryRejectsBadURL(t *testing.T) {
	m := New(discardLogger{})
	_, _, st, err := m.LoadByDiscovery("http://example.com/not-a-path", false)
	assert.Error(t, err)
	assert.Equal(t, status.DescriptionNotFound, st)
}

func TestLoadByIDRejectsMissingDescription(t *testing.T) {
	m := New(discardLogger{})
	dir := t.TempDir() // no modelDescription.xml
	_, st, err := m.LoadByID("testModel", "file://"+dir, false)
	assert.Error(t, err)
	assert.Equal(t, status.DescriptionInvalid, st)
}

func TestLoadByIDRejectsIdentifierMismatch(t *testing.T) {
	m := New(discardLogger{})
	dir := writeFMUDir(t)
	_, st, err := m.LoadByID("wrongIdentifier", "file://"+dir, false)
	assert.Error(t, err)
	assert.Equal(t, status.IdentifierMismatch, st)
}

func TestLoadByIDFailsWhenSharedLibraryMissing(t *testing.T) {
	m := New(discardLogger{})
	dir := writeFMUDir(t)
	_, st, err := m.LoadByID("testModel", "file://"+dir, false)
	assert.Error(t, err)
	assert.Equal(t, status.SharedLibraryLoadFailed, st)
}

func TestLoadByDiscoveryUsesFirstDeclaredIdentifier(t *testing.T) {
	m := New(discardLogger{})
	dir := writeFMUDir(t)
	id, _, st, err := m.LoadByDiscovery("file://"+dir, false)
	// Still fails at the shared-library stage (no real binary present),
	// but must have resolved the identifier from the description first.
	assert.Error(t, err)
	assert.Equal(t, "testModel", id)
	assert.Equal(t, status.SharedLibraryLoadFailed, st)
}

func TestGetBareFMUReturnsNilWhenNotLoaded(t *testing.T) {
	m := New(discardLogger{})
	assert.Nil(t, m.GetBareFMUv2("missing"))
	assert.Nil(t, m.GetBareFMUv1ME("missing"))
	assert.Nil(t, m.GetBareFMUv1CS("missing"))
}

func TestRegistryForDispatchesByType(t *testing.T) {
	m := New(discardLogger{})
	got := m.registryFor(modeldescr.ME10)
	got["probe"] = nil
	assert.Contains(t, m.v1ME, "probe", "registryFor(ME10) should return the v1ME map itself, not a copy")
}
