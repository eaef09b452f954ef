// Package modelmanager implements the process-wide Model Manager (spec
// §4.C): it loads, caches, reference-counts and unloads Bare FMUs keyed by
// model identifier, split into three registries (FMI 1.0 Model Exchange,
// FMI 1.0 Co-Simulation, FMI 2.0) so Get-bare-FMU-by-variant can return a
// typed handle without a runtime cast.
package modelmanager

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/internal/barefmu"
	"github.com/fmigo/fmigo/internal/dynload"
	"github.com/fmigo/fmigo/internal/modeldescr"
	"github.com/fmigo/fmigo/internal/status"
)

// Manager is the registry. The zero value is not usable; use Get() for the
// process singleton or New() for an isolated instance (tests use the
// latter so cases do not interfere with each other).
type Manager struct {
	mu  sync.RWMutex
	log arch.Logger

	v1ME map[string]*barefmu.BareFMU
	v1CS map[string]*barefmu.BareFMU
	v2   map[string]*barefmu.BareFMU
}

// New constructs an empty Manager logging through log. A nil log panics on
// first use; callers that want silent operation should pass a no-op
// implementation of arch.Logger instead.
func New(log arch.Logger) *Manager {
	return &Manager{
		log:  log,
		v1ME: make(map[string]*barefmu.BareFMU),
		v1CS: make(map[string]*barefmu.BareFMU),
		v2:   make(map[string]*barefmu.BareFMU),
	}
}

var (
	singleton     *Manager
	singletonOnce sync.Once
)

// Get returns the process-wide Manager singleton, constructing it on first
// use with a discarding logger. Hosts that want their own logger should
// call SetLogger once at startup before any Load call.
func Get() *Manager {
	singletonOnce.Do(func() {
		singleton = New(discardLogger{})
	})
	return singleton
}

// SetLogger replaces the singleton's logger. Not safe to call concurrently
// with Load/Unload.
func (m *Manager) SetLogger(log arch.Logger) { m.log = log }

type discardLogger struct{}

func (discardLogger) Debug(string, ...interface{}) {}
func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}
func (discardLogger) Fatal(string, ...interface{}) {}

func (m *Manager) registryFor(t modeldescr.FMUType) map[string]*barefmu.BareFMU {
	switch t {
	case modeldescr.ME10:
		return m.v1ME
	case modeldescr.CS10:
		return m.v1CS
	default:
		return m.v2
	}
}

// LoadByID loads the FMU described at fmuDirURL under the explicit model
// identifier id (spec §4.C "Load by explicit ID"). fmuDirURL is the
// extracted FMU directory's file:// URL, matching modeldescr.ParseURL's
// expectations.
func (m *Manager) LoadByID(id, fmuDirURL string, loggingOn bool) (modeldescr.FMUType, status.Status, error) {
	return m.load(id, fmuDirURL, loggingOn)
}

// LoadByDiscovery loads the FMU at fmuDirURL without a caller-supplied
// identifier: the first model identifier the description declares is used
// (spec §4.C "Load by discovery").
func (m *Manager) LoadByDiscovery(fmuDirURL string, loggingOn bool) (id string, fmuType modeldescr.FMUType, st status.Status, err error) {
	dir, err := modeldescr.FileURLToPath(fmuDirURL)
	if err != nil {
		return "", modeldescr.Invalid, status.DescriptionNotFound, err
	}
	md, err := modeldescr.ParseFile(filepath.Join(dir, "modelDescription.xml"), m.log)
	if err != nil {
		return "", modeldescr.Invalid, status.DescriptionInvalid, err
	}
	ids := md.ModelIdentifiers()
	if len(ids) == 0 {
		return "", modeldescr.Invalid, status.DescriptionInvalid, fmt.Errorf("model description declares no identifiers")
	}
	fmuType, st, err = m.load(ids[0], fmuDirURL, loggingOn)
	return ids[0], fmuType, st, err
}

func (m *Manager) load(id, fmuDirURL string, loggingOn bool) (modeldescr.FMUType, status.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.findLocked(id); existing != nil {
		return existing.Description().FMUType(), status.Duplicate, nil
	}

	dir, err := modeldescr.FileURLToPath(fmuDirURL)
	if err != nil {
		return modeldescr.Invalid, status.DescriptionNotFound, err
	}

	md, err := modeldescr.ParseFile(filepath.Join(dir, "modelDescription.xml"), m.log)
	if err != nil {
		return modeldescr.Invalid, status.DescriptionInvalid, err
	}
	if !md.HasModelIdentifier(id) {
		return modeldescr.Invalid, status.IdentifierMismatch, fmt.Errorf("model identifier %q not declared by description", id)
	}

	libPath, err := m.libraryPath(dir, md, id)
	if err != nil {
		return modeldescr.Invalid, status.SharedLibraryNotFound, err
	}

	resourceDir := filepath.Join(dir, "resources")

	bfmu, st, err := barefmu.Load(id, libPath, resourceDir, md, m.log)
	if err != nil {
		return modeldescr.Invalid, st, err
	}

	m.registryFor(md.FMUType())[id] = bfmu
	return md.FMUType(), status.OK, nil
}

// libraryPath builds binaries/<platform>/<id><ext> for the variant being
// loaded. It does not check that the file exists, never returns an error,
// and tries no other identifier.
func (m *Manager) libraryPath(dir string, md *modeldescr.ModelDescription, id string) (string, error) {
	platform := dynload.PlatformDir()
	ext := dynload.PlatformExt()
	candidate := filepath.Join(dir, "binaries", platform, id+ext)
	return candidate, nil
}

// GetTypeOfLoaded returns the FMU variant registered under id.
func (m *Manager) GetTypeOfLoaded(id string) (modeldescr.FMUType, status.Status) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b := m.findLocked(id); b != nil {
		return b.Description().FMUType(), status.OK
	}
	return modeldescr.Invalid, status.NotFound
}

func (m *Manager) findLocked(id string) *barefmu.BareFMU {
	if b, ok := m.v1ME[id]; ok {
		return b
	}
	if b, ok := m.v1CS[id]; ok {
		return b
	}
	if b, ok := m.v2[id]; ok {
		return b
	}
	return nil
}

// GetBareFMUv1ME returns a reference-counted handle to a loaded FMI 1.0
// Model Exchange Bare FMU, or nil if id is not an FMI 1.0 ME registration.
func (m *Manager) GetBareFMUv1ME(id string) *barefmu.BareFMU { return m.getAndRef(m.v1ME, id) }

// GetBareFMUv1CS returns a reference-counted handle to a loaded FMI 1.0
// Co-Simulation Bare FMU, or nil.
func (m *Manager) GetBareFMUv1CS(id string) *barefmu.BareFMU { return m.getAndRef(m.v1CS, id) }

// GetBareFMUv2 returns a reference-counted handle to a loaded FMI 2.0 Bare
// FMU (ME, CS, or both), or nil.
func (m *Manager) GetBareFMUv2(id string) *barefmu.BareFMU { return m.getAndRef(m.v2, id) }

func (m *Manager) getAndRef(reg map[string]*barefmu.BareFMU, id string) *barefmu.BareFMU {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := reg[id]
	if !ok {
		return nil
	}
	b.AddRef()
	return b
}

// UnloadByID unloads id if its Bare FMU is unreferenced outside the
// registry (spec §4.C "Unload by ID").
func (m *Manager) UnloadByID(id string) status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unloadLocked(id)
}

func (m *Manager) unloadLocked(id string) status.Status {
	for _, reg := range []map[string]*barefmu.BareFMU{m.v1ME, m.v1CS, m.v2} {
		b, ok := reg[id]
		if !ok {
			continue
		}
		if b.RefCount() > 0 {
			return status.InUse
		}
		if err := b.Close(); err != nil {
			m.log.Warn("model manager: error closing shared library", "id", id, "err", err.Error())
		}
		delete(reg, id)
		return status.OK
	}
	return status.NotFound
}

// UnloadAll unloads every registered Bare FMU, stopping at the first
// in-use entry encountered (spec §4.C "Unload all").
func (m *Manager) UnloadAll() status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, reg := range []map[string]*barefmu.BareFMU{m.v1ME, m.v1CS, m.v2} {
		for id := range reg {
			if st := m.unloadLocked(id); st != status.OK {
				return st
			}
		}
	}
	return status.OK
}

// LoadedIDs returns every currently registered model identifier, for the
// CLI's list command and the debug HTTP API.
func (m *Manager) LoadedIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.v1ME)+len(m.v1CS)+len(m.v2))
	for id := range m.v1ME {
		ids = append(ids, id)
	}
	for id := range m.v1CS {
		ids = append(ids, id)
	}
	for id := range m.v2 {
		ids = append(ids, id)
	}
	return ids
}
