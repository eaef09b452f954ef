package barefmu

import (
	"fmt"
	"sync/atomic"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/internal/dynload"
	"github.com/fmigo/fmigo/internal/modeldescr"
	"github.com/fmigo/fmigo/internal/status"
)

// BareFMU is a loaded shared library, its parsed Model Description, and a
// function-pointer table resolved against the declared variant (spec
// §4.B). It owns no simulation state; every FMU Instance built on top of
// one holds a reference, and the shared library handle is only closed once
// the last reference drops (spec §3, "Single-binding invariant").
type BareFMU struct {
	modelID     string
	description *modeldescr.ModelDescription
	library     *dynload.Library
	functions   *FunctionTable
	resourceDir string

	refs int32
}

// Load opens libraryPath and resolves its function table against
// description. modelID is the model identifier used both to key the Model
// Manager's registry and, for FMI 1.0, to prefix every symbol name.
// resourceDir is the absolute path (not a file:// URL) to the FMU's
// extracted resources/ directory, handed to instantiate as the v2
// resourceLocation argument.
func Load(modelID, libraryPath, resourceDir string, description *modeldescr.ModelDescription, log arch.Logger) (*BareFMU, status.Status, error) {
	lib, err := dynload.Open(libraryPath)
	if err != nil {
		return nil, status.SharedLibraryLoadFailed, fmt.Errorf("opening %s: %w", libraryPath, err)
	}

	ft, missing := resolve(lib, description, log)
	if len(missing) > 0 {
		lib.Close()
		return nil, status.SharedLibraryLoadFailed, fmt.Errorf("bare fmu %s: missing required symbols: %v", modelID, missing)
	}

	return &BareFMU{
		modelID:     modelID,
		description: description,
		library:     lib,
		functions:   ft,
		resourceDir: resourceDir,
		refs:        0,
	}, status.OK, nil
}

// ModelID returns the model identifier this Bare FMU was loaded under.
func (b *BareFMU) ModelID() string { return b.modelID }

// Description returns the parsed Model Description. Immutable after
// construction, so it is safe to read concurrently from any number of FMU
// Instances without synchronisation (spec §4.E).
func (b *BareFMU) Description() *modeldescr.ModelDescription { return b.description }

// Functions returns the resolved function-pointer table.
func (b *BareFMU) Functions() *FunctionTable { return b.functions }

// ResourceDir returns the absolute path to this FMU's resources directory.
func (b *BareFMU) ResourceDir() string { return b.resourceDir }

// RefCount returns the current number of live FMU Instances referencing
// this Bare FMU.
func (b *BareFMU) RefCount() int32 { return atomic.LoadInt32(&b.refs) }

// AddRef increments the reference count; called by the Model Manager when
// handing out a reference for a new FMU Instance.
func (b *BareFMU) AddRef() int32 { return atomic.AddInt32(&b.refs, 1) }

// Release decrements the reference count and returns the resulting value.
// It does not close the shared library itself — the Model Manager decides
// when a zero-refcount Bare FMU is actually torn down, since an explicit
// unload and a refcount drop to zero are two independent triggers (spec
// §4.C).
func (b *BareFMU) Release() int32 { return atomic.AddInt32(&b.refs, -1) }

// Close closes the underlying shared library handle. The Model Manager
// guarantees this is only called once RefCount() is zero.
func (b *BareFMU) Close() error {
	return b.library.Close()
}
