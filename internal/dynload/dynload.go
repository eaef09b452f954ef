// Package dynload loads the FMU's platform shared library and resolves its
// exported symbols (spec §4.B, §4.C "Platform considerations"; §6 "FMU
// directory layout"). It is the one place in fmigo that talks to the OS
// loader directly; everything above this package works with a resolved
// Library handle and symbol addresses only.
//
// This mirrors the shape of the pack's go-kuzu bindings (a pure Go surface
// in front of a cgo-opened native shared library) without depending on
// go-kuzu itself, since no component in this spec needs a graph database —
// see DESIGN.md for the full accounting of that dropped dependency.
package dynload

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Library is a handle to an opened shared library plus its resolved
// symbol table. The zero value is not usable; construct with Open.
type Library struct {
	path   string
	handle uintptr
	impl   libraryImpl
}

// libraryImpl is implemented per-OS (see dynload_unix.go, dynload_windows.go).
type libraryImpl interface {
	open(path string) (uintptr, error)
	symbol(handle uintptr, name string) (uintptr, error)
	close(handle uintptr) error
}

// Open loads the shared library at path. On Windows, the directory
// containing path is prepended to the DLL search path first, because FMU
// vendors routinely ship dependent DLLs alongside the main one (spec
// §4.C). On POSIX, the library is opened with lazy binding.
func Open(path string) (*Library, error) {
	impl := newImpl()
	if runtime.GOOS == "windows" {
		if err := addDLLDirectory(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("prepending DLL search path: %w", err)
		}
	}
	h, err := impl.open(path)
	if err != nil {
		return nil, fmt.Errorf("opening shared library %s: %w", path, err)
	}
	return &Library{path: path, handle: h, impl: impl}, nil
}

// Symbol resolves name to an address within the library. A missing symbol
// is reported through the returned error; callers that expect a symbol to
// be optional for the loaded FMU variant should not treat that as fatal.
func (l *Library) Symbol(name string) (uintptr, error) {
	addr, err := l.impl.symbol(l.handle, name)
	if err != nil {
		return 0, fmt.Errorf("resolving symbol %s in %s: %w", name, l.path, err)
	}
	return addr, nil
}

// Path returns the filesystem path this library was opened from.
func (l *Library) Path() string { return l.path }

// Close releases the OS handle. Safe to call once; the Bare FMU that owns
// a Library guarantees this is only called after the last FMU Instance
// sharing it has been destroyed (spec §3 "Single-binding invariant").
func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := l.impl.close(l.handle)
	l.handle = 0
	return err
}

// PlatformDir returns the binaries/<platform> directory name FMI expects
// for the running OS/arch (spec §6 "FMU directory layout").
func PlatformDir() string {
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "win64"
		}
		return "win32"
	case "darwin":
		return "darwin64"
	default:
		if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
			return "linux64"
		}
		return "linux32"
	}
}

// PlatformExt returns the shared library extension for the running OS.
func PlatformExt() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}
