//go:build windows

package dynload

import (
	"golang.org/x/sys/windows"
)

type windowsImpl struct{}

func newImpl() libraryImpl { return windowsImpl{} }

func (windowsImpl) open(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

func (windowsImpl) symbol(handle uintptr, name string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(handle), name)
	if err != nil {
		return 0, err
	}
	return addr, nil
}

func (windowsImpl) close(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}

// addDLLDirectory prepends dir to the process DLL search path so that a
// dependent DLL shipped alongside the FMU's main binary resolves before
// system-wide search locations (spec §4.C).
func addDLLDirectory(dir string) error {
	return windows.SetDllDirectory(dir)
}
