//go:build linux || darwin

package dynload

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"unsafe"
)

type unixImpl struct{}

func newImpl() libraryImpl { return unixImpl{} }

func (unixImpl) open(path string) (uintptr, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	// RTLD_LAZY (1): lazy binding, per spec §4.C.
	// RTLD_LOCAL (0): do not export symbols to later-loaded libraries.
	h := C.dlopen(cpath, C.int(1))
	if h == nil {
		return 0, dlerror()
	}
	return uintptr(unsafe.Pointer(h)), nil
}

func (unixImpl) symbol(handle uintptr, name string) (uintptr, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	C.dlerror() // clear any pending error
	sym := C.dlsym(unsafe.Pointer(handle), cname)
	if sym == nil {
		if err := dlerror(); err != nil {
			return 0, err
		}
	}
	return uintptr(sym), nil
}

func (unixImpl) close(handle uintptr) error {
	if C.dlclose(unsafe.Pointer(handle)) != 0 {
		return dlerror()
	}
	return nil
}

func dlerror() error {
	msg := C.dlerror()
	if msg == nil {
		return fmt.Errorf("dlopen/dlsym failed with no further detail")
	}
	return fmt.Errorf("%s", C.GoString(msg))
}

// addDLLDirectory is a no-op on POSIX; only Windows needs its search-path
// workaround.
func addDLLDirectory(dir string) error { return nil }
