package callback

/*
#include <stdarg.h>
#include <stdio.h>
#include <stdlib.h>

extern void fmigoLoggerBridge(void *key, char *instanceName, int status, char *category, char *message);

// fmigo_v1_logger and fmigo_v2_logger are the C-ABI functions actually
// handed to the FMU as its fmiCallbackLogger / fmi2CallbackLogger function
// pointer. FMI declares this callback C-variadic (printf-style format plus
// arguments), which Go cannot receive directly, so the variadic expansion
// happens here via vsnprintf and only the fully-formatted string crosses
// into Go (spec §9, "variadic logger callback routed through vsnprintf
// before reaching Go").
static void fmigo_v1_logger(void *comp, const char *instanceName, int fmiStatus, const char *category, const char *message, ...) {
    char buf[4096];
    va_list args;
    va_start(args, message);
    vsnprintf(buf, sizeof(buf), message, args);
    va_end(args);
    fmigoLoggerBridge(comp, (char *)instanceName, fmiStatus, (char *)category, buf);
}

static void fmigo_v2_logger(void *componentEnvironment, const char *instanceName, int fmiStatus, const char *category, const char *message, ...) {
    char buf[4096];
    va_list args;
    va_start(args, message);
    vsnprintf(buf, sizeof(buf), message, args);
    va_end(args);
    fmigoLoggerBridge(componentEnvironment, (char *)instanceName, fmiStatus, (char *)category, buf);
}

// fmigo_v2_step_finished is the default (no-op) fmi2StepFinished callback:
// fmigo never calls an FMU asynchronously, so the FMU's hand-back is
// simply discarded (spec §4.H, "stepFinished is never invoked by an
// fmigo-driven FMU since fmigo calls doStep synchronously").
static void fmigo_v2_step_finished(void *componentEnvironment, int fmiStatus) {
    (void)componentEnvironment;
    (void)fmiStatus;
}

static void *fmigo_v1_logger_ptr(void)        { return (void *)fmigo_v1_logger; }
static void *fmigo_v2_logger_ptr(void)         { return (void *)fmigo_v2_logger; }
static void *fmigo_v2_step_finished_ptr(void)  { return (void *)fmigo_v2_step_finished; }
static void *fmigo_allocate_memory_ptr(void)   { return (void *)calloc; }
static void *fmigo_free_memory_ptr(void)       { return (void *)free; }
*/
import "C"

import (
	"sync"
	"unsafe"

	"runtime/cgo"
)

var registry sync.Map // uintptr -> *Shim

// RegisterV1 keys a shim by the FMI 1.0 component pointer, which is only
// known once instantiateModel has returned it. Callers must register
// before any other FMI call can trigger a log message.
func RegisterV1(componentPtr uintptr, shim *Shim) {
	registry.Store(componentPtr, shim)
}

// RegisterV2 pins shim behind a runtime/cgo.Handle and returns the opaque
// uintptr to pass as the FMI 2.0 componentEnvironment argument. FMI 2.0
// chooses this pointer before instantiation, unlike FMI 1.0's component
// handle, so a Handle rather than a post-hoc component pointer is used.
func RegisterV2(shim *Shim) uintptr {
	h := cgo.NewHandle(shim)
	return uintptr(h)
}

// Unregister releases a V1 registration.
func Unregister(key uintptr) {
	registry.Delete(key)
}

// UnregisterV2 releases a cgo.Handle obtained from RegisterV2.
func UnregisterV2(key uintptr) {
	cgo.Handle(key).Delete()
	registry.Delete(key)
}

//export fmigoLoggerBridge
func fmigoLoggerBridge(key unsafe.Pointer, instanceName *C.char, fmiStatus C.int, category *C.char, message *C.char) {
	k := uintptr(key)

	if v, ok := registry.Load(k); ok {
		v.(*Shim).handle(C.GoString(instanceName), int(fmiStatus), C.GoString(category), C.GoString(message))
		return
	}
	shim := shimFromHandle(k)
	if shim == nil {
		return
	}
	shim.handle(C.GoString(instanceName), int(fmiStatus), C.GoString(category), C.GoString(message))
}

// shimFromHandle recovers the panic cgo.Handle raises for a value that is
// not a live handle, since a V1 component pointer and a V2 handle share the
// same uintptr key space and fmigoLoggerBridge cannot tell which kind it
// was handed without trying.
func shimFromHandle(k uintptr) (shim *Shim) {
	defer func() {
		if recover() != nil {
			shim = nil
		}
	}()
	s, ok := cgo.Handle(k).Value().(*Shim)
	if !ok {
		return nil
	}
	return s
}

// V1LoggerFunctionPointer returns the address of the C trampoline used as
// fmiCallbackLogger in an FMI 1.0 callback-functions struct.
func V1LoggerFunctionPointer() uintptr { return uintptr(C.fmigo_v1_logger_ptr()) }

// V2LoggerFunctionPointer returns the address of the C trampoline used as
// the logger field of an FMI 2.0 fmi2CallbackFunctions struct.
func V2LoggerFunctionPointer() uintptr { return uintptr(C.fmigo_v2_logger_ptr()) }

// V2StepFinishedFunctionPointer returns the address of the no-op
// stepFinished callback.
func V2StepFinishedFunctionPointer() uintptr { return uintptr(C.fmigo_v2_step_finished_ptr()) }

// AllocateMemoryFunctionPointer returns the address of the host's
// allocator, bound directly to libc calloc since its signature
// (size_t nobj, size_t size) already matches fmiCallbackAllocateMemory
// (spec §4.H, "default allocator/deallocator map to the host's
// general-purpose allocator").
func AllocateMemoryFunctionPointer() uintptr { return uintptr(C.fmigo_allocate_memory_ptr()) }

// FreeMemoryFunctionPointer returns the address of libc free, matching
// fmiCallbackFreeMemory's (void *) signature directly.
func FreeMemoryFunctionPointer() uintptr { return uintptr(C.fmigo_free_memory_ptr()) }
