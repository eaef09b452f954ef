// Package callback implements the FMI standard's callback indirection: the
// logger, allocator, deallocator and (FMI 2.0 only) step-finished callback
// and component-environment pointer every FMU instantiation call requires
// (spec §4.H, §6 "Callback-functions struct"). The FMU stores whatever
// function pointers it is given here and may invoke them at any point
// during any later call, so the bridge between "a C function pointer the
// FMU calls" and "a Go arch.Logger the host configured" has to survive
// indefinitely, not just for the duration of one call — see bridge_cgo.go
// for how the registry keeps that mapping alive.
package callback

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fmigo/fmigo/internal/status"
	"github.com/fmigo/fmigo/pkg/events"

	"github.com/fmigo/fmigo/internal/arch"
)

// Shim is one FMU instance's callback configuration: where log messages
// go, whether they are filtered to non-OK statuses only, and the optional
// process-wide debug buffer they are also copied into.
type Shim struct {
	mu            sync.Mutex
	instanceName  string
	correlationID string
	logger        arch.Logger
	verbose       bool
	buffer        *DebugBuffer
}

// NewVerboseShim builds a shim whose default logger formats every message
// it receives, regardless of status (spec §4.H "verbose default logger").
// A correlation ID is generated here (rather than left to the driver) so
// every log line a shim ever emits, including ones from the very first FMI
// callback during instantiate, carries the same ID the driver later
// exposes as Instance.CorrelationID().
func NewVerboseShim(instanceName string, logger arch.Logger, buffer *DebugBuffer) *Shim {
	return &Shim{instanceName: instanceName, correlationID: uuid.NewString(), logger: logger, verbose: true, buffer: buffer}
}

// NewSuccinctShim builds a shim whose default logger only emits non-OK
// status messages (spec §4.H "succinct default logger").
func NewSuccinctShim(instanceName string, logger arch.Logger, buffer *DebugBuffer) *Shim {
	return &Shim{instanceName: instanceName, correlationID: uuid.NewString(), logger: logger, verbose: false, buffer: buffer}
}

// CorrelationID returns the run-scoped identifier generated for this shim,
// independent of the FMI instance name (which a host may reuse across
// runs).
func (s *Shim) CorrelationID() string { return s.correlationID }

// SetLogger replaces the target arch.Logger, validating it is non-nil, as
// required by the driver's set_callbacks operation (spec §4.H).
func (s *Shim) SetLogger(logger arch.Logger) error {
	if logger == nil {
		return status.Discard
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
	return nil
}

// Warn logs msg through the shim's configured logger, if any. Used by the
// driver for conditions that are not FMI callback messages but still
// belong on the same log target (e.g. an unknown variable name).
func (s *Shim) Warn(msg string, fields ...interface{}) {
	s.mu.Lock()
	logger := s.logger
	s.mu.Unlock()
	if logger != nil {
		logger.Warn(msg, fields...)
	}
}

// handle is invoked by the cgo bridge (bridge_cgo.go) once the FMU's
// variadic logger call has already been safely reduced to a fixed-size,
// formatted string.
func (s *Shim) handle(instanceName string, statusCode int, category string, message string) {
	s.mu.Lock()
	logger := s.logger
	verbose := s.verbose
	buffer := s.buffer
	correlationID := s.correlationID
	s.mu.Unlock()

	fmiStatus := status.Status(statusCode)
	if buffer != nil {
		buffer.Append(events.LogEntry{
			Instance: instanceName,
			Category: category,
			Message:  message,
		})
	}
	if logger == nil {
		return
	}
	if !verbose && fmiStatus == status.OK {
		return
	}
	fields := []interface{}{"instance", instanceName, "correlationId", correlationID, "category", category, "fmiStatus", fmiStatus.String()}
	switch {
	case fmiStatus == status.Fatal || fmiStatus == status.Error:
		logger.Error(message, fields...)
	case fmiStatus == status.Warning || fmiStatus == status.Discard:
		logger.Warn(message, fields...)
	default:
		logger.Info(message, fields...)
	}
}

// DebugBuffer is the process-wide optional log buffer described in spec
// §4.H: off by default, and when enabled every logger invocation (for
// every instance, across the whole process) appends one line.
type DebugBuffer struct {
	mu      sync.Mutex
	enabled bool
	lines   []events.LogEntry
	limit   int
}

// NewDebugBuffer creates a disabled buffer capped at limit entries (0 means
// unbounded).
func NewDebugBuffer(limit int) *DebugBuffer {
	return &DebugBuffer{limit: limit}
}

func (b *DebugBuffer) Enable()  { b.mu.Lock(); b.enabled = true; b.mu.Unlock() }
func (b *DebugBuffer) Disable() { b.mu.Lock(); b.enabled = false; b.mu.Unlock() }

func (b *DebugBuffer) Append(e events.LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.lines = append(b.lines, e)
	if b.limit > 0 && len(b.lines) > b.limit {
		b.lines = b.lines[len(b.lines)-b.limit:]
	}
}

// Lines returns a snapshot of the buffered entries.
func (b *DebugBuffer) Lines() []events.LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.LogEntry, len(b.lines))
	copy(out, b.lines)
	return out
}

func (b *DebugBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}
