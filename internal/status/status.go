// Package status defines the public status codes fmigo's operations return,
// per spec §6/§7. A single enum serves both FMI's own call-status codes and
// the Model Manager's load/unload outcomes, since both are small closed
// sets consumed the same way: checked once, logged on the bad path, never
// thrown as a panic across a package boundary.
package status

// Status is returned by nearly every exported fmigo operation. Its zero
// value is OK.
type Status int

const (
	OK Status = iota
	Warning
	Discard
	Error
	Fatal

	// Pending is FMI 2.0-only and is mapped to Discard at the driver
	// boundary per spec §6; it is kept as a distinct value only for the
	// raw Bare FMU call sites that need to recognise it before mapping.
	Pending

	// The following are Model Manager-specific load/unload outcomes
	// (spec §4.C). They are kept in the same enum so that CLI and log
	// code has one status type to format, but they are never returned
	// from an FMU call.
	Duplicate
	DescriptionNotFound
	DescriptionInvalid
	IdentifierMismatch
	SharedLibraryNotFound
	SharedLibraryLoadFailed
	NotFound
	InUse
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "Warning"
	case Discard:
		return "Discard"
	case Error:
		return "Error"
	case Fatal:
		return "Fatal"
	case Pending:
		return "Pending"
	case Duplicate:
		return "Duplicate"
	case DescriptionNotFound:
		return "DescriptionNotFound"
	case DescriptionInvalid:
		return "DescriptionInvalid"
	case IdentifierMismatch:
		return "IdentifierMismatch"
	case SharedLibraryNotFound:
		return "SharedLibraryNotFound"
	case SharedLibraryLoadFailed:
		return "SharedLibraryLoadFailed"
	case NotFound:
		return "NotFound"
	case InUse:
		return "InUse"
	default:
		return "Unknown"
	}
}

// Error satisfies the error interface so a Status can be returned (wrapped
// or bare) from functions that also need to participate in errors.Is/As
// chains with a wrapped OS-level cause.
func (s Status) Error() string { return s.String() }

// MapFMI2Pending collapses FMI 2.0's Pending status to Discard, the
// semantics the driver boundary exposes uniformly for both FMI versions
// (spec §6: "Pending ... mapped to Discard at the driver boundary").
func MapFMI2Pending(s Status) Status {
	if s == Pending {
		return Discard
	}
	return s
}

// WorseThan reports whether s represents a worse outcome than other, using
// the ordering OK < Warning < Discard < Error < Fatal. Non-FMI-call status
// values (Duplicate, NotFound, ...) are not comparable this way and always
// report false to avoid misleading comparisons.
func (s Status) WorseThan(other Status) bool {
	rank := func(v Status) (int, bool) {
		switch v {
		case OK:
			return 0, true
		case Warning:
			return 1, true
		case Discard, Pending:
			return 2, true
		case Error:
			return 3, true
		case Fatal:
			return 4, true
		default:
			return 0, false
		}
	}
	sr, sok := rank(s)
	or, ook := rank(other)
	if !sok || !ook {
		return false
	}
	return sr > or
}

// Worst returns whichever of a, b ranks worse under WorseThan, defaulting
// to a when neither is comparable. Used to fold the worst status observed
// across a call sequence (spec §7: "a host that checks only the final
// status of integrate sees the worst status encountered during the call").
func Worst(a, b Status) Status {
	if b.WorseThan(a) {
		return b
	}
	return a
}
