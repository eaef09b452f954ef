package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringCoversAllValues(t *testing.T) {
	cases := map[Status]string{
		OK:                      "OK",
		Warning:                 "Warning",
		Discard:                 "Discard",
		Error:                   "Error",
		Fatal:                   "Fatal",
		Pending:                 "Pending",
		Duplicate:               "Duplicate",
		DescriptionNotFound:     "DescriptionNotFound",
		DescriptionInvalid:      "DescriptionInvalid",
		IdentifierMismatch:      "IdentifierMismatch",
		SharedLibraryNotFound:   "SharedLibraryNotFound",
		SharedLibraryLoadFailed: "SharedLibraryLoadFailed",
		NotFound:                "NotFound",
		InUse:                   "InUse",
	}
	for s, want := range cases {
		assert.Equal(t, want, s.String())
	}
	assert.Equal(t, "Unknown", Status(999).String())
}

func TestStatusSatisfiesError(t *testing.T) {
	var err error = Fatal
	assert.EqualError(t, err, "Fatal")
	assert.True(t, errors.Is(err, Fatal))
}

func TestMapFMI2Pending(t *testing.T) {
	assert.Equal(t, Discard, MapFMI2Pending(Pending))
	assert.Equal(t, OK, MapFMI2Pending(OK))
	assert.Equal(t, Fatal, MapFMI2Pending(Fatal))
}

func TestWorseThanOrdering(t *testing.T) {
	assert.True(t, Fatal.WorseThan(Error))
	assert.True(t, Error.WorseThan(Discard))
	assert.True(t, Discard.WorseThan(Warning))
	assert.True(t, Warning.WorseThan(OK))
	assert.False(t, OK.WorseThan(Warning))
	assert.False(t, OK.WorseThan(OK))
}

func TestWorseThanNonComparableStatusesAreFalse(t *testing.T) {
	assert.False(t, Duplicate.WorseThan(OK))
	assert.False(t, OK.WorseThan(Duplicate))
}

func TestWorst(t *testing.T) {
	assert.Equal(t, Fatal, Worst(OK, Fatal))
	assert.Equal(t, Fatal, Worst(Fatal, OK))
	assert.Equal(t, Warning, Worst(OK, Warning))
	assert.Equal(t, OK, Worst(OK, OK))
	// Pending ranks alongside Discard.
	assert.Equal(t, Pending, Worst(Warning, Pending))
}
