package dynload

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformDirMatchesRunningHost(t *testing.T) {
	dir := PlatformDir()
	switch runtime.GOOS {
	case "linux":
		assert.Contains(t, []string{"linux64", "linux32"}, dir)
	case "darwin":
		assert.Equal(t, "darwin64", dir)
	case "windows":
		assert.Contains(t, []string{"win64", "win32"}, dir)
	}
}

func TestPlatformExtMatchesRunningHost(t *testing.T) {
	ext := PlatformExt()
	switch runtime.GOOS {
	case "linux":
		assert.Equal(t, ".so", ext)
	case "darwin":
		assert.Equal(t, ".dylib", ext)
	case "windows":
		assert.Equal(t, ".dll", ext)
	}
}

func TestOpenNonexistentLibraryFails(t *testing.T) {
	lib, err := Open("/nonexistent/path/to/library" + PlatformExt())
	assert.Error(t, err)
	assert.Nil(t, lib)
}

func TestCloseOnZeroHandleIsNoop(t *testing.T) {
	l := &Library{}
	assert.NoError(t, l.Close())
}
