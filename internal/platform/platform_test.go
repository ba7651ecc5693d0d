package platform

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/devloop/internal/model"
)

// TestDetect verifies the detected platform matches the OS the test
// runs on.
func TestDetect(t *testing.T) {
	p := Detect()
	require.NotNil(t, p)

	if runtime.GOOS == "windows" {
		assert.Equal(t, model.PlatformWindows, p.Kind())
	} else {
		assert.Equal(t, model.PlatformUnix, p.Kind())
	}
}

// TestForKind verifies explicit kind selection returns the matching
// implementation.
func TestForKind(t *testing.T) {
	tests := []struct {
		kind     model.PlatformKind
		expected model.PlatformKind
	}{
		{model.PlatformUnix, model.PlatformUnix},
		{model.PlatformWindows, model.PlatformWindows},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, ForKind(tt.kind).Kind())
		})
	}
}

// TestUnixEnvLayout verifies the unix virtual environment layout:
// executables live under bin/ with no suffix.
func TestUnixEnvLayout(t *testing.T) {
	p := ForKind(model.PlatformUnix)
	env := filepath.Join("home", "dev", "app", "venv")

	assert.Equal(t, filepath.Join(env, "bin"), p.EnvBinDir(env))
	assert.Equal(t, filepath.Join(env, "bin", "python"), p.EnvExecutable(env, "python"))
	assert.Equal(t, filepath.Join(env, "bin", "streamlit"), p.EnvExecutable(env, "streamlit"))
}

// TestWindowsEnvLayout verifies the windows virtual environment layout:
// executables live under Scripts\ and carry an .exe suffix.
func TestWindowsEnvLayout(t *testing.T) {
	p := ForKind(model.PlatformWindows)
	env := filepath.Join("C:", "dev", "app", "venv")

	assert.Equal(t, filepath.Join(env, "Scripts"), p.EnvBinDir(env))
	assert.Equal(t, filepath.Join(env, "Scripts", "python.exe"), p.EnvExecutable(env, "python"))
	assert.Equal(t, filepath.Join(env, "Scripts", "streamlit.exe"), p.EnvExecutable(env, "streamlit"))
}
