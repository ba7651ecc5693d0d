package platform

import (
	"runtime"

	"github.com/mmr-tortoise/devloop/internal/model"
)

// Platform describes the OS-specific details of locating a Python
// interpreter and navigating a virtual environment's layout.
type Platform interface {
	// Kind reports which platform family this implementation targets.
	Kind() model.PlatformKind

	// FindInterpreter locates a host Python interpreter on PATH suitable
	// for creating virtual environments. The returned string is the
	// command name or absolute path to invoke.
	FindInterpreter() (string, error)

	// EnvBinDir returns the directory inside a virtual environment that
	// holds its executables (bin on unix, Scripts on windows).
	EnvBinDir(envPath string) string

	// EnvExecutable returns the path of a named executable inside a
	// virtual environment, with the platform's suffix applied.
	EnvExecutable(envPath, name string) string
}

// Detect returns the Platform implementation for the running OS.
func Detect() Platform {
	if runtime.GOOS == "windows" {
		return &windowsPlatform{}
	}
	return &unixPlatform{}
}

// ForKind returns the Platform implementation for an explicit kind.
// Callers that already resolved the kind (or tests pinning behavior to
// one OS family) use this instead of Detect.
func ForKind(kind model.PlatformKind) Platform {
	if kind == model.PlatformWindows {
		return &windowsPlatform{}
	}
	return &unixPlatform{}
}
