package platform

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/mmr-tortoise/devloop/internal/model"
)

// unixPlatform covers Linux, macOS, and the BSDs.
type unixPlatform struct{}

// Kind reports the unix platform family.
func (p *unixPlatform) Kind() model.PlatformKind {
	return model.PlatformUnix
}

// FindInterpreter prefers python3: on most unix systems a bare "python"
// is either absent or an old interpreter.
func (p *unixPlatform) FindInterpreter() (string, error) {
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Python interpreter found on PATH (tried: python3, python)")
}

// EnvBinDir returns the bin directory of a virtual environment.
func (p *unixPlatform) EnvBinDir(envPath string) string {
	return filepath.Join(envPath, "bin")
}

// EnvExecutable returns the path of a named executable inside a virtual
// environment. Unix executables carry no suffix.
func (p *unixPlatform) EnvExecutable(envPath, name string) string {
	return filepath.Join(envPath, "bin", name)
}
