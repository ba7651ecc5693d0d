package platform

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/mmr-tortoise/devloop/internal/model"
)

// windowsPlatform covers Windows hosts.
type windowsPlatform struct{}

// Kind reports the windows platform family.
func (p *windowsPlatform) Kind() model.PlatformKind {
	return model.PlatformWindows
}

// FindInterpreter prefers the py launcher, which is installed alongside
// python.org distributions and resolves the newest interpreter.
func (p *windowsPlatform) FindInterpreter() (string, error) {
	for _, name := range []string{"py", "python", "python3"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Python interpreter found on PATH (tried: py, python, python3)")
}

// EnvBinDir returns the Scripts directory of a virtual environment.
func (p *windowsPlatform) EnvBinDir(envPath string) string {
	return filepath.Join(envPath, "Scripts")
}

// EnvExecutable returns the path of a named executable inside a virtual
// environment, including the .exe suffix.
func (p *windowsPlatform) EnvExecutable(envPath, name string) string {
	return filepath.Join(envPath, "Scripts", name+".exe")
}
