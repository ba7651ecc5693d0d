package pyenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmr-tortoise/devloop/internal/model"
	"github.com/mmr-tortoise/devloop/internal/platform"
	"github.com/mmr-tortoise/devloop/internal/project"
)

// commandRunner executes an external command, capturing its output. The
// provisioner routes every child process through this seam so tests can
// observe exactly which install commands run without needing a Python
// toolchain on the test host.
type commandRunner func(ctx context.Context, name string, args ...string) (model.CommandResult, error)

// runCommand is the default commandRunner. stdout and stderr are captured
// separately: provisioning failures must surface pip's own stderr.
func runCommand(ctx context.Context, name string, args ...string) (model.CommandResult, error) {
	// #nosec G204 -- name is an interpreter path resolved via LookPath and
	// args are built from validated manifest fields.
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := model.CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, fmt.Errorf("%s %s failed: %w", filepath.Base(name), strings.Join(args, " "), err)
	}
	return result, nil
}

// Provisioner creates and populates isolated Python environments.
type Provisioner struct {
	platform platform.Platform
	run      commandRunner
}

// NewProvisioner creates a Provisioner for the given platform.
func NewProvisioner(p platform.Platform) *Provisioner {
	return &Provisioner{platform: p, run: runCommand}
}

// IsProvisioned reports whether envPath holds a complete environment:
// the completion marker parses and the environment's own interpreter
// exists. Directories left behind by interrupted runs fail this check
// because the marker is only written after the final install step.
func (p *Provisioner) IsProvisioned(envPath string) bool {
	if _, err := ReadMarker(envPath); err != nil {
		return false
	}
	if _, err := os.Stat(p.platform.EnvExecutable(envPath, "python")); err != nil {
		return false
	}
	return true
}

// Ensure makes sure env.EnvPath holds a complete environment with the
// manifest's dependencies installed, and returns the environment with
// Exists set. Idempotent: a complete environment is returned untouched,
// with zero child processes spawned. Rebuilding one requires removing it
// first.
func (p *Provisioner) Ensure(ctx context.Context, env model.ProjectEnvironment, manifest *project.Manifest) (model.ProjectEnvironment, error) {
	if p.IsProvisioned(env.EnvPath) {
		env.Exists = true
		return env, nil
	}

	// Everything needed must exist before the first side effect.
	requirementsPath := filepath.Join(env.RootPath, manifest.Requirements)
	if _, err := os.Stat(requirementsPath); err != nil {
		return env, model.WrapWorkflowError(model.KindConfiguration,
			fmt.Sprintf("dependency manifest not found: %s", requirementsPath), err)
	}

	interpreter, err := p.platform.FindInterpreter()
	if err != nil {
		return env, model.WrapWorkflowError(model.KindConfiguration,
			"no Python interpreter available to create the environment", err)
	}

	// Step 1: create the virtual environment. --clear wipes a partial
	// directory left by an interrupted run; a complete one never reaches
	// this point.
	venvArgs := []string{"-m", "venv"}
	if _, statErr := os.Stat(env.EnvPath); statErr == nil {
		venvArgs = append(venvArgs, "--clear")
	}
	venvArgs = append(venvArgs, env.EnvPath)
	if result, runErr := p.run(ctx, interpreter, venvArgs...); runErr != nil {
		return env, provisioningError("failed to create virtual environment", result, runErr)
	}

	envPython := p.platform.EnvExecutable(env.EnvPath, "python")

	// Step 2: install the dependency manifest.
	if result, runErr := p.run(ctx, envPython, "-m", "pip", "install", "-r", requirementsPath); runErr != nil {
		return env, provisioningError(fmt.Sprintf("failed to install %s", manifest.Requirements), result, runErr)
	}

	// Step 3: install extra packages beyond the manifest.
	if len(manifest.Packages) > 0 {
		args := append([]string{"-m", "pip", "install"}, manifest.Packages...)
		if result, runErr := p.run(ctx, envPython, args...); runErr != nil {
			return env, provisioningError("failed to install extra packages", result, runErr)
		}
	}

	// Step 4: record the interpreter version for status output. Older
	// interpreters print the version to stderr.
	version := ""
	if result, runErr := p.run(ctx, envPython, "--version"); runErr == nil {
		version = strings.TrimSpace(result.Stdout)
		if version == "" {
			version = strings.TrimSpace(result.Stderr)
		}
	}

	hash, err := HashFile(requirementsPath)
	if err != nil {
		return env, model.WrapWorkflowError(model.KindProvisioning,
			"failed to hash dependency manifest", err)
	}

	// Step 5: write the completion marker. This runs last: its presence
	// certifies every step above succeeded.
	marker := &Marker{
		SchemaVersion:      markerSchemaVersion,
		ProvisionedAt:      time.Now().UTC(),
		Interpreter:        interpreter,
		PythonVersion:      version,
		Requirements:       manifest.Requirements,
		RequirementsSHA256: hash,
		ExtraPackages:      manifest.Packages,
	}
	if err := WriteMarker(env.EnvPath, marker); err != nil {
		return env, model.WrapWorkflowError(model.KindProvisioning, "failed to finalize environment", err)
	}

	env.Exists = true
	return env, nil
}

// provisioningError wraps an install failure, folding the child's stderr
// into the message so the operator sees pip's own diagnostics.
func provisioningError(message string, result model.CommandResult, err error) *model.WorkflowError {
	if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
		message = fmt.Sprintf("%s: %s", message, stderr)
	}
	return model.WrapWorkflowError(model.KindProvisioning, message, err).WithResult(result)
}
