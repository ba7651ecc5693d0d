package pyenv

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mmr-tortoise/devloop/internal/model"
	"github.com/mmr-tortoise/devloop/internal/platform"
)

// entryCommand is the executable launched from inside the environment.
// The application server ships its own CLI; devloop drives that instead
// of invoking the interpreter directly.
const entryCommand = "streamlit"

// Launcher spawns the application entry point inside a provisioned
// environment and blocks until it exits.
type Launcher struct {
	platform platform.Platform
}

// NewLauncher creates a Launcher for the given platform.
func NewLauncher(p platform.Platform) *Launcher {
	return &Launcher{platform: p}
}

// BuildArgs translates a LaunchConfiguration into the server's native
// flag syntax.
func BuildArgs(cfg model.LaunchConfiguration) []string {
	return []string{
		"run", cfg.EntryPoint,
		fmt.Sprintf("--server.runOnSave=%t", cfg.AutoReload),
		fmt.Sprintf("--server.headless=%t", cfg.Headless),
		fmt.Sprintf("--server.port=%d", cfg.Port),
	}
}

// BuildChildEnv constructs the environment variable set for the child
// process. base (normally os.Environ()) is copied, the environment's bin
// directory is prefixed onto PATH, VIRTUAL_ENV is set, and PYTHONHOME is
// dropped so the isolated interpreter wins. The slice passed in is never
// modified: the variables are scoped to the child alone.
func BuildChildEnv(base []string, envPath string, plat platform.Platform) []string {
	binDir := plat.EnvBinDir(envPath)

	out := make([]string, 0, len(base)+2)
	pathSet := false
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			out = append(out, kv)
			continue
		}
		// Windows spells it "Path", so match case-insensitively.
		switch {
		case strings.EqualFold(key, "PATH"):
			out = append(out, key+"="+binDir+string(os.PathListSeparator)+value)
			pathSet = true
		case strings.EqualFold(key, "PYTHONHOME"):
			// PYTHONHOME would redirect the interpreter away from the
			// virtual environment.
		case strings.EqualFold(key, "VIRTUAL_ENV"):
			// Replaced with this run's environment below.
		default:
			out = append(out, kv)
		}
	}
	if !pathSet {
		out = append(out, "PATH="+binDir)
	}
	out = append(out, "VIRTUAL_ENV="+envPath)
	return out
}

// Launch spawns the application server and blocks until it exits. The
// child inherits the terminal; interrupt and termination signals are
// forwarded to it rather than killing devloop, and its exit code is
// propagated verbatim through the returned error's result.
func (l *Launcher) Launch(env model.ProjectEnvironment, cfg model.LaunchConfiguration) (model.CommandResult, error) {
	executable := l.platform.EnvExecutable(env.EnvPath, entryCommand)
	if _, err := os.Stat(executable); err != nil {
		return model.CommandResult{}, model.WrapWorkflowError(model.KindLaunch,
			fmt.Sprintf("%s not found in environment (expected at %s)", entryCommand, executable), err)
	}

	entryPath := filepath.Join(env.RootPath, cfg.EntryPoint)
	if _, err := os.Stat(entryPath); err != nil {
		return model.CommandResult{}, model.WrapWorkflowError(model.KindLaunch,
			fmt.Sprintf("entry point not found: %s", entryPath), err)
	}

	// #nosec G204 -- executable lives inside the provisioned environment
	// and args come from the validated launch configuration.
	cmd := exec.Command(executable, BuildArgs(cfg)...)
	cmd.Dir = env.RootPath
	cmd.Env = BuildChildEnv(os.Environ(), env.EnvPath, l.platform)

	// The child owns the terminal for its lifetime.
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return model.CommandResult{}, model.WrapWorkflowError(model.KindLaunch,
			fmt.Sprintf("failed to spawn %s", executable), err)
	}

	code := waitForwardingSignals(cmd)
	result := model.CommandResult{ExitCode: code}
	if code != 0 {
		return result, model.NewWorkflowError(model.KindLaunch,
			fmt.Sprintf("application exited with code %d", code)).WithResult(result)
	}
	return result, nil
}

// waitForwardingSignals blocks until cmd exits, forwarding interrupt and
// termination signals to the child instead of letting them kill this
// process. The child performs its own shutdown and reports its exit code;
// a signal death maps to the conventional 128+signal value.
func waitForwardingSignals(cmd *exec.Cmd) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				_ = cmd.Process.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)

	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}
