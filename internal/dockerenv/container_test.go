package dockerenv

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/devloop/internal/model"
)

// testRunSpec returns a populated RunSpec used across the argument
// construction tests.
func testRunSpec() RunSpec {
	return RunSpec{
		Project:      "dashboard",
		RootPath:     "/home/dev/dashboard",
		Image:        "python:3.12-slim",
		Requirements: "requirements.txt",
		Packages:     []string{"watchdog"},
		Config: model.LaunchConfiguration{
			EntryPoint: "main.py",
			AutoReload: true,
			Headless:   false,
			Port:       8501,
		},
		Labels: BuildLabels("dashboard", "/home/dev/dashboard", 8501,
			time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)),
	}
}

// TestBuildRunArgsForeground verifies the attached invocation: the
// container removes itself on exit and all mounts, ports, and labels are
// present.
func TestBuildRunArgsForeground(t *testing.T) {
	spec := testRunSpec()

	args := BuildRunArgs(spec)

	assert.Equal(t, "run", args[0])
	assert.Contains(t, args, "--rm", "attached containers must clean up after exit")
	assert.NotContains(t, args, "-d")

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "--name devloop-dashboard")
	assert.Contains(t, joined, "-v /home/dev/dashboard:/app")
	assert.Contains(t, joined, "-w /app")
	assert.Contains(t, joined, "-p 8501:8501")
	assert.Contains(t, joined, "--label "+LabelManagedBy+"="+ManagedByValue)
	assert.Contains(t, joined, "--label "+LabelProject+"=dashboard")

	// The image reference must come before the bootstrap command.
	imageIdx := indexOf(args, "python:3.12-slim")
	shIdx := indexOf(args, "sh")
	require.GreaterOrEqual(t, imageIdx, 0)
	require.GreaterOrEqual(t, shIdx, 0)
	assert.Less(t, imageIdx, shIdx)
}

// TestBuildRunArgsDetached verifies the background invocation: detached
// containers keep their stopped state so they can be inspected and
// removed later.
func TestBuildRunArgsDetached(t *testing.T) {
	spec := testRunSpec()
	spec.Detach = true

	args := BuildRunArgs(spec)

	assert.Contains(t, args, "-d")
	assert.NotContains(t, args, "--rm",
		"detached containers must survive exit for status and stop")
}

// TestBuildRunArgsLabelOrderDeterministic verifies that label flags come
// out in the same order on every call.
func TestBuildRunArgsLabelOrderDeterministic(t *testing.T) {
	spec := testRunSpec()

	first := BuildRunArgs(spec)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildRunArgs(spec))
	}
}

// TestBootstrapCommand verifies the in-container startup command:
// dependency install followed by an exec of the server bound to all
// interfaces.
func TestBootstrapCommand(t *testing.T) {
	spec := testRunSpec()

	cmd := bootstrapCommand(spec)

	installPart, runPart, found := strings.Cut(cmd, " && ")
	require.True(t, found, "bootstrap must chain install and run with &&")

	assert.Equal(t, "pip install --quiet -r requirements.txt watchdog streamlit", installPart)
	assert.True(t, strings.HasPrefix(runPart, "exec streamlit run main.py"),
		"the server must replace the shell so it receives stop signals")
	assert.Contains(t, runPart, "--server.address=0.0.0.0")
	assert.Contains(t, runPart, "--server.port=8501")
	assert.Contains(t, runPart, "--server.runOnSave=true")
	assert.Contains(t, runPart, "--server.headless=true")
}

// TestBootstrapCommandForcesHeadless verifies that the headless flag is
// pinned on regardless of the launch configuration.
func TestBootstrapCommandForcesHeadless(t *testing.T) {
	spec := testRunSpec()
	spec.Config.Headless = false

	assert.Contains(t, bootstrapCommand(spec), "--server.headless=true")

	spec.Config.Headless = true
	assert.Contains(t, bootstrapCommand(spec), "--server.headless=true")
}

// TestBootstrapCommandNoExtraPackages verifies the install list with an
// empty package set.
func TestBootstrapCommandNoExtraPackages(t *testing.T) {
	spec := testRunSpec()
	spec.Packages = nil

	cmd := bootstrapCommand(spec)

	assert.Contains(t, cmd, "pip install --quiet -r requirements.txt streamlit &&")
	assert.NotContains(t, cmd, "watchdog")
}

// indexOf returns the position of value in args, or -1.
func indexOf(args []string, value string) int {
	for i, a := range args {
		if a == value {
			return i
		}
	}
	return -1
}
