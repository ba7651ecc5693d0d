package dockerenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"

	"github.com/mmr-tortoise/devloop/internal/model"
)

// RunSpec describes one application container launch.
type RunSpec struct {
	// Project is the manifest name, used for the container name and labels.
	Project string

	// RootPath is the absolute project root on the host, bind-mounted into
	// the container.
	RootPath string

	// Image is the container image reference to run.
	Image string

	// Requirements is the dependency file path relative to the project root.
	Requirements string

	// Packages lists extra packages installed alongside the requirements.
	Packages []string

	// Config carries the resolved launch configuration.
	Config model.LaunchConfiguration

	// Labels is the metadata label set, normally from BuildLabels.
	Labels map[string]string

	// Detach runs the container in the background instead of attached to
	// the terminal.
	Detach bool
}

// BuildRunArgs translates a RunSpec into docker run arguments. Label keys
// are emitted in sorted order so the argument list is deterministic.
func BuildRunArgs(spec RunSpec) []string {
	args := []string{"run"}

	if spec.Detach {
		// Detached containers survive exit so status and stop can still
		// find them; attached ones clean up after themselves.
		args = append(args, "-d")
	} else {
		args = append(args, "--rm")
	}

	args = append(args, "--name", ContainerName(spec.Project))

	keys := make([]string, 0, len(spec.Labels))
	for key := range spec.Labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--label", key+"="+spec.Labels[key])
	}

	args = append(args,
		"-v", spec.RootPath+":/app",
		"-w", "/app",
		"-p", fmt.Sprintf("%d:%d", spec.Config.Port, spec.Config.Port),
	)

	args = append(args, spec.Image)
	args = append(args, "sh", "-c", bootstrapCommand(spec))
	return args
}

// bootstrapCommand builds the shell command run inside the container:
// install dependencies, then exec the application server so it becomes
// PID 1 and receives stop signals directly.
func bootstrapCommand(spec RunSpec) string {
	install := []string{"pip", "install", "--quiet", "-r", spec.Requirements}
	install = append(install, spec.Packages...)
	install = append(install, "streamlit")

	// The server must bind all interfaces to be reachable through the
	// published port. Headless is forced: no browser exists in a container.
	run := fmt.Sprintf("exec streamlit run %s --server.address=0.0.0.0 --server.port=%d --server.runOnSave=%t --server.headless=true",
		spec.Config.EntryPoint, spec.Config.Port, spec.Config.AutoReload)

	return strings.Join(install, " ") + " && " + run
}

// EnsureImage checks that the image exists locally and pulls it when
// missing. The pull shells out to the docker CLI so its progress output
// streams to the operator's terminal.
func EnsureImage(ctx context.Context, cli *Client, ref string) error {
	filterArgs := filters.NewArgs(filters.Arg("reference", ref))
	images, err := cli.Inner().ImageList(ctx, image.ListOptions{Filters: filterArgs})
	if err != nil {
		return model.WrapWorkflowError(model.KindProvisioning, "failed to query local images", err)
	}
	if len(images) > 0 {
		return nil
	}

	fmt.Fprintf(os.Stderr, "Pulling image %s...\n", ref)
	cmd := exec.CommandContext(ctx, "docker", "pull", ref)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return model.WrapWorkflowError(model.KindProvisioning,
			fmt.Sprintf("failed to pull image %q", ref), err)
	}
	return nil
}

// RunForeground runs the application container attached to the terminal
// and blocks until it exits. Interrupt and termination signals are
// forwarded to the docker client, which relays them into the container;
// a non-zero container exit code travels in the returned error's result.
func RunForeground(spec RunSpec) error {
	args := BuildRunArgs(spec)

	// #nosec G204 -- arguments are built from validated manifest fields.
	cmd := exec.Command("docker", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return model.WrapWorkflowError(model.KindLaunch, "failed to start docker run", err)
	}

	code := waitForwardingSignals(cmd)
	if code != 0 {
		return model.NewWorkflowError(model.KindLaunch,
			fmt.Sprintf("container exited with code %d", code)).
			WithResult(model.CommandResult{ExitCode: code})
	}
	return nil
}

// RunDetached starts the application container in the background and
// returns the new container ID reported by docker run.
func RunDetached(ctx context.Context, spec RunSpec) (string, error) {
	args := BuildRunArgs(spec)

	// #nosec G204 -- arguments are built from validated manifest fields.
	cmd := exec.CommandContext(ctx, "docker", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", model.WrapWorkflowError(model.KindLaunch,
			fmt.Sprintf("docker run failed: %s", strings.TrimSpace(string(output))), err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ListManaged queries the daemon for all containers carrying this tool's
// managed-by label, including stopped ones. Containers whose metadata
// labels fail to parse are skipped rather than failing the listing.
func ListManaged(ctx context.Context, cli *Client) ([]AppContainer, error) {
	// Filtering happens daemon-side, so unrelated containers never cross
	// the wire.
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)

	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapWorkflowError(model.KindProvisioning, "failed to list containers", err)
	}

	result := make([]AppContainer, 0, len(containers))
	for _, c := range containers {
		app, err := ParseLabels(c.Labels)
		if err != nil {
			continue
		}
		app.ID = c.ID
		if len(c.Names) > 0 {
			// The API reports names with a leading "/".
			app.Name = strings.TrimPrefix(c.Names[0], "/")
		}
		app.Status = c.State
		result = append(result, app)
	}
	return result, nil
}

// FindByProject returns the managed container for a project, or nil when
// none exists.
func FindByProject(ctx context.Context, cli *Client, project string) (*AppContainer, error) {
	containers, err := ListManaged(ctx, cli)
	if err != nil {
		return nil, err
	}
	for i := range containers {
		if containers[i].Project == project {
			return &containers[i], nil
		}
	}
	return nil, nil
}

// Stop gracefully stops a container. The daemon escalates to SIGKILL
// after its default timeout.
func Stop(ctx context.Context, cli *Client, containerID string) error {
	if err := cli.Inner().ContainerStop(ctx, containerID, container.StopOptions{}); err != nil {
		return model.WrapWorkflowError(model.KindProvisioning,
			fmt.Sprintf("failed to stop container %q", containerID), err)
	}
	return nil
}

// Remove deletes a container. force removes it even while running.
func Remove(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.Inner().ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapWorkflowError(model.KindProvisioning,
			fmt.Sprintf("failed to remove container %q", containerID), err)
	}
	return nil
}

// waitForwardingSignals blocks until cmd exits, forwarding interrupt and
// termination signals to it instead of letting them kill this process. A
// signal death maps to the conventional 128+signal value.
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
