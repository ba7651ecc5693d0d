// Package cli - run.go implements the "devloop run" command.
//
// run is the primary operation. It resolves the project, makes sure an
// isolated environment exists (local virtualenv or Docker container),
// then hands the terminal to the application server until it exits. The
// server's exit code becomes devloop's own.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/devloop/internal/dockerenv"
	"github.com/mmr-tortoise/devloop/internal/model"
	"github.com/mmr-tortoise/devloop/internal/port"
	"github.com/mmr-tortoise/devloop/internal/project"
	"github.com/mmr-tortoise/devloop/internal/pyenv"
)

// portSearchWindow bounds how far above the preferred port the scanner
// looks when the preferred one is taken.
const portSearchWindow = 50

// runFlags holds the flag values for the run command.
type runFlags struct {
	noReload    bool // --no-reload: disable reload-on-save
	headless    bool // --headless: never open a browser
	port        int  // --port: override the manifest port
	noProvision bool // --no-provision: require an existing environment
	container   bool // --container: run in Docker instead of a virtualenv
	detach      bool // --detach: with --container, run in the background
}

// NewRunCommand creates the "run" cobra command.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Provision the environment and launch the application",
		Long: `Provision the project's Python environment if needed, then launch its
Streamlit entry point and block until it exits.

A complete environment is reused as-is; provisioning only runs when the
environment is missing or was left half-built. With --container the
application runs in a Docker container instead of a local virtualenv.

Examples:
  devloop run
  devloop run --port 9000 --headless
  devloop run --no-provision
  devloop run --container --detach`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.noReload, "no-reload", false, "Disable automatic reload on file changes")
	cmd.Flags().BoolVar(&flags.headless, "headless", false, "Do not open a browser on startup")
	cmd.Flags().IntVar(&flags.port, "port", 0, "Port to serve on (overrides the manifest)")
	cmd.Flags().BoolVar(&flags.noProvision, "no-provision", false, "Fail instead of provisioning a missing environment")
	cmd.Flags().BoolVar(&flags.container, "container", false, "Run inside a Docker container")
	cmd.Flags().BoolVar(&flags.detach, "detach", false, "With --container, run in the background")

	return cmd
}

// runRun orchestrates the run command.
func runRun(ctx context.Context, flags *runFlags) error {
	if flags.detach && !flags.container {
		return model.NewWorkflowError(model.KindConfiguration, "--detach requires --container")
	}

	// Step 1: resolve the project root and manifest.
	env, manifest, plat, err := resolveEnvironment()
	if err != nil {
		return err
	}

	cfg := buildLaunchConfig(manifest, flags)

	// Step 2: secure a listen port before any provisioning work. When the
	// preferred port is taken, the next free one in the window is used.
	picked, err := port.NewScanner().Pick(cfg.Port, portSearchWindow)
	if err != nil {
		return model.WrapWorkflowError(model.KindConfiguration,
			fmt.Sprintf("no free port found near %d", cfg.Port), err)
	}
	if picked != cfg.Port {
		VerboseLog("port %d is taken, using %d", cfg.Port, picked)
	}
	cfg.Port = picked

	if flags.container {
		return runInContainer(ctx, env, manifest, cfg, flags.detach)
	}

	// Step 3: make sure the environment exists. --no-provision turns a
	// missing environment into an error instead of an install.
	provisioner := pyenv.NewProvisioner(plat)
	if flags.noProvision {
		if !provisioner.IsProvisioned(env.EnvPath) {
			return model.NewWorkflowError(model.KindConfiguration,
				fmt.Sprintf("environment at %s is not provisioned (provisioning disabled by --no-provision)", env.EnvPath))
		}
		env.Exists = true
	} else {
		env, err = provisioner.Ensure(ctx, env, manifest)
		if err != nil {
			return err
		}
	}

	// Step 4: launch and block. The child owns the terminal from here.
	if !IsJSONOutput() {
		fmt.Printf("Starting %s on http://localhost:%d\n", manifest.Name, cfg.Port)
	}
	_, err = pyenv.NewLauncher(plat).Launch(env, cfg)
	return err
}

// buildLaunchConfig merges the manifest's launch settings with command
// line overrides. Flags win over the manifest.
func buildLaunchConfig(manifest *project.Manifest, flags *runFlags) model.LaunchConfiguration {
	cfg := model.LaunchConfiguration{
		EntryPoint: manifest.EntryPoint,
		AutoReload: manifest.AutoReload,
		Headless:   manifest.Headless,
		Port:       manifest.Port,
	}
	if flags.noReload {
		cfg.AutoReload = false
	}
	if flags.headless {
		cfg.Headless = true
	}
	if flags.port != 0 {
		cfg.Port = flags.port
	}
	return cfg
}

// runInContainer launches the application in Docker instead of a local
// virtualenv. The image is pulled on first use; dependencies install at
// container startup.
func runInContainer(ctx context.Context, env model.ProjectEnvironment, manifest *project.Manifest, cfg model.LaunchConfiguration, detach bool) error {
	cli, err := dockerenv.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}

	if err := dockerenv.EnsureImage(ctx, cli, manifest.ContainerImage); err != nil {
		return err
	}

	spec := dockerenv.RunSpec{
		Project:      manifest.Name,
		RootPath:     env.RootPath,
		Image:        manifest.ContainerImage,
		Requirements: manifest.Requirements,
		Packages:     manifest.Packages,
		Config:       cfg,
		Labels:       dockerenv.BuildLabels(manifest.Name, env.RootPath, cfg.Port, time.Now()),
		Detach:       detach,
	}

	if detach {
		containerID, err := dockerenv.RunDetached(ctx, spec)
		if err != nil {
			return err
		}
		printDetachResult(manifest.Name, containerID, cfg.Port)
		return nil
	}

	if !IsJSONOutput() {
		fmt.Printf("Starting %s in a container on http://localhost:%d\n", manifest.Name, cfg.Port)
	}
	return dockerenv.RunForeground(spec)
}

// printDetachResult reports a background container start in text or JSON.
func printDetachResult(projectName, containerID string, listenPort int) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"project":   projectName,
			"container": shortID(containerID),
			"url":       fmt.Sprintf("http://localhost:%d", listenPort),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Started %s in container %s\n", projectName, shortID(containerID))
	fmt.Printf("  URL:  http://localhost:%d\n", listenPort)
	fmt.Printf("  Stop: devloop stop\n")
}

// shortID truncates a container ID to the 12 characters docker itself
// displays.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
