// Package cli - status.go implements the "devloop status" command.
//
// status inspects the project without changing anything: root, manifest
// settings, environment provisioning state, and any managed container.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/devloop/internal/dockerenv"
	"github.com/mmr-tortoise/devloop/internal/model"
	"github.com/mmr-tortoise/devloop/internal/project"
	"github.com/mmr-tortoise/devloop/internal/prompt"
	"github.com/mmr-tortoise/devloop/internal/pyenv"
)

// envStatus describes the provisioning state of the local environment.
type envStatus struct {
	Path            string `json:"path"`
	Provisioned     bool   `json:"provisioned"`
	ProvisionedAt   string `json:"provisionedAt,omitempty"`
	Python          string `json:"python,omitempty"`
	ManifestChanged bool   `json:"manifestChanged"`
}

// projectStatus is the full status report.
type projectStatus struct {
	Project     string                  `json:"project"`
	Root        string                  `json:"root"`
	Platform    string                  `json:"platform"`
	EntryPoint  string                  `json:"entryPoint"`
	Port        int                     `json:"port"`
	Environment envStatus               `json:"environment"`
	Container   *dockerenv.AppContainer `json:"container,omitempty"`
}

// NewStatusCommand creates the "status" cobra command.
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the project's environment and container state",
		Long: `Show the resolved project root, the manifest settings, whether the
local environment is provisioned, and any managed container.

The dependency manifest is compared against the hash recorded at
provisioning time; a mismatch is reported but nothing is reinstalled.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}

	return cmd
}

// runStatus gathers and prints the status report.
func runStatus(ctx context.Context) error {
	env, manifest, plat, err := resolveEnvironment()
	if err != nil {
		return err
	}

	status := projectStatus{
		Project:     manifest.Name,
		Root:        env.RootPath,
		Platform:    env.Platform.String(),
		EntryPoint:  manifest.EntryPoint,
		Port:        manifest.Port,
		Environment: buildEnvStatus(env, manifest, pyenv.NewProvisioner(plat)),
	}

	// Container state is best effort: a stopped daemon degrades the
	// report instead of failing it.
	if container, containerErr := findContainer(ctx, manifest.Name); containerErr != nil {
		VerboseLog("container lookup skipped: %v", containerErr)
	} else {
		status.Container = container
	}

	printStatus(status)
	return nil
}

// buildEnvStatus inspects the environment directory and its completion
// marker. Reading the marker never mutates the environment.
func buildEnvStatus(env model.ProjectEnvironment, manifest *project.Manifest, provisioner *pyenv.Provisioner) envStatus {
	status := envStatus{
		Path:        env.EnvPath,
		Provisioned: provisioner.IsProvisioned(env.EnvPath),
	}
	if !status.Provisioned {
		return status
	}

	marker, err := pyenv.ReadMarker(env.EnvPath)
	if err != nil {
		return status
	}
	status.ProvisionedAt = model.Timestamp(marker.ProvisionedAt)
	status.Python = marker.PythonVersion

	// Compare the dependency manifest against the hash recorded when the
	// environment was built. A drift is reported, never auto-repaired.
	hash, err := pyenv.HashFile(filepath.Join(env.RootPath, manifest.Requirements))
	if err == nil && hash != marker.RequirementsSHA256 {
		status.ManifestChanged = true
	}
	return status
}

// findContainer looks up the project's managed container, tolerating an
// unreachable daemon.
func findContainer(ctx context.Context, projectName string) (*dockerenv.AppContainer, error) {
	cli, err := dockerenv.NewClient()
	if err != nil {
		return nil, err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return nil, err
	}
	return dockerenv.FindByProject(ctx, cli, projectName)
}

// printStatus reports the status in text or JSON.
func printStatus(status projectStatus) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(data))
		return
	}

	fields := []prompt.ResultField{
		{Label: "Project", Value: status.Project},
		{Label: "Root", Value: status.Root},
		{Label: "Entry point", Value: fmt.Sprintf("%s (port %d)", status.EntryPoint, status.Port)},
		{Label: "Environment", Value: formatEnvStatus(status.Environment)},
	}
	if status.Container != nil {
		fields = append(fields, prompt.ResultField{
			Label: "Container",
			Value: fmt.Sprintf("%s (%s)", status.Container.Name, status.Container.Status),
		})
	}

	prompt.PrintResult(fields, "")

	if status.Environment.ManifestChanged {
		fmt.Println("\nrequirements have changed since provisioning; remove the environment and run again to rebuild")
	}
}

// formatEnvStatus renders the environment line for text output.
func formatEnvStatus(status envStatus) string {
	if !status.Provisioned {
		return fmt.Sprintf("not provisioned (%s)", status.Path)
	}

	value := "provisioned"
	if status.Python != "" {
		value = fmt.Sprintf("provisioned, %s", status.Python)
	}
	if status.ProvisionedAt != "" {
		if at, err := time.Parse(time.RFC3339, status.ProvisionedAt); err == nil {
			value = fmt.Sprintf("%s (since %s)", value, at.Format("2006-01-02"))
		}
	}
	return value
}
