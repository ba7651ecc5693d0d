// Package cli - clean.go implements the "devloop clean" command.
//
// clean removes the project's local environment so the next run
// provisions from scratch. It asks for confirmation first; the
// environment directory may hold gigabytes of installed packages.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/devloop/internal/dockerenv"
	"github.com/mmr-tortoise/devloop/internal/model"
	"github.com/mmr-tortoise/devloop/internal/prompt"
)

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	containers bool // --containers: also remove the managed container
	force      bool // --force: skip the confirmation prompt
}

// NewCleanCommand creates the "clean" cobra command.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the project's environment",
		Long: `Remove the project's local environment directory. The next run
provisions a fresh one from the dependency manifest.

With --containers the project's stopped container is removed as well.
A running container must be stopped first.

Examples:
  devloop clean
  devloop clean --force
  devloop clean --containers`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.containers, "containers", false, "Also remove the project's container")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Skip the confirmation prompt")

	return cmd
}

// runClean orchestrates the clean command.
func runClean(ctx context.Context, flags *cleanFlags) error {
	env, manifest, _, err := resolveEnvironment()
	if err != nil {
		return err
	}

	envExists := true
	if _, statErr := os.Stat(env.EnvPath); statErr != nil {
		envExists = false
	}

	if !envExists && !flags.containers {
		fmt.Println("Nothing to clean.")
		return nil
	}

	if envExists {
		if !flags.force {
			confirmed, confirmErr := prompt.Confirm(fmt.Sprintf("Remove environment at %s?", env.EnvPath))
			if confirmErr != nil {
				return model.WrapWorkflowError(model.KindConfiguration, "confirmation failed", confirmErr)
			}
			if !confirmed {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := os.RemoveAll(env.EnvPath); err != nil {
			return model.WrapWorkflowError(model.KindProvisioning,
				fmt.Sprintf("failed to remove environment at %s", env.EnvPath), err)
		}
		VerboseLog("removed %s", env.EnvPath)
	}

	removedContainer := ""
	if flags.containers {
		name, cleanErr := cleanContainer(ctx, manifest.Name)
		if cleanErr != nil {
			return cleanErr
		}
		removedContainer = name
	}

	printCleanResult(env.EnvPath, envExists, removedContainer)
	return nil
}

// cleanContainer removes the project's stopped container, returning its
// name. A running container is refused so work in progress is not lost.
func cleanContainer(ctx context.Context, projectName string) (string, error) {
	cli, err := dockerenv.NewClient()
	if err != nil {
		return "", err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return "", err
	}

	container, err := dockerenv.FindByProject(ctx, cli, projectName)
	if err != nil {
		return "", err
	}
	if container == nil {
		return "", nil
	}

	if container.Status == "running" {
		return "", model.NewWorkflowError(model.KindConfiguration,
			fmt.Sprintf("container %s is running; stop it first with \"devloop stop\"", container.Name))
	}

	if err := dockerenv.Remove(ctx, cli, container.ID, false); err != nil {
		return "", err
	}
	return container.Name, nil
}

// printCleanResult reports what was removed in text or JSON.
func printCleanResult(envPath string, envRemoved bool, removedContainer string) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"environment":        envPath,
			"environmentRemoved": envRemoved,
		}
		if removedContainer != "" {
			result["containerRemoved"] = removedContainer
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	if envRemoved {
		fmt.Printf("Removed environment at %s\n", envPath)
	}
	if removedContainer != "" {
		fmt.Printf("Removed container %s\n", removedContainer)
	}
}
