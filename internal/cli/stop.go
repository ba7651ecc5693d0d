// Package cli - stop.go implements the "devloop stop" command.
//
// stop gracefully stops the project's managed container. Containers
// started with --detach are the usual target; --remove deletes the
// stopped container as well.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/devloop/internal/dockerenv"
	"github.com/mmr-tortoise/devloop/internal/model"
)

// stopFlags holds the flag values for the stop command.
type stopFlags struct {
	remove bool // --remove: delete the container after stopping
}

// NewStopCommand creates the "stop" cobra command.
func NewStopCommand() *cobra.Command {
	flags := &stopFlags{}

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the project's container",
		Long: `Stop the container started with "devloop run --container --detach".

The container is stopped gracefully and kept unless --remove is given.

Examples:
  devloop stop
  devloop stop --remove`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStopCmd(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.remove, "remove", false, "Remove the container after stopping it")

	return cmd
}

// runStopCmd orchestrates the stop command.
func runStopCmd(ctx context.Context, flags *stopFlags) error {
	_, manifest, _, err := resolveEnvironment()
	if err != nil {
		return err
	}

	cli, err := dockerenv.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}

	container, err := dockerenv.FindByProject(ctx, cli, manifest.Name)
	if err != nil {
		return err
	}
	if container == nil {
		return model.NewWorkflowError(model.KindConfiguration,
			fmt.Sprintf("no devloop container found for project %q", manifest.Name))
	}

	VerboseLog("stopping container %s (%s)", container.Name, shortID(container.ID))
	if err := dockerenv.Stop(ctx, cli, container.ID); err != nil {
		return err
	}

	if flags.remove {
		if err := dockerenv.Remove(ctx, cli, container.ID, false); err != nil {
			return err
		}
	}

	printStopResult(container, flags.remove)
	return nil
}

// printStopResult reports the stop outcome in text or JSON.
func printStopResult(container *dockerenv.AppContainer, removed bool) {
	action := "stopped"
	if removed {
		action = "stopped and removed"
	}

	if IsJSONOutput() {
		result := map[string]interface{}{
			"project":   container.Project,
			"container": container.Name,
			"action":    action,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Container %s %s\n", container.Name, action)
}
