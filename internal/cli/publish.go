// Package cli - publish.go implements the "devloop publish" command.
//
// publish stages everything in the project, commits with an operator
// supplied message, and pushes to the configured remote. A clean working
// tree is a success that skips the prompt entirely.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/devloop/internal/gitsync"
	"github.com/mmr-tortoise/devloop/internal/prompt"
)

// publishFlags holds the flag values for the publish command.
type publishFlags struct {
	message string // --message: commit message, skipping the prompt
	remote  string // --remote: override the manifest remote
}

// NewPublishCommand creates the "publish" cobra command.
func NewPublishCommand() *cobra.Command {
	flags := &publishFlags{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Commit all changes and push them to the remote",
		Long: `Stage every change in the project, commit, and push to the remote
branch currently checked out.

The commit message is prompted for interactively unless --message is
given or stdin is not a terminal. A blank message falls back to
"` + gitsync.DefaultCommitMessage + `". When the working tree is clean the command succeeds
without prompting or committing anything.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.message, "message", "m", "", "Commit message (skips the interactive prompt)")
	cmd.Flags().StringVar(&flags.remote, "remote", "", "Remote to push to (overrides the manifest)")

	return cmd
}

// runPublish orchestrates the publish command.
func runPublish(ctx context.Context, flags *publishFlags) error {
	env, manifest, _, err := resolveEnvironment()
	if err != nil {
		return err
	}

	remote := manifest.Remote
	if flags.remote != "" {
		remote = flags.remote
	}

	orchestrator := gitsync.NewOrchestrator(env.RootPath, remote, messageProvider(flags))

	report, err := orchestrator.Sync(ctx)
	if err != nil {
		return err
	}

	printPublishResult(report, remote)
	return nil
}

// messageProvider picks where the commit message comes from: the flag
// when given, a prompt on a terminal, and the built-in default otherwise
// (pipes and CI have no terminal to prompt on).
func messageProvider(flags *publishFlags) gitsync.MessageProvider {
	if flags.message != "" {
		return &prompt.Static{Message: flags.message}
	}
	if !prompt.StdinIsTerminal() {
		// An empty static message lets the orchestrator substitute the
		// default.
		return &prompt.Static{}
	}
	return &prompt.Interactive{Placeholder: gitsync.DefaultCommitMessage}
}

// printPublishResult reports the sync outcome in text or JSON.
func printPublishResult(report *gitsync.Report, remote string) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
		return
	}

	if !report.ChangeSet.HasChanges {
		fmt.Println("No changes to commit.")
		return
	}

	prompt.PrintResult([]prompt.ResultField{
		{Label: "Branch", Value: fmt.Sprintf("%s -> %s", report.ChangeSet.BranchName, remote)},
		{Label: "Message", Value: report.ChangeSet.CommitMessage},
		{Label: "Files", Value: fmt.Sprintf("%d changed", len(report.ChangeSet.StagedFiles))},
	}, "Changes published")
}
