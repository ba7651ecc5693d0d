// Package cli implements the cobra commands for devloop.
//
// Each subcommand (run, publish, status, stop, clean) lives in its own
// file. This file defines the root command, the global flags, and the
// single place where workflow errors are translated into process exit
// codes.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/devloop/internal/model"
	"github.com/mmr-tortoise/devloop/internal/platform"
	"github.com/mmr-tortoise/devloop/internal/project"
)

// Global flag variables bound to persistent flags on the root command,
// available to every subcommand.
var (
	// jsonOutput switches command output to JSON for machine consumption.
	jsonOutput bool

	// verbose enables trace output on stderr.
	verbose bool

	// projectDir overrides project root resolution when non-empty.
	projectDir string
)

// Version, Commit, and Date are injected from the main package at build
// time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command. The root
// itself performs no action; subcommands carry the functionality.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "devloop",
		Short: "Local development workflow for Streamlit projects",
		Long: `devloop provisions an isolated Python environment for a project, launches
its Streamlit entry point, and publishes changes back to Git.

The project root is resolved from --project, the PROJECT_DIR environment
variable, or the current directory, in that order. Project settings are
read from devloop.json (or .devloop.json) in the root when present.`,

		// Errors are formatted by Execute, so cobra's own printing is off.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", "", "Project root directory (defaults to $PROJECT_DIR or the current directory)")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewPublishCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewStopCommand())
	rootCmd.AddCommand(NewCleanCommand())

	return rootCmd
}

// Execute runs the root command and converts any returned error into a
// process exit code. This is the only place in the program where errors
// are mapped to exit codes; the packages below return typed errors and
// never call os.Exit themselves.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if workflowErr, ok := model.AsWorkflowError(err); ok {
			printError(workflowErr.Message, workflowErr.Kind.String(), workflowErr.Err)
			os.Exit(exitCodeFor(workflowErr))
		}

		printError(err.Error(), "", nil)
		os.Exit(int(model.ExitFailure))
	}
}

// exitCodeFor maps a workflow error to a process exit code. Configuration
// problems always exit 1. When a child process failed, its exit code is
// propagated verbatim; everything else also exits 1.
func exitCodeFor(workflowErr *model.WorkflowError) int {
	if workflowErr.Kind == model.KindConfiguration {
		return int(model.ExitFailure)
	}
	if workflowErr.Result != nil && workflowErr.Result.ExitCode > 0 {
		return workflowErr.Result.ExitCode
	}
	return int(model.ExitFailure)
}

// printError writes an error to stderr in text or JSON form depending on
// the --json flag. stdout stays reserved for successful command output.
func printError(message, kind string, underlying error) {
	if jsonOutput {
		inner := map[string]interface{}{
			"message": message,
		}
		if kind != "" {
			inner["kind"] = kind
		}
		if underlying != nil {
			inner["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(map[string]interface{}{"error": inner}, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// VerboseLog prints a message to stderr only when verbose mode is on.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput reports whether the --json flag is set. Subcommands use it
// to pick their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// resolveEnvironment detects the platform, resolves the project root, and
// loads the manifest. Every subcommand starts here.
func resolveEnvironment() (model.ProjectEnvironment, *project.Manifest, platform.Platform, error) {
	plat := platform.Detect()
	env, manifest, err := project.NewResolver(plat, projectDir).Resolve()
	if err != nil {
		return model.ProjectEnvironment{}, nil, nil, err
	}
	VerboseLog("project root: %s", env.RootPath)
	return env, manifest, plat, nil
}
