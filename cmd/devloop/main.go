// Package main is the entry point for the devloop CLI.
//
// The binary wraps a local development workflow for Streamlit projects:
// provisioning an isolated Python environment, launching the application,
// and publishing changes to Git. All functionality lives in the
// internal/cli package.
//
// Build-time variables (version, commit, date) are injected via ldflags
// by GoReleaser during the release process. During development, they
// default to "dev", "none", and "unknown".
package main

import (
	"github.com/mmr-tortoise/devloop/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Inject build-time version info into the CLI package, keeping the
	// build system decoupled from the command framework.
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
