// Package model defines the domain types and value objects for the
// devloop CLI.
//
// This package contains pure data structures with no external dependencies:
// the resolved project environment, launch configuration, git change sets,
// and captured child-process results. All of them are transient values
// rebuilt on every invocation; the only state devloop persists lives in the
// provisioning marker owned by the pyenv package.
//
// The package also defines exit codes (ExitCode) and a typed error
// (WorkflowError) that classifies failures by kind. WorkflowError carries
// no exit code itself: the command layer is the only place errors are
// mapped to process exit codes.
package model
