package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PlatformKind identifies the host operating system family. It determines
// how a Python interpreter is discovered and how executables are laid out
// inside a virtual environment (bin/ vs Scripts/, executable suffix).
type PlatformKind string

const (
	// PlatformUnix covers Linux, macOS, and the BSDs: environments use a
	// bin/ directory and interpreters are found as python3/python.
	PlatformUnix PlatformKind = "unix"

	// PlatformWindows covers Windows: environments use a Scripts\ directory,
	// executables carry an .exe suffix, and the py launcher is preferred.
	PlatformWindows PlatformKind = "windows"
)

// String returns the string representation of PlatformKind.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (k PlatformKind) String() string {
	return string(k)
}

// IsValid checks whether the PlatformKind value is one of the
// predefined valid kinds.
func (k PlatformKind) IsValid() bool {
	switch k {
	case PlatformUnix, PlatformWindows:
		return true
	default:
		return false
	}
}

// ParsePlatformKind converts a string to a PlatformKind.
// Returns an error if the string does not match any valid kind.
func ParsePlatformKind(s string) (PlatformKind, error) {
	kind := PlatformKind(strings.ToLower(s))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid platform kind: %q (valid: unix, windows)", s)
	}
	return kind, nil
}

// SyncState represents the position of a publish run in its lifecycle.
// The state transitions are strictly sequential:
//
//	Idle → Checked → Staged → NoOp        (nothing to commit)
//	Idle → Checked → Staged → Committed → Pushed
//	any step → Failed                      (first failure is terminal)
type SyncState string

const (
	// SyncIdle is the initial state before any repository check has run.
	SyncIdle SyncState = "idle"

	// SyncChecked indicates the target directory was confirmed to be a
	// Git working tree.
	SyncChecked SyncState = "checked"

	// SyncStaged indicates all pending changes have been staged and the
	// staged diff has been read.
	SyncStaged SyncState = "staged"

	// SyncNoOp is the terminal state for a run that found nothing staged.
	// It is a success: no commit is created and no prompt is shown.
	SyncNoOp SyncState = "no-op"

	// SyncCommitted indicates a commit was created from the staged changes.
	SyncCommitted SyncState = "committed"

	// SyncPushed is the terminal state for a fully successful run: the
	// commit reached the remote.
	SyncPushed SyncState = "pushed"

	// SyncFailed is the terminal state entered when any step fails.
	// No rollback is attempted; completed steps (e.g. a local commit)
	// remain in place.
	SyncFailed SyncState = "failed"
)

// String returns the string representation of SyncState.
func (s SyncState) String() string {
	return string(s)
}

// IsValid checks whether the SyncState value is one of the
// predefined valid states.
func (s SyncState) IsValid() bool {
	switch s {
	case SyncIdle, SyncChecked, SyncStaged, SyncNoOp, SyncCommitted, SyncPushed, SyncFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the state ends a sync run. Terminal states
// are never left; a new run starts over from SyncIdle.
func (s SyncState) IsTerminal() bool {
	return s == SyncNoOp || s == SyncPushed || s == SyncFailed
}

// ProjectEnvironment describes a resolved project and the isolated Python
// environment attached to it. It is produced once per invocation by the
// project resolver and flows unchanged through provisioning and launching.
type ProjectEnvironment struct {
	// RootPath is the absolute, cleaned path to the project root directory.
	// All relative paths in the project manifest resolve against it.
	RootPath string `json:"rootPath"`

	// Platform is the host platform family the environment targets.
	Platform PlatformKind `json:"platform"`

	// EnvPath is the absolute path of the virtual environment directory,
	// derived from RootPath and the manifest's envDir setting.
	EnvPath string `json:"envPath"`

	// Exists reports whether a valid, fully provisioned environment is
	// present at EnvPath. The provisioner sets it after verifying the
	// completion marker; it is never flipped back within a run.
	Exists bool `json:"exists"`
}

// LaunchConfiguration carries the per-run settings handed to the
// application launcher. Values follow flag > manifest > default precedence
// and are fixed before the child process is spawned.
type LaunchConfiguration struct {
	// EntryPoint is the application's main script, relative to the
	// project root.
	EntryPoint string `json:"entrypoint"`

	// AutoReload enables file-watch reload in the application server.
	AutoReload bool `json:"autoReload"`

	// Headless suppresses the server's browser auto-open behavior.
	Headless bool `json:"headless"`

	// Port is the TCP port the application server listens on.
	Port int `json:"port"`
}

// GitChangeSet describes what a publish run staged and, when it got that
// far, committed and pushed. StagedFiles preserves git's own ordering.
type GitChangeSet struct {
	// StagedFiles lists the paths captured from the staged diff.
	StagedFiles []string `json:"stagedFiles,omitempty"`

	// HasChanges is true when StagedFiles is non-empty. It is derived
	// strictly from the staged diff, never from untracked-file heuristics.
	HasChanges bool `json:"hasChanges"`

	// BranchName is the branch the push targeted, resolved from HEAD at
	// push time. Empty until the run reaches the push step.
	BranchName string `json:"branchName,omitempty"`

	// CommitMessage is the message used for the commit, after trimming
	// and default substitution. Empty until the run reaches the commit step.
	CommitMessage string `json:"commitMessage,omitempty"`
}

// CommandResult captures the outcome of a child process run by devloop:
// interpreter and pip invocations, the application server, and git
// subcommands. Stderr is kept verbatim so failures can surface the
// child's own diagnostics.
type CommandResult struct {
	// ExitCode is the child's exit code. Negative when the process could
	// not be started or was killed before exiting normally.
	ExitCode int `json:"exitCode"`

	// Stdout is the captured standard output. Empty for processes that
	// inherit the terminal.
	Stdout string `json:"stdout,omitempty"`

	// Stderr is the captured standard error. Empty for processes that
	// inherit the terminal.
	Stderr string `json:"stderr,omitempty"`
}

// Timestamp returns the given time normalized to UTC RFC3339, the format
// used for all times devloop records or displays.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ExitCode defines the process exit codes devloop can return. Scripts and
// CI systems rely on these to determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully. A publish
	// run that found nothing to commit also exits with this code.
	ExitSuccess ExitCode = 0

	// ExitFailure indicates a configuration or environment problem, or a
	// failure with no child process exit code to propagate.
	ExitFailure ExitCode = 1
)

// ErrorKind classifies a workflow failure by the phase that produced it.
// The kind drives exit-code mapping and error presentation; it never
// changes once an error is constructed.
type ErrorKind string

const (
	// KindConfiguration marks problems with the project setup itself:
	// missing root directory, unparseable manifest, absent interpreter,
	// or a disabled-provisioning run against an unprovisioned environment.
	KindConfiguration ErrorKind = "configuration"

	// KindProvisioning marks failures while creating the environment or
	// installing dependencies into it.
	KindProvisioning ErrorKind = "provisioning"

	// KindLaunch marks failures spawning or running the application
	// entry point.
	KindLaunch ErrorKind = "launch"

	// KindGit marks failures in the stage/commit/push cycle.
	KindGit ErrorKind = "git"
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}

// IsValid checks whether the ErrorKind value is one of the
// predefined valid kinds.
func (k ErrorKind) IsValid() bool {
	switch k {
	case KindConfiguration, KindProvisioning, KindLaunch, KindGit:
		return true
	default:
		return false
	}
}

// WorkflowError is the typed error returned by every devloop component.
// It classifies the failure and carries the last child-process result when
// one ran, but deliberately holds no exit code: translating errors into
// process exit codes happens in exactly one place, the command layer.
type WorkflowError struct {
	// Kind is the failure classification.
	Kind ErrorKind

	// Message is the human-readable error description.
	Message string

	// Result is the captured outcome of the child process whose failure
	// produced this error. Nil when no child process was involved.
	Result *CommandResult

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// WithResult attaches a child-process result and returns the error,
// allowing construction and attachment in a single expression.
func (e *WorkflowError) WithResult(result CommandResult) *WorkflowError {
	e.Result = &result
	return e
}

// NewWorkflowError creates a new WorkflowError with the given kind and message.
func NewWorkflowError(kind ErrorKind, message string) *WorkflowError {
	return &WorkflowError{Kind: kind, Message: message}
}

// WrapWorkflowError creates a new WorkflowError that wraps an existing error.
func WrapWorkflowError(kind ErrorKind, message string, err error) *WorkflowError {
	return &WorkflowError{Kind: kind, Message: message, Err: err}
}

// AsWorkflowError extracts a *WorkflowError from anywhere in err's chain.
func AsWorkflowError(err error) (*WorkflowError, bool) {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr, true
	}
	return nil, false
}
