package gitsync

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mmr-tortoise/devloop/internal/model"
)

// DefaultCommitMessage replaces empty or whitespace-only operator input.
// A commit is never created with an empty message.
const DefaultCommitMessage = "Update"

// ErrPushRejected marks a push the remote refused, typically because the
// remote branch has commits the local branch lacks. The local commit
// stays intact; pulling first and publishing again resolves it.
var ErrPushRejected = errors.New("push rejected by remote")

// MessageProvider supplies the commit message for a publish run. The
// orchestrator never reads the terminal itself, so automated contexts can
// swap in a non-interactive implementation.
type MessageProvider interface {
	CommitMessage() (string, error)
}

// Report describes a completed or failed sync run.
type Report struct {
	// State is the terminal state the run reached.
	State model.SyncState `json:"state"`

	// ChangeSet describes what was staged and, when the run got that far,
	// committed and pushed.
	ChangeSet model.GitChangeSet `json:"changeSet"`

	// Result is the outcome of the last git command that ran.
	Result model.CommandResult `json:"result"`
}

// Orchestrator runs the publish cycle against one repository.
type Orchestrator struct {
	repoPath string
	remote   string
	messages MessageProvider
	state    model.SyncState
}

// NewOrchestrator creates an Orchestrator for the repository at repoPath,
// pushing to the named remote and sourcing commit messages from messages.
func NewOrchestrator(repoPath, remote string, messages MessageProvider) *Orchestrator {
	return &Orchestrator{
		repoPath: repoPath,
		remote:   remote,
		messages: messages,
		state:    model.SyncIdle,
	}
}

// State reports the orchestrator's position in the
// Idle → Checked → Staged → {NoOp | Committed} → {Pushed | Failed} machine.
func (o *Orchestrator) State() model.SyncState {
	return o.state
}

// Sync runs the publish cycle. Steps are strictly sequential and the
// first failure is terminal. Finding nothing staged is a success that
// stops the run before any prompt.
func (o *Orchestrator) Sync(ctx context.Context) (*Report, error) {
	o.state = model.SyncIdle
	report := &Report{}

	// Step 1: confirm we are inside a working tree before touching anything.
	result, err := o.runGit(ctx, "rev-parse", "--is-inside-work-tree")
	report.Result = result
	if err != nil {
		return report, o.fail(report, fmt.Sprintf("not a git repository: %s", o.repoPath), result, err)
	}
	o.state = model.SyncChecked

	// Step 2: stage everything (ignore rules still apply), then derive
	// the change set strictly from the staged diff.
	result, err = o.runGit(ctx, "add", "-A")
	report.Result = result
	if err != nil {
		return report, o.fail(report, "failed to stage changes", result, err)
	}

	result, err = o.runGit(ctx, "diff", "--cached", "--name-only")
	report.Result = result
	if err != nil {
		return report, o.fail(report, "failed to read staged changes", result, err)
	}
	staged := splitLines(result.Stdout)
	report.ChangeSet = model.GitChangeSet{
		StagedFiles: staged,
		HasChanges:  len(staged) > 0,
	}
	o.state = model.SyncStaged

	if !report.ChangeSet.HasChanges {
		// Nothing staged ends the run as a success: no prompt, no commit,
		// no push.
		o.state = model.SyncNoOp
		report.State = o.state
		return report, nil
	}

	// Step 3: commit with the operator's message.
	raw, err := o.messages.CommitMessage()
	if err != nil {
		return report, o.fail(report, "failed to read commit message", model.CommandResult{}, err)
	}
	message := NormalizeMessage(raw)
	report.ChangeSet.CommitMessage = message

	result, err = o.runGit(ctx, "commit", "-m", message)
	report.Result = result
	if err != nil {
		return report, o.fail(report, "failed to commit", result, err)
	}
	o.state = model.SyncCommitted

	// Step 4: push to the branch HEAD points at, resolved now rather than
	// assumed. A hardcoded branch name would silently publish the wrong
	// line of history on any repository not using it.
	result, err = o.runGit(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	report.Result = result
	if err != nil {
		return report, o.fail(report, "failed to resolve current branch", result, err)
	}
	branch := strings.TrimSpace(result.Stdout)
	report.ChangeSet.BranchName = branch

	result, err = o.runGit(ctx, "push", o.remote, branch)
	report.Result = result
	if err != nil {
		pushErr := err
		if strings.Contains(result.Stderr, "rejected") {
			pushErr = fmt.Errorf("%w: %v", ErrPushRejected, err)
		}
		return report, o.fail(report, fmt.Sprintf("failed to push %s to %s", branch, o.remote), result, pushErr)
	}

	o.state = model.SyncPushed
	report.State = o.state
	return report, nil
}

// fail records the terminal Failed state and wraps the git failure with
// the captured stderr so the operator sees the remote's or git's own
// reason.
func (o *Orchestrator) fail(report *Report, message string, result model.CommandResult, err error) error {
	o.state = model.SyncFailed
	report.State = o.state

	if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
		message = fmt.Sprintf("%s: %s", message, stderr)
	}
	wfErr := model.WrapWorkflowError(model.KindGit, message, err)
	if result.ExitCode != 0 {
		wfErr = wfErr.WithResult(result)
	}
	return wfErr
}

// NormalizeMessage trims operator input and substitutes the default
// commit message for empty or whitespace-only input.
func NormalizeMessage(raw string) string {
	message := strings.TrimSpace(raw)
	if message == "" {
		return DefaultCommitMessage
	}
	return message
}

// splitLines converts git output into trimmed, non-empty lines,
// preserving git's ordering.
func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// runGit executes a git subcommand against the orchestrator's repository.
// The -C flag keeps the process working directory untouched. stdout and
// stderr are captured separately; on failure stderr rides along on the
// result for the caller to surface.
func (o *Orchestrator) runGit(ctx context.Context, args ...string) (model.CommandResult, error) {
	fullArgs := append([]string{"-C", o.repoPath}, args...)
	// #nosec G204 -- args are fixed git subcommands; only repoPath and the
	// commit message vary, and both are passed as discrete arguments.
	cmd := exec.CommandContext(ctx, "git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := model.CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, fmt.Errorf("git %s failed: %w", strings.Join(args, " "), err)
	}
	return result, nil
}
