package gitsync

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/devloop/internal/model"
)

// setupSyncRepo creates a temporary Git repository with a single commit.
// It configures a local user identity so `git commit` works in CI
// environments without a global Git configuration.
func setupSyncRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	runTestGit(t, dir, "init")
	runTestGit(t, dir, "config", "user.email", "test@example.com")
	runTestGit(t, dir, "config", "user.name", "Test User")

	readme := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("# Test Repo\n"), 0o644))
	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", "initial commit")

	return dir
}

// setupRemote creates a bare repository, registers it as origin, and
// pushes the current branch so later pushes have an upstream to hit.
func setupRemote(t *testing.T, repoPath string) string {
	t.Helper()

	bare := t.TempDir()
	runTestGit(t, bare, "init", "--bare")
	runTestGit(t, repoPath, "remote", "add", "origin", bare)

	branch := strings.TrimSpace(runTestGit(t, repoPath, "rev-parse", "--abbrev-ref", "HEAD"))
	runTestGit(t, repoPath, "push", "origin", branch)

	return bare
}

// runTestGit runs a git command in the specified directory and fails the
// test immediately on a non-zero exit.
func runTestGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
	return string(output)
}

// staticMessages is a MessageProvider returning a fixed message.
type staticMessages struct {
	message string
}

func (p *staticMessages) CommitMessage() (string, error) {
	return p.message, nil
}

// guardMessages fails the test if the orchestrator asks for a message.
// Used to prove the no-changes path never prompts.
type guardMessages struct {
	t *testing.T
}

func (p *guardMessages) CommitMessage() (string, error) {
	p.t.Fatal("CommitMessage must not be called when there is nothing to commit")
	return "", nil
}

// TestSyncNotARepository verifies a sync against a plain directory fails
// with a git error before any staging happens.
func TestSyncNotARepository(t *testing.T) {
	dir := t.TempDir()
	orch := NewOrchestrator(dir, "origin", &staticMessages{message: "x"})

	report, err := orch.Sync(context.Background())
	require.Error(t, err)

	var wfErr *model.WorkflowError
	require.True(t, errors.As(err, &wfErr))
	assert.Equal(t, model.KindGit, wfErr.Kind)
	assert.Contains(t, err.Error(), "not a git repository")
	assert.Equal(t, model.SyncFailed, report.State)
	assert.Equal(t, model.SyncFailed, orch.State())
}

// TestSyncNoChanges verifies a clean tree ends the run as a no-op
// success: no prompt, no commit, no push.
func TestSyncNoChanges(t *testing.T) {
	repo := setupSyncRepo(t)
	orch := NewOrchestrator(repo, "origin", &guardMessages{t: t})

	report, err := orch.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.SyncNoOp, report.State)
	assert.Equal(t, model.SyncNoOp, orch.State())
	assert.False(t, report.ChangeSet.HasChanges)
	assert.Empty(t, report.ChangeSet.StagedFiles)

	// Still only the initial commit.
	log := runTestGit(t, repo, "rev-list", "--count", "HEAD")
	assert.Equal(t, "1", strings.TrimSpace(log))
}

// TestSyncIgnoredFilesAreNoOp verifies ignore rules apply to staging:
// a tree containing only ignored files has no changes.
func TestSyncIgnoredFilesAreNoOp(t *testing.T) {
	repo := setupSyncRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(repo, ".gitignore"), []byte("*.log\n"), 0o644))
	runTestGit(t, repo, "add", ".gitignore")
	runTestGit(t, repo, "commit", "-m", "add gitignore")

	require.NoError(t, os.WriteFile(filepath.Join(repo, "debug.log"), []byte("noise\n"), 0o644))

	orch := NewOrchestrator(repo, "origin", &guardMessages{t: t})
	report, err := orch.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.SyncNoOp, report.State)
}

// TestSyncCommitAndPush verifies the full cycle: changes are staged,
// committed with the operator's message, and pushed to the current
// branch on the remote.
func TestSyncCommitAndPush(t *testing.T) {
	repo := setupSyncRepo(t)
	bare := setupRemote(t, repo)

	require.NoError(t, os.WriteFile(filepath.Join(repo, "app.py"), []byte("print('v2')\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "README.md"), []byte("# Test Repo v2\n"), 0o644))

	orch := NewOrchestrator(repo, "origin", &staticMessages{message: "add app"})
	report, err := orch.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.SyncPushed, report.State)
	assert.True(t, report.ChangeSet.HasChanges)
	assert.ElementsMatch(t, []string{"app.py", "README.md"}, report.ChangeSet.StagedFiles)
	assert.Equal(t, "add app", report.ChangeSet.CommitMessage)

	subject := strings.TrimSpace(runTestGit(t, repo, "log", "-1", "--pretty=%s"))
	assert.Equal(t, "add app", subject)

	// The remote branch points at the same commit as the local branch.
	localHead := strings.TrimSpace(runTestGit(t, repo, "rev-parse", "HEAD"))
	remoteHead := strings.TrimSpace(runTestGit(t, bare, "rev-parse", report.ChangeSet.BranchName))
	assert.Equal(t, localHead, remoteHead)
}

// TestSyncBlankMessageUsesDefault verifies whitespace-only operator input
// falls back to the default commit message.
func TestSyncBlankMessageUsesDefault(t *testing.T) {
	repo := setupSyncRepo(t)
	setupRemote(t, repo)

	require.NoError(t, os.WriteFile(filepath.Join(repo, "notes.txt"), []byte("draft\n"), 0o644))

	orch := NewOrchestrator(repo, "origin", &staticMessages{message: "   \n\t"})
	report, err := orch.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultCommitMessage, report.ChangeSet.CommitMessage)
	subject := strings.TrimSpace(runTestGit(t, repo, "log", "-1", "--pretty=%s"))
	assert.Equal(t, DefaultCommitMessage, subject)
}

// TestSyncPushesCurrentBranch verifies the push targets whatever branch
// HEAD points at, not a fixed name.
func TestSyncPushesCurrentBranch(t *testing.T) {
	repo := setupSyncRepo(t)
	bare := setupRemote(t, repo)

	runTestGit(t, repo, "checkout", "-b", "feature-sync")
	require.NoError(t, os.WriteFile(filepath.Join(repo, "feature.py"), []byte("pass\n"), 0o644))

	orch := NewOrchestrator(repo, "origin", &staticMessages{message: "feature work"})
	report, err := orch.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "feature-sync", report.ChangeSet.BranchName)
	runTestGit(t, bare, "rev-parse", "--verify", "refs/heads/feature-sync")
}

// TestSyncPushRejected verifies a remote ahead of the local branch fails
// the push with the remote's reason, while the local commit stays intact.
func TestSyncPushRejected(t *testing.T) {
	repo := setupSyncRepo(t)
	bare := setupRemote(t, repo)

	// Advance the remote through a second clone so the push below is a
	// non-fast-forward.
	other := t.TempDir()
	runTestGit(t, other, "clone", bare, "clone")
	clone := filepath.Join(other, "clone")
	runTestGit(t, clone, "config", "user.email", "other@example.com")
	runTestGit(t, clone, "config", "user.name", "Other User")
	require.NoError(t, os.WriteFile(filepath.Join(clone, "remote.txt"), []byte("ahead\n"), 0o644))
	runTestGit(t, clone, "add", ".")
	runTestGit(t, clone, "commit", "-m", "remote ahead")
	branch := strings.TrimSpace(runTestGit(t, clone, "rev-parse", "--abbrev-ref", "HEAD"))
	runTestGit(t, clone, "push", "origin", branch)

	require.NoError(t, os.WriteFile(filepath.Join(repo, "local.txt"), []byte("local\n"), 0o644))

	orch := NewOrchestrator(repo, "origin", &staticMessages{message: "local work"})
	report, err := orch.Sync(context.Background())
	require.Error(t, err)

	var wfErr *model.WorkflowError
	require.True(t, errors.As(err, &wfErr))
	assert.Equal(t, model.KindGit, wfErr.Kind)
	assert.True(t, errors.Is(err, ErrPushRejected))
	assert.Equal(t, model.SyncFailed, report.State)

	// The local commit survives; no rollback happens.
	count := strings.TrimSpace(runTestGit(t, repo, "rev-list", "--count", "HEAD"))
	assert.Equal(t, "2", count)
}

// TestSyncStateSequence verifies the state machine lands on the right
// terminal state for each outcome.
func TestSyncStateSequence(t *testing.T) {
	t.Run("starts idle", func(t *testing.T) {
		orch := NewOrchestrator(t.TempDir(), "origin", &staticMessages{})
		assert.Equal(t, model.SyncIdle, orch.State())
	})

	t.Run("noop is terminal", func(t *testing.T) {
		repo := setupSyncRepo(t)
		orch := NewOrchestrator(repo, "origin", &guardMessages{t: t})
		_, err := orch.Sync(context.Background())
		require.NoError(t, err)
		assert.True(t, orch.State().IsTerminal())
	})

	t.Run("pushed is terminal", func(t *testing.T) {
		repo := setupSyncRepo(t)
		setupRemote(t, repo)
		require.NoError(t, os.WriteFile(filepath.Join(repo, "x.txt"), []byte("x\n"), 0o644))

		orch := NewOrchestrator(repo, "origin", &staticMessages{message: "x"})
		_, err := orch.Sync(context.Background())
		require.NoError(t, err)
		assert.Equal(t, model.SyncPushed, orch.State())
	})
}

// TestNormalizeMessage checks trimming and default substitution.
func TestNormalizeMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain message", "fix pricing", "fix pricing"},
		{"padded message", "  fix pricing  ", "fix pricing"},
		{"empty", "", DefaultCommitMessage},
		{"whitespace only", " \t\n ", DefaultCommitMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeMessage(tt.input))
		})
	}
}

// TestSplitLines checks staged-diff output parsing preserves order and
// drops blank lines.
func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a.py", "dir/b.py"}, splitLines("a.py\ndir/b.py\n"))
	assert.Nil(t, splitLines(""))
	assert.Nil(t, splitLines("\n\n"))
}
