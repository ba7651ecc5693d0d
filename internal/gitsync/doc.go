// Package gitsync drives the stage-commit-push cycle behind the publish
// command.
//
// A sync run walks a strict state machine: the target is confirmed to be
// a repository, all pending changes are staged, and the change set is
// derived from the staged diff alone. An empty staged diff ends the run
// successfully with no prompt, no commit, and no push. Otherwise
// a commit is created with the operator's message (blank input falls back
// to a default) and pushed to the current branch, resolved from HEAD at
// push time. The first failing step is terminal; completed steps such as
// a local commit are left in place.
//
// All git work shells out to the git binary. Commit messages come from a
// MessageProvider so non-interactive contexts can swap the terminal
// prompt for a fixed message.
package gitsync
