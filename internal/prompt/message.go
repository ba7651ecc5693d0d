package prompt

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Interactive reads the commit message as a single line through a styled
// terminal form. Blank input is allowed: the sync orchestrator
// substitutes its default message.
type Interactive struct {
	// Placeholder is shown in the empty input, typically the default
	// message that blank input falls back to.
	Placeholder string
}

// CommitMessage satisfies the gitsync MessageProvider interface.
func (p *Interactive) CommitMessage() (string, error) {
	var message string
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Commit message").
				Placeholder(p.Placeholder).
				Value(&message),
		),
	).WithTheme(Theme()).Run(); err != nil {
		return "", err
	}
	return message, nil
}

// Static supplies a fixed message without touching the terminal. The zero
// value yields an empty message, which the orchestrator replaces with its
// default.
type Static struct {
	Message string
}

// CommitMessage satisfies the gitsync MessageProvider interface.
func (p *Static) CommitMessage() (string, error) {
	return p.Message, nil
}

// Confirm asks a yes/no question with the shared theme. Used before
// destructive actions like removing an environment directory.
func Confirm(title string) (bool, error) {
	var confirmed bool
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	).WithTheme(Theme()).Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

// StdinIsTerminal reports whether stdin is an interactive terminal.
// Prompts must never block a piped or CI invocation.
func StdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
