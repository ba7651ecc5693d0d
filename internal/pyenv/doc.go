// Package pyenv provisions isolated Python virtual environments and
// launches the application entry point inside them.
//
// Provisioning is strictly idempotent: a valid environment is recognized
// by its completion marker (written only after every install step
// succeeded) and is never touched again. Partial environments left by
// interrupted runs have no marker and are rebuilt from scratch. The only
// way to rebuild a valid environment is to remove it explicitly.
//
// Launching hands the terminal to the child process until it exits. The
// child gets a scoped copy of the parent environment with the virtual
// environment's bin directory prefixed onto PATH; the parent process
// environment is never mutated. Interrupt and termination signals are
// forwarded to the child, and its exit code is propagated verbatim.
package pyenv
