// Package project resolves the project root directory and loads the
// optional devloop.json manifest that tunes how a project is provisioned,
// launched, and published.
//
// Root resolution precedence: the --project flag, the PROJECT_DIR
// environment variable, then the invocation working directory. The
// manifest is JSONC (comments and trailing commas allowed) and every
// field has a default, so a project with no manifest at all still
// resolves to a fully usable configuration.
package project
