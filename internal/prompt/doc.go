// Package prompt owns every interaction devloop has with the operator's
// terminal: the commit message form, destructive-action confirmation, and
// styled result summaries.
//
// The commit message prompt implements the gitsync MessageProvider
// interface, so non-interactive contexts (pipes, CI) swap it for the
// Static provider and never block on a terminal read.
package prompt
