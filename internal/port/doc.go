// Package port implements the TCP port preflight for application
// launches.
//
// The application server dies with an opaque bind error when its port is
// taken, so devloop probes the configured port first and, when it is
// busy, scans forward for the nearest free one. Probing asks the OS
// directly via net.Listen: no parsing of /proc/net/* and no external
// commands that may require elevated permissions.
package port
