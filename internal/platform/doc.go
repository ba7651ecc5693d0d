// Package platform abstracts the host-OS differences that matter to
// devloop: where a Python interpreter is found and how executables are
// laid out inside a virtual environment.
//
// Exactly two implementations exist, one per PlatformKind (unix, windows).
// Detect selects the right one once at startup; everything downstream
// works against the Platform interface so OS-specific branching never
// leaks into provisioning or launching code.
package platform
