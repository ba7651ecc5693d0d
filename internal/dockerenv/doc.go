// Package dockerenv implements the containerized run backend: instead of
// a host virtual environment, the application runs inside an ephemeral
// Docker container with the project bind-mounted into it.
//
// Container state is kept exclusively in devloop.* labels; status and
// stop reconstruct everything from the Docker API. Queries go through
// the Docker Engine SDK, while container runs and image pulls shell out
// to the docker CLI so their output streams through the operator's
// terminal unmodified.
package dockerenv
