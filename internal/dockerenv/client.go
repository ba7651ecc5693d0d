package dockerenv

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/mmr-tortoise/devloop/internal/model"
)

// defaultPingTimeout bounds the daemon liveness probe. Docker Desktop on
// macOS can take noticeably longer to answer than native Linux Docker.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client with automatic socket
// detection. Callers should defer Close after NewClient and verify the
// daemon with Ping before issuing real requests.
type Client struct {
	// inner is the underlying SDK client, wrapped rather than embedded to
	// keep the exposed surface small.
	inner *client.Client
}

// NewClient creates a Docker client. DOCKER_HOST wins when set; otherwise
// the platform's known socket locations are probed:
//   - Linux: /var/run/docker.sock
//   - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//   - Windows: the docker_engine named pipe
func NewClient() (*Client, error) {
	if dockerHost := os.Getenv("DOCKER_HOST"); dockerHost != "" {
		return newClientWithHost(dockerHost)
	}

	host, err := detectDockerHost()
	if err != nil {
		return nil, model.WrapWorkflowError(model.KindProvisioning, "Docker socket not found", err)
	}
	return newClientWithHost(host)
}

// newClientWithHost connects to a specific Docker host string (e.g.
// "unix:///var/run/docker.sock"). API version negotiation keeps the
// client compatible across daemon versions.
func newClientWithHost(host string) (*Client, error) {
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapWorkflowError(model.KindProvisioning,
			fmt.Sprintf("failed to create Docker client for host %q", host), err)
	}
	return &Client{inner: c}, nil
}

// detectDockerHost probes the platform's known socket locations and
// returns the first that exists. Existence is checked rather than
// connectivity; Ping verifies the daemon is actually listening.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
		})

	case "darwin":
		// Newer Docker Desktop versions may only create the socket under
		// the user's home directory instead of the /var/run symlink.
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return detectUnixSocket([]string{
				"/var/run/docker.sock",
			})
		}
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
			homeDir + "/.docker/run/docker.sock",
		})

	case "windows":
		// os.Stat cannot see Windows named pipes, so probe with a short
		// dial instead.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, 1*time.Second)
		if err == nil {
			conn.Close()
			return "npipe://" + pipePath, nil
		}
		return "", fmt.Errorf("Docker named pipe not found at %s: %w", pipePath, err)

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket returns the Docker host URI for the first socket path
// that exists, checked in preference order.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("Docker socket not found at any of: %v (is Docker running?)", paths)
}

// Ping verifies the Docker daemon is reachable and responsive, waiting at
// most defaultPingTimeout. A paused Docker Desktop would otherwise hang
// the command indefinitely.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapWorkflowError(model.KindProvisioning,
			"Docker daemon is not responding (is Docker running?)", err)
	}
	return nil
}

// Close releases the client's resources. Safe to call multiple times.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Inner exposes the underlying SDK client for API calls not wrapped by
// this package.
func (c *Client) Inner() *client.Client {
	return c.inner
}
