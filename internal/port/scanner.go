package port

import (
	"fmt"
	"net"
)

// Scanner checks whether TCP ports are available on the host machine.
//
// The struct is stateless today but defined as a struct (rather than bare
// functions) so future options (bind address, timeout) can be added
// without breaking the API.
type Scanner struct{}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsAvailable checks whether a single TCP port is free.
//
// It binds to all interfaces (":port" rather than "127.0.0.1:port")
// because the application server and Docker both publish on 0.0.0.0;
// probing a narrower address space would produce false positives. The
// probe listener is closed immediately.
func (s *Scanner) IsAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	defer func() { _ = listener.Close() }()
	return true
}

// FindAvailable scans [startPort, endPort] (inclusive) and returns the
// first free TCP port. The search is sequential from startPort upward so
// the same free port is selected consistently across runs.
func (s *Scanner) FindAvailable(startPort, endPort int) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if s.IsAvailable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available TCP port found in range %d-%d", startPort, endPort)
}

// Pick returns preferred when it is free, otherwise the nearest free port
// above it within window ports. This is the launch preflight: the
// configured port is always honored when possible.
func (s *Scanner) Pick(preferred, window int) (int, error) {
	if s.IsAvailable(preferred) {
		return preferred, nil
	}
	return s.FindAvailable(preferred+1, preferred+window)
}
