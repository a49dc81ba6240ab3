package console

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Listen binds host:port. An empty host listens on all interfaces. The
// returned URL is suitable for printing to the operator.
func Listen(host string, port int) (net.Listener, string, error) {
	if port < 0 || port > 65535 {
		return nil, "", fmt.Errorf("invalid --port %d (must be 0..65535)", port)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if strings.Contains(err.Error(), "address already in use") {
			return nil, "", fmt.Errorf("port %d is already in use", port)
		}
		return nil, "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	displayHost := host
	if displayHost == "" || displayHost == "0.0.0.0" || displayHost == "::" {
		displayHost = "localhost"
	}
	actualPort := listener.Addr().(*net.TCPAddr).Port
	baseURL := "http://" + net.JoinHostPort(displayHost, strconv.Itoa(actualPort))
	return listener, baseURL, nil
}
