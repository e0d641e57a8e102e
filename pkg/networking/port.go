package networking

import (
	"fmt"
	"net"
	"strconv"
)

// SplitHostPort parses a host string in "host", "host:port", or
// "[ipv6]:port" form, applying defaultPort when no port is present.
func SplitHostPort(hostSpec string, defaultPort int) (host string, port int, err error) {
	if h, p, splitErr := net.SplitHostPort(hostSpec); splitErr == nil {
		portNum, convErr := strconv.Atoi(p)
		if convErr != nil {
			return "", 0, fmt.Errorf("invalid port %q: %w", p, convErr)
		}
		return h, portNum, nil
	}
	// No port present (or a bare IPv6 literal without brackets).
	return hostSpec, defaultPort, nil
}
