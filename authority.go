package network

import (
	"fmt"
	"net"
	"strconv"
)

// Authority is the identity of a network endpoint, an address paired with a
// port. It is a comparable value type so that it can be matched against
// blacklist entries directly.
type Authority struct {
	// Host is the IP address or host name of the endpoint.
	Host string

	// Port is the TCP port of the endpoint.
	Port uint16
}

// NewAuthority constructs an Authority from its parts.
func NewAuthority(host string, port uint16) Authority {
	return Authority{
		Host: host,
		Port: port,
	}
}

// ParseAuthority parses a "host:port" string into an Authority. IPv6
// addresses use the usual bracketed form, e.g. "[::1]:8333".
func ParseAuthority(addr string) (Authority, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return Authority{}, fmt.Errorf("unable to parse authority "+
			"%q: %w", addr, err)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Authority{}, fmt.Errorf("unable to parse authority "+
			"port %q: %w", portStr, err)
	}

	return Authority{
		Host: host,
		Port: uint16(port),
	}, nil
}

// String returns the canonical "host:port" form of the authority.
func (a Authority) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}
