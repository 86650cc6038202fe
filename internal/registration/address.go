package registration

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Address limits.
const (
	minPort     = 1
	maxPort     = 65535
	maxOctet    = 255
	ipv4Octets  = 4
	addrJSONLen = 2
)

// Address is a validated dotted IPv4 address with an optional port.
//
// Port is zero when absent. A device address without a port matches
// traffic from any source port on that IP.
type Address struct {
	IP   string
	Port int
}

// ParseAddress validates an "ip" or "ip:port" string.
//
// The IP must be four dot-separated decimal parts, each in 0..255.
// The port, when present, must be a decimal integer in 1..65535.
// The IP text is kept as given so that String() round-trips the input.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	ip, portStr, hasPort := strings.Cut(s, ":")

	var port int
	if hasPort {
		p, err := parseDecimal(portStr)
		if err != nil || p < minPort || p > maxPort {
			return Address{}, fmt.Errorf("%w: %q", ErrInvalidPort, portStr)
		}
		port = p
	}

	if err := validateIPv4(ip); err != nil {
		return Address{}, err
	}

	return Address{IP: ip, Port: port}, nil
}

// ParseHubAddress validates an "ip:port" string. Hub addresses always carry a port.
func ParseHubAddress(s string) (Address, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return Address{}, err
	}
	if !addr.HasPort() {
		return Address{}, fmt.Errorf("%w: %q", ErrMissingPort, s)
	}
	return addr, nil
}

func validateIPv4(ip string) error {
	parts := strings.Split(ip, ".")
	if len(parts) != ipv4Octets {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, ip)
	}
	for _, part := range parts {
		n, err := parseDecimal(part)
		if err != nil || n > maxOctet {
			return fmt.Errorf("%w: %q", ErrInvalidAddress, ip)
		}
	}
	return nil
}

// parseDecimal accepts only ASCII digits, so signs and whitespace are rejected.
func parseDecimal(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// HasPort reports whether the address carries a port.
func (a Address) HasPort() bool {
	return a.Port != 0
}

// String returns "ip:port", or just "ip" when no port is set.
func (a Address) String() string {
	if !a.HasPort() {
		return a.IP
	}
	return a.IP + ":" + strconv.Itoa(a.Port)
}

// MatchesSender reports whether traffic from ip:port belongs to this address.
// An address without a port matches every port on its IP.
func (a Address) MatchesSender(ip string, port int) bool {
	if a.IP != ip {
		return false
	}
	return !a.HasPort() || a.Port == port
}

// MarshalJSON encodes the address as [ip, port] with a null port when absent.
func (a Address) MarshalJSON() ([]byte, error) {
	var port any
	if a.HasPort() {
		port = a.Port
	}
	return json.Marshal([]any{a.IP, port})
}

// UnmarshalJSON decodes [ip, port|null] and validates the result.
func (a *Address) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(raw) != addrJSONLen {
		return fmt.Errorf("%w: expected [ip, port]", ErrInvalidAddress)
	}

	var ip string
	if err := json.Unmarshal(raw[0], &ip); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if err := validateIPv4(ip); err != nil {
		return err
	}

	var port *int
	if err := json.Unmarshal(raw[1], &port); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPort, err)
	}

	decoded := Address{IP: ip}
	if port != nil {
		if *port < minPort || *port > maxPort {
			return fmt.Errorf("%w: %d", ErrInvalidPort, *port)
		}
		decoded.Port = *port
	}

	*a = decoded
	return nil
}
