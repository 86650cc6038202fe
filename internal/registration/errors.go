package registration

import "errors"

// Domain errors for the registration package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, registration.ErrNotFound) {
//	    // respond 404
//	}
var (
	// ErrInvalidAddress is returned when an ip[:port] string is malformed.
	ErrInvalidAddress = errors.New("registration: invalid address")

	// ErrInvalidPort is returned when a port is not an integer in 1..65535.
	ErrInvalidPort = errors.New("registration: invalid port")

	// ErrMissingPort is returned when a hub address has no port.
	ErrMissingPort = errors.New("registration: hub address requires a port")

	// ErrInvalidEdgeID is returned when an edge id is not in 8-4-4-4-12 hex form.
	ErrInvalidEdgeID = errors.New("registration: invalid edge id")

	// ErrNotFound is returned when removing a registration that does not exist.
	ErrNotFound = errors.New("registration: not found")

	// ErrStoreRead is returned when the record store cannot be read or parsed.
	ErrStoreRead = errors.New("registration: store read failed")

	// ErrStoreWrite is returned when the record store cannot be rewritten.
	ErrStoreWrite = errors.New("registration: store write failed")
)
