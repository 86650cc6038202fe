package relay

import "errors"

// Sentinel errors for relay operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, relay.ErrUpstreamTimeout) {
//	    // answer 502
//	}
var (
	// ErrUpstreamTimeout indicates the outbound call exceeded its deadline.
	ErrUpstreamTimeout = errors.New("relay: upstream timed out")

	// ErrUpstream indicates the outbound call failed at the transport level.
	ErrUpstream = errors.New("relay: upstream request failed")

	// ErrMethodNotAllowed indicates a forward was requested with a verb other
	// than GET, POST or PUT.
	ErrMethodNotAllowed = errors.New("relay: method not allowed")

	// ErrInvalidTarget indicates the forward target is not an absolute http(s) URL.
	ErrInvalidTarget = errors.New("relay: invalid target url")
)
