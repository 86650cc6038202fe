package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nerrad567/edge-bridge/internal/registration"
)

// Command is a parsed relay-surface command.
//
// Parsing is pure: it validates every argument and never touches the
// registration table, so a rejected command leaves no state behind.
type Command interface {
	command()
}

// Forward relays the inbound request to URL.
type Forward struct {
	// URL is the raw text after "url=", not re-decoded.
	URL string
}

// RegisterUpsert adds or replaces a registration.
type RegisterUpsert struct {
	Record registration.Record
}

// RegisterDelete removes the registration keyed by Device and EdgeID.
type RegisterDelete struct {
	Device registration.Address
	EdgeID registration.EdgeID
}

func (Forward) command()        {}
func (RegisterUpsert) command() {}
func (RegisterDelete) command() {}

// Register argument keys.
const (
	argDevice = "devaddr"
	argHub    = "hubaddr"
	argEdgeID = "edgeid"
	argURL    = "url"
)

// ParseCommand parses an inbound request target into a Command.
//
// target is the raw request target (path and query, as sent on the wire).
// Errors wrap ErrBadCommand, ErrUnknownEndpoint, ErrUnknownArgument,
// ErrMissingArgument, ErrMethodNotAllowed or a registration validation error.
func ParseCommand(method, target string) (Command, error) {
	path, query, ok := strings.Cut(target, "?")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadCommand, target)
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) < 2 || !strings.EqualFold(segments[0], "api") {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, path)
	}

	switch strings.ToLower(segments[1]) {
	case "forward":
		return parseForward(query)
	case "register":
		return parseRegister(method, query)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, path)
	}
}

// parseForward takes everything after the leading "url=" verbatim, so a
// target URL keeps its own query string and ampersands.
func parseForward(query string) (Command, error) {
	prefix := argURL + "="
	if !strings.HasPrefix(query, prefix) {
		return nil, fmt.Errorf("%w: %s", ErrMissingArgument, argURL)
	}
	return Forward{URL: query[len(prefix):]}, nil
}

func parseRegister(method, query string) (Command, error) {
	var (
		device, hub    registration.Address
		edgeID         registration.EdgeID
		hasDev, hasHub bool
		hasEdgeID      bool
	)

	for _, arg := range strings.Split(query, "&") {
		key, value, _ := strings.Cut(arg, "=")

		var err error
		switch key {
		case argDevice:
			device, err = registration.ParseAddress(value)
			hasDev = true
		case argHub:
			hub, err = registration.ParseHubAddress(value)
			hasHub = true
		case argEdgeID:
			edgeID, err = registration.ParseEdgeID(value)
			hasEdgeID = true
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownArgument, arg)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	// Every register command names a device and an edge id, so their
	// absence is a bad request whatever the method.
	if err := requireArgs(map[string]bool{argDevice: hasDev, argEdgeID: hasEdgeID}); err != nil {
		return nil, err
	}

	switch strings.ToUpper(method) {
	case http.MethodPost:
		if err := requireArgs(map[string]bool{argHub: hasHub}); err != nil {
			return nil, err
		}
		return RegisterUpsert{Record: registration.Record{Device: device, EdgeID: edgeID, Hub: hub}}, nil
	case http.MethodDelete:
		return RegisterDelete{Device: device, EdgeID: edgeID}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrMethodNotAllowed, method)
	}
}

func requireArgs(present map[string]bool) error {
	var missing []string
	for _, key := range []string{argDevice, argHub, argEdgeID} {
		if ok, wanted := present[key]; wanted && !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingArgument, strings.Join(missing, ", "))
	}
	return nil
}
