package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/edge-bridge/internal/registration"
	"github.com/nerrad567/edge-bridge/internal/relay"
)

// Command errors. Each maps to one relay-surface status in statusFor.
var (
	// ErrBadCommand indicates a request target without a query string.
	ErrBadCommand = errors.New("api: request is not a command")

	// ErrUnknownEndpoint indicates a path outside /api/{forward,register}.
	ErrUnknownEndpoint = errors.New("api: unknown endpoint")

	// ErrUnknownArgument indicates a register argument other than
	// devaddr, hubaddr or edgeid.
	ErrUnknownArgument = errors.New("api: unknown argument")

	// ErrMissingArgument indicates a required argument was not supplied.
	ErrMissingArgument = errors.New("api: missing argument")

	// ErrMethodNotAllowed indicates a register verb other than POST or DELETE.
	ErrMethodNotAllowed = errors.New("api: method not allowed")
)

// statusFor translates a command or relay error into the status returned
// on the relay surface.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownEndpoint), errors.Is(err, registration.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed), errors.Is(err, relay.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, relay.ErrUpstreamTimeout), errors.Is(err, relay.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// Error represents a structured error response on the admin surface.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotFound   = "not_found"
	ErrCodeInternal   = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
