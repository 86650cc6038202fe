package api

import (
	"net/http"
	"strconv"
	"time"
)

// Relay-surface response headers.
const (
	serverName         = "edgeBridge"
	defaultContentType = `text/xml; charset="utf-8"`
)

// writeRelayResponse answers a caller on the relay surface.
//
// Date and Server are always sent. Content headers are only sent with a
// non-empty body; upstream, when non-nil, supplies Content-Type and
// Content-Encoding for a forwarded body.
func writeRelayResponse(w http.ResponseWriter, status int, upstream http.Header, body []byte) {
	h := w.Header()
	h.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	h.Set("Server", serverName)

	if len(body) == 0 {
		w.WriteHeader(status)
		return
	}

	contentType := upstream.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	h.Set("Content-Type", contentType)
	if enc := upstream.Get("Content-Encoding"); enc != "" {
		h.Set("Content-Encoding", enc)
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))

	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(body)
}
