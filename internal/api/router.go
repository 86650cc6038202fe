package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// pingPath is the liveness route. It is answered before any other
// processing and never logged.
const pingPath = "/api/ping"

// eventMethods are the UPnP/GENA verbs devices use for unsolicited
// traffic. chi only routes methods it knows about.
var eventMethods = []string{"NOTIFY", "SUBSCRIBE", "UNSUBSCRIBE"}

func init() {
	for _, m := range eventMethods {
		chi.RegisterMethod(m)
	}
}

// buildRouter creates the relay router.
//
// Every path except the ping route lands on handleRelay, which classifies
// the sender before looking at the path at all.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeRelayResponse(w, http.StatusMethodNotAllowed, nil, nil)
	})

	r.HandleFunc(pingPath, handlePing)

	r.Group(func(r chi.Router) {
		r.Use(requestIDMiddleware)
		r.Use(loggingMiddleware(s.logger))
		r.Use(recoveryMiddleware(s.logger, func(w http.ResponseWriter) {
			writeRelayResponse(w, http.StatusInternalServerError, nil, nil)
		}))

		// Bodies are capped in handleRelay, after sender classification.
		r.HandleFunc("/*", s.handleRelay)
	})

	return r
}

// handlePing answers liveness checks with an empty 200.
func handlePing(w http.ResponseWriter, _ *http.Request) {
	writeRelayResponse(w, http.StatusOK, nil, nil)
}
