package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/nerrad567/edge-bridge/internal/events"
	"github.com/nerrad567/edge-bridge/internal/registration"
	"github.com/nerrad567/edge-bridge/internal/relay"
)

// handleRelay is the entry point for every non-ping request.
//
// A request from a registered device is relayed to its hub(s) regardless of
// path. Anything else must be a command.
func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	target := requestTarget(r)
	body, readErr := readBody(r.Body)

	ip, port := senderAddress(r.RemoteAddr)
	if matches := s.table.MatchBySender(ip, port); len(matches) > 0 {
		if readErr != nil {
			// A registered device is always answered with 200.
			s.logger.Warn("dropping unsolicited message", "remote", r.RemoteAddr, "error", readErr)
			writeRelayResponse(w, http.StatusOK, nil, nil)
			return
		}
		s.relayUnsolicited(w, r, matches, target, body)
		return
	}

	if readErr != nil {
		if errors.Is(readErr, errBodyTooLarge) {
			writeRelayResponse(w, http.StatusRequestEntityTooLarge, nil, nil)
			return
		}
		s.logger.Warn("reading request body failed", "remote", r.RemoteAddr, "error", readErr)
		writeRelayResponse(w, http.StatusBadRequest, nil, nil)
		return
	}

	cmd, err := ParseCommand(r.Method, target)
	if err != nil {
		s.logger.Warn("rejected request", "method", r.Method, "remote", r.RemoteAddr, "error", err)
		writeRelayResponse(w, statusFor(err), nil, nil)
		return
	}

	switch c := cmd.(type) {
	case Forward:
		s.handleForward(w, r, c, body)
	case RegisterUpsert:
		s.handleUpsert(w, c)
	case RegisterDelete:
		s.handleDelete(w, c)
	}
}

// relayUnsolicited delivers a device's message to every matching hub,
// answers the device with 200 and then applies any evictions.
//
// Evictions are collected into a per-pass list so the table is never
// modified while deliveries are in flight.
func (s *Server) relayUnsolicited(w http.ResponseWriter, r *http.Request, matches []registration.Record, target string, body []byte) {
	// Outbound calls are bounded by the sender timeout only; a device
	// hanging up must not count against its hub.
	ctx := context.WithoutCancel(r.Context())

	var pending []registration.Record
	for _, rec := range matches {
		d := s.hubs.Deliver(ctx, rec, r.Method, target, r.Header, body)
		s.events.Emit(deliveryEvent(d))

		if d.Evict {
			pending = append(pending, s.table.RecordsForHub(rec.Hub)...)
		}
	}

	writeRelayResponse(w, http.StatusOK, nil, nil)

	if len(pending) == 0 {
		return
	}

	pending = uniqueRecords(pending)
	removed, err := s.table.RemoveRecords(pending)
	if err != nil {
		s.logger.Error("persisting evictions failed", "error", err)
	}
	s.logger.Warn("evicted registrations for unreachable hub", "removed", removed)
	for _, rec := range pending {
		s.logger.Info("removed registration", "registration", rec.String())
		s.events.Emit(events.ForRecord(events.TypeRegistrationEvicted, rec))
	}
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request, c Forward, body []byte) {
	res, err := s.forwarder.Forward(context.WithoutCancel(r.Context()), r.Method, c.URL, r.Header, body)
	if err != nil {
		s.logger.Warn("rejected forward", "method", r.Method, "error", err)
		writeRelayResponse(w, statusFor(err), nil, nil)
		return
	}

	e := events.New(events.TypeForwardCompleted)
	e.URL = c.URL
	e.StatusCode = res.StatusCode
	e.Success = res.Err == nil && res.StatusCode == http.StatusOK
	e.TimedOut = res.TimedOut
	e.DurationMS = float64(res.Duration.Microseconds()) / 1000
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	s.events.Emit(e)

	writeRelayResponse(w, res.StatusCode, res.Header, res.Body)
}

func (s *Server) handleUpsert(w http.ResponseWriter, c RegisterUpsert) {
	replaced, err := s.table.Upsert(c.Record)
	if err != nil && !errors.Is(err, registration.ErrStoreWrite) {
		writeRelayResponse(w, statusFor(err), nil, nil)
		return
	}
	if err != nil {
		s.logger.Error("registration kept in memory only", "error", err)
	}

	t := events.TypeRegistrationAdded
	if replaced {
		t = events.TypeRegistrationReplaced
		s.logger.Info("replaced registration", "registration", c.Record.String())
	} else {
		s.logger.Info("added registration", "registration", c.Record.String())
	}
	s.events.Emit(events.ForRecord(t, c.Record))

	writeRelayResponse(w, http.StatusOK, nil, nil)
}

func (s *Server) handleDelete(w http.ResponseWriter, c RegisterDelete) {
	removed, err := s.table.Remove(c.Device, c.EdgeID)
	switch {
	case errors.Is(err, registration.ErrNotFound):
		s.logger.Info("registration not found", "device", c.Device.String(), "edge_id", c.EdgeID.String())
		writeRelayResponse(w, http.StatusNotFound, nil, nil)
		return
	case err != nil:
		s.logger.Error("removal kept in memory only", "error", err)
	}

	s.logger.Info("removed registration", "registration", removed.String())
	s.events.Emit(events.ForRecord(events.TypeRegistrationRemoved, removed))

	writeRelayResponse(w, http.StatusOK, nil, nil)
}

// deliveryEvent describes one hub delivery.
func deliveryEvent(d relay.Delivery) events.Event {
	e := events.ForRecord(events.TypeHubDelivery, d.Record)
	e.URL = d.URL
	e.StatusCode = d.StatusCode
	e.Success = d.OK()
	e.TimedOut = errors.Is(d.Err, relay.ErrUpstreamTimeout)
	e.DurationMS = float64(d.Duration.Microseconds()) / 1000
	e.Failures = d.Failures
	if d.Err != nil {
		e.Error = d.Err.Error()
	}
	return e
}

// errBodyTooLarge is returned by readBody past maxRequestBodySize.
var errBodyTooLarge = fmt.Errorf("request body exceeds %d bytes", maxRequestBodySize)

// readBody reads at most maxRequestBodySize bytes of body. The rest of an
// oversized body is left unread.
func readBody(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(body, maxRequestBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxRequestBodySize {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// requestTarget returns the raw request target as sent on the wire.
func requestTarget(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

// senderAddress splits a RemoteAddr into IP and port. A malformed address
// yields an IP that matches no registration.
func senderAddress(remote string) (string, int) {
	host, portStr, err := net.SplitHostPort(remote)
	if err != nil {
		return remote, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}

func uniqueRecords(records []registration.Record) []registration.Record {
	seen := make(map[registration.Record]struct{}, len(records))
	out := records[:0]
	for _, rec := range records {
		if _, ok := seen[rec]; ok {
			continue
		}
		seen[rec] = struct{}{}
		out = append(out, rec)
	}
	return out
}
