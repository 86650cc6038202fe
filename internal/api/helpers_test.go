package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/edge-bridge/internal/events"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/config"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/edge-bridge/internal/registration"
	"github.com/nerrad567/edge-bridge/internal/relay"
)

const testEdgeID = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"

// stubSender records outbound requests and answers with whatever resp/err
// hold at the time of the call.
type stubSender struct {
	mu   sync.Mutex
	reqs []relay.Request
	resp *relay.Response
	err  error
}

func (s *stubSender) Send(_ context.Context, req relay.Request) (*relay.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return s.resp, s.err
}

func (s *stubSender) set(resp *relay.Response, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resp, s.err = resp, err
}

func (s *stubSender) requests() []relay.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]relay.Request, len(s.reqs))
	copy(out, s.reqs)
	return out
}

// eventLog collects emitted events.
type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) Emit(e events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []events.Type {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.Type, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func (l *eventLog) count(t events.Type) int {
	n := 0
	for _, got := range l.types() {
		if got == t {
			n++
		}
	}
	return n
}

// testRig bundles a relay server with its collaborators.
type testRig struct {
	srv      *Server
	handler  http.Handler
	table    *registration.Table
	failures *relay.FailureTracker
	sender   relay.Sender
	events   *eventLog
	path     string
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "none"}, "test")
}

// newTestRig creates a relay server whose outbound calls go through sender.
func newTestRig(t *testing.T, sender relay.Sender) *testRig {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".registrations")
	table := registration.NewTable(registration.NewFileStore(path))
	failures := relay.NewFailureTracker()
	log := &eventLog{}

	srv, err := New(Deps{
		Config: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.TimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		Logger:    testLogger(),
		Table:     table,
		Forwarder: relay.NewForwarder(sender, relay.ForwardConfig{}),
		HubRelay:  relay.NewHubRelay(sender, failures),
		Events:    log,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return &testRig{
		srv:      srv,
		handler:  srv.Handler(),
		table:    table,
		failures: failures,
		sender:   sender,
		events:   log,
		path:     path,
	}
}

// do sends one request from remote through the relay router.
func (r *testRig) do(t *testing.T, method, target, remote, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.handler.ServeHTTP(w, req)
	return w
}

// register adds a record straight into the table.
func (r *testRig) register(t *testing.T, dev, hub string) registration.Record {
	t.Helper()
	rec := testRecord(t, dev, hub)
	if _, err := r.table.Upsert(rec); err != nil {
		t.Fatalf("Upsert(%s): %v", rec, err)
	}
	return rec
}

func testRecord(t *testing.T, dev, hub string) registration.Record {
	t.Helper()
	d, err := registration.ParseAddress(dev)
	if err != nil {
		t.Fatalf("ParseAddress(%q): %v", dev, err)
	}
	h, err := registration.ParseHubAddress(hub)
	if err != nil {
		t.Fatalf("ParseHubAddress(%q): %v", hub, err)
	}
	id, err := registration.ParseEdgeID(testEdgeID)
	if err != nil {
		t.Fatalf("ParseEdgeID: %v", err)
	}
	return registration.Record{Device: d, EdgeID: id, Hub: h}
}

func statusResponse(code int, body string) *relay.Response {
	return &relay.Response{
		StatusCode: code,
		Header:     make(http.Header),
		Body:       []byte(body),
	}
}
