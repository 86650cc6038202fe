package relay

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/nerrad567/edge-bridge/internal/registration"
)

// fakeSender records requests and answers with a fixed response.
type fakeSender struct {
	mu    sync.Mutex
	reqs  []Request
	resp  *Response
	err   error
	calls int
}

func (f *fakeSender) Send(_ context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func (f *fakeSender) last(t *testing.T) Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		t.Fatal("no request was sent")
	}
	return f.reqs[len(f.reqs)-1]
}

func okResponse(body string) *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
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
	id, err := registration.ParseEdgeID("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
	if err != nil {
		t.Fatalf("ParseEdgeID: %v", err)
	}
	return registration.Record{Device: d, EdgeID: id, Hub: h}
}
