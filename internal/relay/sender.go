package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Sender defaults.
const (
	// DefaultTimeout bounds every outbound call when none is configured.
	DefaultTimeout = 5 * time.Second

	// maxResponseSize caps how much of an upstream body is buffered (10 MB).
	maxResponseSize = 10 << 20
)

// Request is one outbound call.
//
// A "Host" entry in Header sets the request authority; it is not sent as a
// regular header.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the upstream status, headers and body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Sender performs outbound calls.
//
// Send returns an error wrapping ErrUpstreamTimeout when the deadline passes,
// or ErrUpstream for other failures. When an upstream status was received
// before the failure, the partial Response is returned along with the error.
type Sender interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// HTTPSender sends requests with net/http, bounding each call by a timeout.
//
// Thread Safety: safe for concurrent use.
type HTTPSender struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPSender creates a sender. A non-positive timeout uses DefaultTimeout.
func NewHTTPSender(timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPSender{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Timeout returns the per-call deadline.
func (s *HTTPSender) Timeout() time.Duration {
	return s.timeout
}

// Send implements Sender.
func (s *HTTPSender) Send(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrUpstream, err)
	}

	httpReq.Header = req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = make(http.Header)
	}
	if host := httpReq.Header.Get("Host"); host != "" {
		httpReq.Host = host
		httpReq.Header.Del("Host")
	}
	httpReq.Header.Del("Content-Length")
	httpReq.ContentLength = int64(len(req.Body))

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}
	if err != nil {
		return out, classify(err)
	}
	return out, nil
}

// classify maps a transport error onto the relay sentinels.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
