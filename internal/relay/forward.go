package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Forward defaults.
const (
	// DefaultUserAgent identifies the bridge to forward targets.
	DefaultUserAgent = "SmartThings Edge Hub"

	// DefaultCloudHost is the cloud authority that receives the bearer token.
	DefaultCloudHost = "api.smartthings.com"
)

// strippedHeaders are caller headers never passed to a forward target.
var strippedHeaders = []string{"User-Agent", "Host", "Te", "Connection", "Content-Length"}

// ForwardConfig configures the Forwarder.
type ForwardConfig struct {
	// CloudHost is the authority whose requests get the bearer credential.
	CloudHost string

	// Authorization is the full header value, e.g. "Bearer <token>".
	// Empty disables injection.
	Authorization string

	// UserAgent replaces whatever the caller sent.
	UserAgent string
}

// ForwardResult is what the inbound caller should receive.
type ForwardResult struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	TimedOut   bool
	Duration   time.Duration

	// Err is the upstream failure, if any. The result is still answerable.
	Err error
}

// Forwarder relays a caller's request to an arbitrary URL and hands back
// the upstream answer verbatim.
//
// Thread Safety: safe for concurrent use.
type Forwarder struct {
	sender Sender
	cfg    ForwardConfig
	logger Logger
}

// NewForwarder creates a Forwarder that sends through sender.
func NewForwarder(sender Sender, cfg ForwardConfig) *Forwarder {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.CloudHost == "" {
		cfg.CloudHost = DefaultCloudHost
	}
	return &Forwarder{
		sender: sender,
		cfg:    cfg,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the forwarder.
func (f *Forwarder) SetLogger(logger Logger) {
	f.logger = logger
}

// Forward sends method/body to target with caller headers rewritten.
//
// Caller errors (bad method, unparsable target) are returned as errors.
// Every upstream outcome, including timeouts and transport failures, is
// returned as a result so the inbound caller always gets an answer:
//   - upstream answered: its status and body, untouched
//   - timeout: 502 with an empty body
//   - transport failure with no status: 502 with an empty body
func (f *Forwarder) Forward(ctx context.Context, method, target string, header http.Header, body []byte) (*ForwardResult, error) {
	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		return nil, fmt.Errorf("%w: %s", ErrMethodNotAllowed, method)
	}

	u, err := url.Parse(target)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}

	out := f.buildHeaders(u, header, body)

	f.logger.Info("forwarding request", "method", method, "url", target)

	start := time.Now()
	resp, sendErr := f.sender.Send(ctx, Request{
		Method: method,
		URL:    target,
		Header: out,
		Body:   body,
	})
	result := &ForwardResult{Duration: time.Since(start), Err: sendErr}

	switch {
	case errors.Is(sendErr, ErrUpstreamTimeout):
		f.logger.Warn("forward timed out", "url", target, "after", result.Duration)
		result.StatusCode = http.StatusBadGateway
		result.TimedOut = true
	case resp != nil:
		result.StatusCode = resp.StatusCode
		result.Header = resp.Header
		result.Body = resp.Body
		if sendErr != nil {
			f.logger.Warn("forward response incomplete", "url", target, "status", resp.StatusCode, "error", sendErr)
		} else if resp.StatusCode != http.StatusOK {
			f.logger.Warn("forward target returned error status", "url", target, "status", resp.StatusCode)
		} else {
			f.logger.Debug("forward response", "url", target, "bytes", len(resp.Body))
		}
	default:
		f.logger.Error("forward failed", "url", target, "error", sendErr)
		result.StatusCode = http.StatusBadGateway
	}

	forwardRequestsTotal.WithLabelValues(strconv.Itoa(result.StatusCode)).Inc()
	forwardDuration.Observe(result.Duration.Seconds())

	return result, nil
}

// buildHeaders copies the caller headers and applies the forward rewrites.
func (f *Forwarder) buildHeaders(target *url.URL, in http.Header, body []byte) http.Header {
	out := in.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for _, h := range strippedHeaders {
		out.Del(h)
	}

	out.Set("Host", target.Host)
	out.Set("User-Agent", f.cfg.UserAgent)
	if out.Get("Accept") == "" {
		out.Set("Accept", "*/*")
	}
	if f.cfg.Authorization != "" && out.Get("Authorization") == "" &&
		strings.EqualFold(target.Hostname(), f.cfg.CloudHost) {
		out.Set("Authorization", f.cfg.Authorization)
	}
	if len(body) > 0 {
		out.Set("Content-Length", strconv.Itoa(len(body)))
	}

	return out
}
