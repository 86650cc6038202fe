package relay

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/edge-bridge/internal/registration"
)

// Logger defines the logging interface used by the relays.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Delivery is the outcome of relaying one unsolicited message to a hub.
type Delivery struct {
	Record     registration.Record
	URL        string
	StatusCode int // zero when no upstream status was received
	Err        error
	Duration   time.Duration

	// Failures is the hub's consecutive failure count after this delivery.
	Failures int

	// Evict is set when this failure reached EvictionThreshold. Every
	// record bound to Record.Hub should then be removed after the pass.
	Evict bool
}

// OK reports whether the hub accepted the message.
func (d Delivery) OK() bool {
	return d.Err == nil && d.StatusCode == http.StatusOK
}

// HubRelay passes unsolicited device traffic on to the registered hub.
//
// The inbound method and path are embedded in the target URL; the outbound
// verb is always POST.
//
// Thread Safety: safe for concurrent use.
type HubRelay struct {
	sender   Sender
	failures *FailureTracker
	logger   Logger
}

// NewHubRelay creates a relay that counts failures in failures.
func NewHubRelay(sender Sender, failures *FailureTracker) *HubRelay {
	return &HubRelay{
		sender:   sender,
		failures: failures,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the relay.
func (h *HubRelay) SetLogger(logger Logger) {
	h.logger = logger
}

// HubURL builds http://{hub}/{device}/{method}{path} for rec.
// path is the raw inbound request target, including any query.
func HubURL(rec registration.Record, method, path string) string {
	return fmt.Sprintf("http://%s/%s/%s%s", rec.Hub, rec.Device, method, path)
}

// Deliver posts one message to rec's hub and updates the failure counter.
//
// A 200 answer is a success; any other status or transport failure counts
// against the hub address.
func (h *HubRelay) Deliver(ctx context.Context, rec registration.Record, method, path string, header http.Header, body []byte) Delivery {
	target := HubURL(rec, method, path)

	out := make(http.Header)
	out.Set("Host", rec.Hub.String())
	if len(body) > 0 {
		out.Set("Content-Length", strconv.Itoa(len(body)))
		if ct := header.Get("Content-Type"); ct != "" {
			out.Set("Content-Type", ct)
		}
	}

	h.logger.Info("forwarding to hub", "url", target, "hub", rec.Hub.String(), "edge_id", rec.EdgeID.String())

	start := time.Now()
	resp, err := h.sender.Send(ctx, Request{
		Method: http.MethodPost,
		URL:    target,
		Header: out,
		Body:   body,
	})

	d := Delivery{
		Record:   rec,
		URL:      target,
		Err:      err,
		Duration: time.Since(start),
	}
	if resp != nil {
		d.StatusCode = resp.StatusCode
	}

	if d.OK() {
		h.failures.RecordSuccess(rec.Hub)
		hubDeliveriesTotal.WithLabelValues("success").Inc()
		h.logger.Info("message forwarded to edge driver", "edge_id", rec.EdgeID.String())
		return d
	}

	d.Failures, d.Evict = h.failures.RecordFailure(rec.Hub)
	hubDeliveriesTotal.WithLabelValues("failure").Inc()
	if d.Evict {
		hubEvictionsTotal.Inc()
	}

	if err != nil {
		h.logger.Error("failed sending message to hub",
			"hub", rec.Hub.String(),
			"failures", d.Failures,
			"error", err,
		)
	} else {
		h.logger.Error("hub returned error status",
			"hub", rec.Hub.String(),
			"status", d.StatusCode,
			"failures", d.Failures,
		)
	}

	return d
}
