package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names for relay telemetry.
const (
	MeasurementForward      = "forward"
	MeasurementHubDelivery  = "hub_delivery"
	MeasurementRegistration = "registration"
)

// WriteForward records one completed forward relay.
//
// Parameters:
//   - statusCode: Status returned to the caller (502 on timeout or transport failure)
//   - durationMS: Upstream call duration in milliseconds
//   - timedOut: Whether the upstream deadline passed
func (c *Client) WriteForward(statusCode int, durationMS float64, timedOut bool) {
	c.write(forwardPoint(statusCode, durationMS, timedOut, time.Now()))
}

// WriteHubDelivery records one delivery of unsolicited traffic to a hub.
//
// Parameters:
//   - hub: Hub address as "ip:port" (low cardinality on a home network)
//   - success: Whether the hub answered 200
//   - statusCode: Hub status, zero when none was received
//   - durationMS: Call duration in milliseconds
//   - failures: Consecutive failure count after this delivery
func (c *Client) WriteHubDelivery(hub string, success bool, statusCode int, durationMS float64, failures int) {
	c.write(hubDeliveryPoint(hub, success, statusCode, durationMS, failures, time.Now()))
}

// WriteRegistrationEvent records a registration table change.
//
// Example:
//
//	client.WriteRegistrationEvent("registration.evicted", "192.168.1.50:39500")
func (c *Client) WriteRegistrationEvent(event, hub string) {
	c.write(registrationPoint(event, hub, time.Now()))
}

// write queues p unless the client is closed. The write is non-blocking;
// points are batched and sent asynchronously.
func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

func forwardPoint(statusCode int, durationMS float64, timedOut bool, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementForward,
		map[string]string{
			"status": strconv.Itoa(statusCode),
		},
		map[string]interface{}{
			"duration_ms": durationMS,
			"timed_out":   timedOut,
		},
		ts,
	)
}

func hubDeliveryPoint(hub string, success bool, statusCode int, durationMS float64, failures int, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementHubDelivery,
		map[string]string{
			"hub":     hub,
			"success": strconv.FormatBool(success),
		},
		map[string]interface{}{
			"status":      statusCode,
			"duration_ms": durationMS,
			"failures":    failures,
		},
		ts,
	)
}

func registrationPoint(event, hub string, ts time.Time) *write.Point {
	tags := map[string]string{"event": event}
	if hub != "" {
		tags["hub"] = hub
	}
	return write.NewPoint(
		MeasurementRegistration,
		tags,
		map[string]interface{}{"count": 1},
		ts,
	)
}
