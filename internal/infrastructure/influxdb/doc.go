// Package influxdb provides InfluxDB connectivity for the edge bridge.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, relay telemetry writes, and health monitoring.
//
// # Measurements
//
//   - forward: status tag; duration_ms and timed_out fields
//   - hub_delivery: hub and success tags; status, duration_ms and failures fields
//   - registration: event and hub tags; count field
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteForward(200, 38.2, false)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned directly.
package influxdb
