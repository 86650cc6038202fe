// Package relay performs the bridge's outbound HTTP calls.
//
// Two relays share one Sender:
//
//   - Forwarder: sends a caller's request to an arbitrary URL (usually the
//     cloud API) and returns the upstream status and body untouched. The
//     bearer credential is added only for the designated cloud host.
//   - HubRelay: posts unsolicited device traffic to the hub that registered
//     the device, at http://{hub}/{device}/{method}{path}.
//
// HubRelay feeds a FailureTracker. After EvictionThreshold consecutive
// failures to one hub address the delivery is marked Evict, and the caller
// removes every registration bound to that address once its pass is done.
//
// # Timeouts
//
// Every outbound call is bounded by the sender's timeout (DefaultTimeout
// unless configured). A timed-out forward answers the caller with 502.
//
// # Metrics
//
// Counters and a duration histogram are registered with the Prometheus
// default registry under the edgebridge_ prefix.
package relay
