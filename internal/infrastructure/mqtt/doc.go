// Package mqtt provides MQTT publishing for the edge bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - A retained status topic with Last Will and Testament (LWT)
//   - Connection health monitoring
//
// # Topics
//
// Relay events go to {prefix}/event/{type}, for example
// edgebridge/event/hub.delivery. The retained status message lives at
// {prefix}/system/status.
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) when the broker is not local
//   - Credentials come from config or EDGEBRIDGE_MQTT_* variables
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := client.Topics().Event("registration.added")
//	client.Publish(topic, payload, 1, false)
package mqtt
