// Package events carries relay events from the request router to optional
// observers.
//
// The router emits registration changes, evictions, hub deliveries and
// completed forwards. Sinks publish them to MQTT, write them to InfluxDB,
// or broadcast them to admin websocket clients.
//
// # Delivery
//
// Producers emit into a Bus, which never blocks: a full buffer drops the
// event and counts it. A single goroutine (Bus.Run) feeds the configured
// sinks. Sink failures are logged and never reach the relay surface.
//
// # Usage
//
//	bus := events.NewBus(events.Fanout{
//	    events.NewMQTTSink(mqttClient, topics.Event, 1, log),
//	    events.NewHubSink(wsHub),
//	}, 0)
//	go bus.Run(ctx)
//	bus.Emit(events.ForRecord(events.TypeRegistrationAdded, rec))
package events
