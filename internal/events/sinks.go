package events

import (
	"encoding/json"
)

// Logger defines the logging interface used by the sinks.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Publisher is the interface for publishing to MQTT.
type Publisher interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MetricsWriter is the interface for recording relay telemetry.
type MetricsWriter interface {
	WriteForward(statusCode int, durationMS float64, timedOut bool)
	WriteHubDelivery(hub string, success bool, statusCode int, durationMS float64, failures int)
	WriteRegistrationEvent(event, hub string)
}

// Broadcaster is the interface for broadcasting WebSocket events.
type Broadcaster interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// MQTTSink publishes each event as JSON to a per-type topic.
type MQTTSink struct {
	pub     Publisher
	topicOf func(eventType string) string
	qos     byte
	logger  Logger
}

// NewMQTTSink creates a sink publishing through pub. topicOf maps an event
// type to its topic.
func NewMQTTSink(pub Publisher, topicOf func(eventType string) string, qos byte, logger Logger) *MQTTSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTSink{pub: pub, topicOf: topicOf, qos: qos, logger: logger}
}

// Emit implements Sink. Publish failures are logged and dropped.
func (s *MQTTSink) Emit(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("failed to marshal event", "type", string(e.Type), "error", err)
		return
	}
	topic := s.topicOf(string(e.Type))
	if err := s.pub.Publish(topic, payload, s.qos, false); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

// MetricsSink records forwards, hub deliveries and registration changes
// as time-series points.
type MetricsSink struct {
	w MetricsWriter
}

// NewMetricsSink creates a sink writing through w.
func NewMetricsSink(w MetricsWriter) *MetricsSink {
	return &MetricsSink{w: w}
}

// Emit implements Sink.
func (s *MetricsSink) Emit(e Event) {
	var hub string
	if e.Record != nil {
		hub = e.Record.Hub.String()
	}

	switch e.Type {
	case TypeForwardCompleted:
		s.w.WriteForward(e.StatusCode, e.DurationMS, e.TimedOut)
	case TypeHubDelivery:
		s.w.WriteHubDelivery(hub, e.Success, e.StatusCode, e.DurationMS, e.Failures)
	default:
		s.w.WriteRegistrationEvent(string(e.Type), hub)
	}
}

// HubSink broadcasts each event on the websocket channel named after its type.
type HubSink struct {
	b Broadcaster
}

// NewHubSink creates a sink broadcasting through b.
func NewHubSink(b Broadcaster) *HubSink {
	return &HubSink{b: b}
}

// Emit implements Sink.
func (s *HubSink) Emit(e Event) {
	s.b.Broadcast(string(e.Type), e)
}
