package mqtt

import "fmt"

// DefaultTopicPrefix is the root of every bridge topic when none is configured.
const DefaultTopicPrefix = "edgebridge"

// Topics provides builders for edge bridge MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{Prefix: "edgebridge"}
//	topic := topics.Event("hub.delivery")
//	// Returns: "edgebridge/event/hub.delivery"
type Topics struct {
	// Prefix is the first topic level. Empty means DefaultTopicPrefix.
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// Event returns the topic for relay events of the given type.
//
// Example: edgebridge/event/registration.added
func (t Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", t.prefix(), eventType)
}

// Status returns the retained online/offline status topic.
//
// Example: edgebridge/system/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/system/status", t.prefix())
}

// AllEvents returns a pattern matching every relay event.
//
// Pattern: edgebridge/event/+
func (t Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", t.prefix())
}
