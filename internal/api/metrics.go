package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string              `json:"timestamp"`
	Version       string              `json:"version"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Runtime       RuntimeMetrics      `json:"runtime"`
	WebSocket     WSMetrics           `json:"websocket"`
	MQTT          MQTTMetrics         `json:"mqtt"`
	Registrations RegistrationMetrics `json:"registrations"`
	Events        EventMetrics        `json:"events"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	DroppedFrames    uint64 `json:"dropped_frames"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// RegistrationMetrics describes the registration table and the hubs
// currently accumulating delivery failures.
type RegistrationMetrics struct {
	Total int `json:"total"`

	// Hubs counts registrations per hub address.
	Hubs map[string]int `json:"hubs"`

	// PendingFailures maps hub address to its consecutive failure count.
	PendingFailures map[string]int `json:"pending_failures"`
}

// EventMetrics contains event bus statistics.
type EventMetrics struct {
	Dropped uint64 `json:"dropped"`
}

// handleMetrics returns a JSON snapshot of the bridge.
func (a *AdminServer) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       a.version,
		UptimeSeconds: int64(time.Since(a.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: a.hub.ClientCount(),
			DroppedFrames:    a.hub.Dropped(),
		},
	}

	if a.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Connected: a.mqtt.IsConnected(),
		}
	}

	records := a.table.Snapshot()
	metrics.Registrations = RegistrationMetrics{
		Total:           len(records),
		Hubs:            make(map[string]int),
		PendingFailures: a.failures.Snapshot(),
	}
	for _, rec := range records {
		metrics.Registrations.Hubs[rec.Hub.String()]++
	}

	if a.bus != nil {
		metrics.Events.Dropped = a.bus.Dropped()
	}

	writeJSON(w, http.StatusOK, metrics)
}
