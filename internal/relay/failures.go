package relay

import (
	"sync"

	"github.com/nerrad567/edge-bridge/internal/registration"
)

// EvictionThreshold is the number of consecutive delivery failures to a hub
// address after which every registration bound to it is removed.
const EvictionThreshold = 3

// FailureTracker counts consecutive delivery failures per hub address.
//
// A counter is created on the first failure, incremented on each further
// failure, and deleted on success or when it reaches EvictionThreshold.
// Counters are never persisted.
//
// Thread Safety: safe for concurrent use.
type FailureTracker struct {
	mu     sync.Mutex
	counts map[registration.Address]int
}

// NewFailureTracker creates an empty tracker.
func NewFailureTracker() *FailureTracker {
	return &FailureTracker{
		counts: make(map[registration.Address]int),
	}
}

// RecordFailure counts one failed delivery to hub.
//
// Returns the consecutive failure count including this one. evict is true
// exactly when the count reached EvictionThreshold; the counter is then
// cleared, so the next failure for that address starts again at 1.
func (f *FailureTracker) RecordFailure(hub registration.Address) (count int, evict bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count = f.counts[hub] + 1
	if count >= EvictionThreshold {
		delete(f.counts, hub)
		return count, true
	}
	f.counts[hub] = count
	return count, false
}

// RecordSuccess clears the failure counter for hub.
func (f *FailureTracker) RecordSuccess(hub registration.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, hub)
}

// Count returns the current consecutive failure count for hub.
func (f *FailureTracker) Count(hub registration.Address) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[hub]
}

// Snapshot returns the live counters keyed by "ip:port".
func (f *FailureTracker) Snapshot() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]int, len(f.counts))
	for hub, n := range f.counts {
		out[hub.String()] = n
	}
	return out
}
